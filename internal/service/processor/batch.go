package processor

import (
	"context"
	"time"

	"commandmail/internal/model"
	"commandmail/pkg/logger"

	"go.uber.org/zap"
)

// EmailProcessor is satisfied by *Processor.
type EmailProcessor interface {
	Process(ctx context.Context, email model.Email) (Result, error)
}

// BatchResult is the outcome for one input email. Err is nil on success.
type BatchResult struct {
	Email model.Email
	Result
	Err error
}

func (r BatchResult) Success() bool { return r.Err == nil }

// BatchRunner processes emails one at a time. A failed item never stops the
// batch and the gate is waited on only after a success that is not last.
type BatchRunner struct {
	processor EmailProcessor
	gate      Gate
	logger    *zap.Logger
}

func NewBatchRunner(p EmailProcessor, gate Gate, logger *zap.Logger) *BatchRunner {
	if gate == nil {
		gate = FixedIntervalGate{Delay: time.Second}
	}
	return &BatchRunner{processor: p, gate: gate, logger: logger}
}

// Run returns one result per email in input order. If ctx is cancelled while
// pacing, the remaining emails are reported failed with the context error.
func (b *BatchRunner) Run(ctx context.Context, emails []model.Email) []BatchResult {
	return b.RunEach(ctx, emails, nil)
}

// StoreFunc persists one successful result as soon as it is produced. A
// returned error turns that item into a failure.
type StoreFunc func(ctx context.Context, r BatchResult) error

// RunEach is Run with store called after every successful item, before the
// gate wait. store receives a context that is not cancelled with ctx, so a
// result the model already returned is still written when the caller goes away.
func (b *BatchRunner) RunEach(ctx context.Context, emails []model.Email, store StoreFunc) []BatchResult {
	log := logger.WithTrace(ctx, b.logger)
	results := make([]BatchResult, 0, len(emails))

	for i, email := range emails {
		log.Info("Processing batch item", zap.Int("index", i+1), zap.Int("total", len(emails)))

		res, err := b.processor.Process(ctx, email)
		if err != nil {
			log.Warn("Batch item failed", zap.String("email_id", email.ID.String()), zap.Error(err))
			results = append(results, BatchResult{Email: email, Err: err})
			continue
		}
		r := BatchResult{Email: email, Result: res}
		if store != nil {
			if err := store(context.WithoutCancel(ctx), r); err != nil {
				log.Error("Failed to store batch item", zap.String("email_id", email.ID.String()), zap.Error(err))
				r.Err = err
			}
		}
		results = append(results, r)

		if i < len(emails)-1 {
			if err := b.gate.Wait(ctx); err != nil {
				for _, rest := range emails[i+1:] {
					results = append(results, BatchResult{Email: rest, Err: err})
				}
				log.Warn("Batch interrupted", zap.Int("remaining", len(emails)-i-1), zap.Error(err))
				return results
			}
		}
	}
	return results
}
