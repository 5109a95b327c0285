package email

import (
	"context"
	"fmt"
	"time"

	contractmq "commandmail/contracts/mq"
	"commandmail/internal/apperr"
	"commandmail/internal/model"
	"commandmail/internal/seed"
	"commandmail/internal/service/processor"
	"commandmail/pkg/logger"
	"commandmail/pkg/mq"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const processAllLockKey = "commandmail:lock:process-all"

type Store interface {
	ReplaceAll(ctx context.Context, seed []model.Email) ([]model.Email, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Email, error)
	List(ctx context.Context, f model.EmailFilter) ([]model.Email, error)
	SaveProcessing(ctx context.Context, id uuid.UUID, category model.Category, items []model.ActionItem) (*model.Email, error)
	ToggleActionItem(ctx context.Context, id uuid.UUID, index int) (*model.Email, error)
}

// Locker guards process-all against overlapping runs. ok is false when
// another run holds the lock.
type Locker interface {
	AcquireOnce(ctx context.Context, key string) (release func(), ok bool)
}

type Service struct {
	emails    Store
	processor processor.EmailProcessor
	batch     *processor.BatchRunner
	publisher mq.EventPublisher
	locker    Locker
	logger    *zap.Logger
}

// NewService wires the email use cases. publisher and locker may be nil.
func NewService(
	emails Store,
	proc processor.EmailProcessor,
	batch *processor.BatchRunner,
	publisher mq.EventPublisher,
	locker Locker,
	logger *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = mq.NopPublisher{}
	}
	return &Service{
		emails:    emails,
		processor: proc,
		batch:     batch,
		publisher: publisher,
		locker:    locker,
		logger:    logger,
	}
}

// Load replaces the whole inbox with the embedded seed set.
func (s *Service) Load(ctx context.Context) ([]model.Email, error) {
	inbox, err := seed.Inbox()
	if err != nil {
		return nil, err
	}
	emails, err := s.emails.ReplaceAll(ctx, inbox)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, contractmq.RoutingInboxLoaded, contractmq.InboxLoadedPayload{
		Count:    len(emails),
		LoadedAt: time.Now(),
	})
	return emails, nil
}

func (s *Service) List(ctx context.Context, f model.EmailFilter) ([]model.Email, error) {
	return s.emails.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Email, error) {
	return s.emails.FindByID(ctx, id)
}

// Process runs the processor on one email and stores the outcome.
func (s *Service) Process(ctx context.Context, id uuid.UUID) (*model.Email, error) {
	email, err := s.emails.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.processor.Process(ctx, *email)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, id, res)
}

func (s *Service) save(ctx context.Context, id uuid.UUID, res processor.Result) (*model.Email, error) {
	updated, err := s.emails.SaveProcessing(ctx, id, res.Category, res.ActionItems)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, contractmq.RoutingEmailProcessed, contractmq.EmailProcessedPayload{
		EmailID:     id.String(),
		Category:    string(updated.Category),
		ActionItems: len(updated.ActionItems),
		ProcessedAt: time.Now(),
	})
	return updated, nil
}

type BatchOutcome struct {
	Message string        `json:"message"`
	Count   int           `json:"count"`
	Failed  int           `json:"failed"`
	Emails  []model.Email `json:"emails"`
}

// ProcessAll runs the batch over every unprocessed email. Each success is
// written as soon as the model returns it, so a cancelled or crashed run keeps
// the earlier results.
func (s *Service) ProcessAll(ctx context.Context) (*BatchOutcome, error) {
	log := logger.WithTrace(ctx, s.logger)

	if s.locker != nil {
		release, ok := s.locker.AcquireOnce(ctx, processAllLockKey)
		if !ok {
			return nil, apperr.Conflict("Batch processing is already running")
		}
		defer release()
	}

	unprocessed := false
	pending, err := s.emails.List(ctx, model.EmailFilter{Processed: &unprocessed})
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &BatchOutcome{Message: "No unprocessed emails found", Emails: []model.Email{}}, nil
	}

	log.Info("Starting batch processing", zap.Int("count", len(pending)))
	out := &BatchOutcome{Emails: []model.Email{}}
	results := s.batch.RunEach(ctx, pending, func(sctx context.Context, r processor.BatchResult) error {
		updated, err := s.save(sctx, r.Email.ID, r.Result)
		if err != nil {
			return err
		}
		out.Emails = append(out.Emails, *updated)
		return nil
	})

	for _, r := range results {
		if !r.Success() {
			out.Failed++
		}
	}
	out.Count = len(out.Emails)
	out.Message = fmt.Sprintf("Processed %d emails successfully", out.Count)
	if out.Failed > 0 {
		out.Message += fmt.Sprintf(", %d failed", out.Failed)
	}
	log.Info("Batch processing finished", zap.Int("succeeded", out.Count), zap.Int("failed", out.Failed))
	return out, nil
}

// ToggleActionItem flips completion of the item at index.
func (s *Service) ToggleActionItem(ctx context.Context, id uuid.UUID, index int) (*model.Email, error) {
	email, err := s.emails.ToggleActionItem(ctx, id, index)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, contractmq.RoutingActionItemToggled, contractmq.ActionItemToggledPayload{
		EmailID:   id.String(),
		Index:     index,
		Completed: email.ActionItems[index].Completed,
		ToggledAt: time.Now(),
	})
	return email, nil
}

// publish is best effort; the record is already stored.
func (s *Service) publish(ctx context.Context, key string, payload any) {
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish event",
			zap.String("routing_key", key),
			zap.Error(err),
		)
	}
}
