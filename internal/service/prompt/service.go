// Package prompt manages the named prompt templates.
package prompt

import (
	"context"
	"strings"
	"time"

	contractmq "commandmail/contracts/mq"
	"commandmail/internal/apperr"
	"commandmail/internal/model"
	"commandmail/internal/seed"
	"commandmail/pkg/logger"
	"commandmail/pkg/mq"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store interface {
	List(ctx context.Context) ([]model.Prompt, error)
	Upsert(ctx context.Context, name model.PromptName, content string) (*model.Prompt, error)
	InsertIfAbsent(ctx context.Context, name model.PromptName, content string) error
	Update(ctx context.Context, id uuid.UUID, p model.PromptPatch) (*model.Prompt, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	prompts   Store
	publisher mq.EventPublisher
	logger    *zap.Logger
}

func NewService(prompts Store, publisher mq.EventPublisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = mq.NopPublisher{}
	}
	return &Service{prompts: prompts, publisher: publisher, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]model.Prompt, error) {
	return s.prompts.List(ctx)
}

func validateName(name model.PromptName) error {
	if !name.Valid() {
		return apperr.Validation("name must be one of categorization, actionItem, autoReply")
	}
	return nil
}

// Save creates or replaces the prompt with this name and activates it.
func (s *Service) Save(ctx context.Context, name model.PromptName, content string) (*model.Prompt, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("content is required")
	}
	return s.prompts.Upsert(ctx, name, content)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, p model.PromptPatch) (*model.Prompt, error) {
	if p.Name != nil {
		if err := validateName(*p.Name); err != nil {
			return nil, err
		}
	}
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return nil, apperr.Validation("content must not be empty")
	}
	return s.prompts.Update(ctx, id, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.prompts.Delete(ctx, id)
}

// Initialize installs each default template whose name is not stored yet
// and returns every stored prompt.
func (s *Service) Initialize(ctx context.Context) ([]model.Prompt, error) {
	for _, d := range seed.DefaultPrompts() {
		if err := s.prompts.InsertIfAbsent(ctx, d.Name, d.Content); err != nil {
			return nil, err
		}
	}
	prompts, err := s.prompts.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, contractmq.RoutingPromptsInitialized, map[string]any{
		"count":          len(prompts),
		"initialized_at": time.Now(),
	}); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish event", zap.Error(err))
	}
	return prompts, nil
}
