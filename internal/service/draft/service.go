// Package draft stores reply drafts and expands their email reference.
package draft

import (
	"context"
	"strings"

	contractmq "commandmail/contracts/mq"
	"commandmail/internal/apperr"
	"commandmail/internal/model"
	"commandmail/pkg/logger"
	"commandmail/pkg/mq"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store interface {
	List(ctx context.Context) ([]model.Draft, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Draft, error)
	Create(ctx context.Context, d model.Draft) (*model.Draft, error)
	Update(ctx context.Context, id uuid.UUID, p model.DraftPatch) (*model.Draft, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EmailLookup resolves the weak email references.
type EmailLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Email, error)
}

type Service struct {
	drafts    Store
	emails    EmailLookup
	publisher mq.EventPublisher
	logger    *zap.Logger
}

func NewService(drafts Store, emails EmailLookup, publisher mq.EventPublisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = mq.NopPublisher{}
	}
	return &Service{drafts: drafts, emails: emails, publisher: publisher, logger: logger}
}

// expand fills Draft.Email for references that still resolve.
func (s *Service) expand(ctx context.Context, drafts []model.Draft) error {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, d := range drafts {
		if d.EmailID != nil && !seen[*d.EmailID] {
			seen[*d.EmailID] = true
			ids = append(ids, *d.EmailID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	found, err := s.emails.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range drafts {
		if drafts[i].EmailID == nil {
			continue
		}
		if e, ok := found[*drafts[i].EmailID]; ok {
			drafts[i].Email = &e
		}
	}
	return nil
}

func (s *Service) expandOne(ctx context.Context, d *model.Draft) (*model.Draft, error) {
	list := []model.Draft{*d}
	if err := s.expand(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns drafts newest first.
func (s *Service) List(ctx context.Context) ([]model.Draft, error) {
	drafts, err := s.drafts.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.expand(ctx, drafts); err != nil {
		return nil, err
	}
	return drafts, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Draft, error) {
	d, err := s.drafts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.expandOne(ctx, d)
}

func (s *Service) Create(ctx context.Context, d model.Draft) (*model.Draft, error) {
	if strings.TrimSpace(d.Subject) == "" {
		return nil, apperr.Validation("subject is required")
	}
	if strings.TrimSpace(d.Body) == "" {
		return nil, apperr.Validation("body is required")
	}
	created, err := s.drafts.Create(ctx, d)
	if err != nil {
		return nil, err
	}

	payload := contractmq.DraftCreatedPayload{
		DraftID:   created.ID.String(),
		Subject:   created.Subject,
		CreatedAt: created.CreatedAt,
	}
	if created.EmailID != nil {
		payload.EmailID = created.EmailID.String()
	}
	if err := s.publisher.Publish(ctx, contractmq.RoutingDraftCreated, payload); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish event",
			zap.String("routing_key", contractmq.RoutingDraftCreated),
			zap.Error(err),
		)
	}
	return s.expandOne(ctx, created)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, p model.DraftPatch) (*model.Draft, error) {
	if p.Subject != nil && strings.TrimSpace(*p.Subject) == "" {
		return nil, apperr.Validation("subject must not be empty")
	}
	if p.Body != nil && strings.TrimSpace(*p.Body) == "" {
		return nil, apperr.Validation("body must not be empty")
	}
	d, err := s.drafts.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return s.expandOne(ctx, d)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.drafts.Delete(ctx, id)
}
