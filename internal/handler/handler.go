// Package handler holds the gin handlers. Handlers report failures with
// c.Error and leave the response to the error middleware.
package handler

import (
	"context"

	"commandmail/internal/apperr"
	"commandmail/internal/llm"
	"commandmail/internal/model"
	"commandmail/internal/service/agent"
	"commandmail/internal/service/email"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EmailService interface {
	Load(ctx context.Context) ([]model.Email, error)
	List(ctx context.Context, f model.EmailFilter) ([]model.Email, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Email, error)
	Process(ctx context.Context, id uuid.UUID) (*model.Email, error)
	ProcessAll(ctx context.Context) (*email.BatchOutcome, error)
	ToggleActionItem(ctx context.Context, id uuid.UUID, index int) (*model.Email, error)
}

type AgentService interface {
	Query(ctx context.Context, req agent.QueryRequest) (string, error)
	Chat(ctx context.Context, req agent.ChatRequest) (string, error)
	GenerateReply(ctx context.Context, emailID uuid.UUID, instructions string) (*agent.Reply, error)
	Summarize(ctx context.Context, emailID uuid.UUID) (string, error)
	UrgentSummary(ctx context.Context) (*agent.UrgentSummary, error)
}

type PromptService interface {
	List(ctx context.Context) ([]model.Prompt, error)
	Save(ctx context.Context, name model.PromptName, content string) (*model.Prompt, error)
	Update(ctx context.Context, id uuid.UUID, p model.PromptPatch) (*model.Prompt, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Initialize(ctx context.Context) ([]model.Prompt, error)
}

type DraftService interface {
	List(ctx context.Context) ([]model.Draft, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Draft, error)
	Create(ctx context.Context, d model.Draft) (*model.Draft, error)
	Update(ctx context.Context, id uuid.UUID, p model.DraftPatch) (*model.Draft, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// parseID reads a uuid path parameter. A malformed id cannot name a stored
// record, so it is reported as not found.
func parseID(c *gin.Context, param, entity string) (uuid.UUID, error) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.NotFound(entity, raw)
	}
	return id, nil
}

// optionalID parses an optional body id; empty means absent.
func optionalID(raw, entity string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.NotFound(entity, raw)
	}
	return &id, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

// messageDTO mirrors llm.Message with request validation tags.
type messageDTO struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}

func toMessages(in []messageDTO) []llm.Message {
	out := make([]llm.Message, len(in))
	for i, m := range in {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
