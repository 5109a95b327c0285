// Package agent answers free-text questions about the inbox and runs the
// single-purpose model actions (reply drafting, summaries).
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"commandmail/internal/apperr"
	"commandmail/internal/llm"
	"commandmail/internal/model"
	"commandmail/pkg/logger"
	"commandmail/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	assistantPrompt = "You are a helpful email productivity assistant. Provide clear, concise, and actionable responses based on the email data provided. Always be accurate with numbers and counts."
	summarizePrompt = "Summarize the following email in 2-3 concise sentences. Focus on the main points and any action items."
)

type EmailStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Email, error)
	List(ctx context.Context, f model.EmailFilter) ([]model.Email, error)
	Counts(ctx context.Context) (model.CategoryCounts, error)
}

type PromptSource interface {
	FindActive(ctx context.Context, name model.PromptName) (*model.Prompt, error)
}

type Service struct {
	emails  EmailStore
	prompts PromptSource
	llm     llm.Gateway
	routes  []Route
	logger  *zap.Logger
}

func NewService(emails EmailStore, prompts PromptSource, gateway llm.Gateway, logger *zap.Logger) *Service {
	return &Service{
		emails:  emails,
		prompts: prompts,
		llm:     gateway,
		routes:  DefaultRoutes(),
		logger:  logger,
	}
}

type QueryRequest struct {
	Query   string
	EmailID *uuid.UUID
	Context string
}

// Query builds one content block, either from the target email or from the
// first matching route, and makes exactly one model call.
func (s *Service) Query(ctx context.Context, req QueryRequest) (string, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", apperr.Validation("query is required")
	}
	log := logger.WithTrace(ctx, s.logger)

	var (
		content string
		route   string
	)
	if req.EmailID != nil {
		// An unknown id is a 404 instead of a model call with an empty
		// email block.
		email, err := s.emails.FindByID(ctx, *req.EmailID)
		if err != nil {
			return "", err
		}
		content, route = emailContext(email, req.Query), "email"
	} else {
		r := Classify(s.routes, req.Query)
		built, err := r.Build(ctx, s, req.Query)
		if err != nil {
			return "", fmt.Errorf("build %s context: %w", r.Name, err)
		}
		content, route = built, r.Name
	}
	metrics.IncrementQueryRoute(route)
	log.Info("Agent query routed", zap.String("route", route))

	if req.Context != "" {
		content = req.Context + "\n\n" + content
	}
	return s.llm.Complete(ctx, assistantPrompt, content)
}

func emailContext(e *model.Email, query string) string {
	category := string(e.Category)
	if category == "" {
		category = "Not categorized"
	}
	items := ""
	if len(e.ActionItems) > 0 {
		raw, _ := json.Marshal(e.ActionItems)
		items = "Action Items: " + string(raw)
	}
	return fmt.Sprintf("Email Context:\nFrom: %s\nSubject: %s\nBody: %s\nCategory: %s\n%s\n\nUser Query: %s",
		e.Sender, e.Subject, e.Body, category, items, query)
}

type ChatRequest struct {
	Messages []llm.Message
	EmailID  *uuid.UUID
}

// Chat forwards the conversation. With an email id that still resolves, the
// first message gets a one-line email header.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", apperr.Validation("messages must not be empty")
	}
	messages := make([]llm.Message, len(req.Messages))
	copy(messages, req.Messages)

	if req.EmailID != nil {
		email, err := s.emails.FindByID(ctx, *req.EmailID)
		var nf *apperr.NotFoundError
		switch {
		case err == nil:
			header := fmt.Sprintf("\n\n[Email Context - From: %s, Subject: %s]", email.Sender, email.Subject)
			messages[0].Content = header + "\n" + messages[0].Content
		case !errors.As(err, &nf):
			return "", err
		}
	}
	return s.llm.Chat(ctx, messages, llm.ChatOptions{})
}

type OriginalEmail struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
}

type Reply struct {
	Reply         string        `json:"reply"`
	OriginalEmail OriginalEmail `json:"originalEmail"`
}

func emailBlock(e *model.Email) string {
	return fmt.Sprintf("From: %s\nSubject: %s\nBody: %s", e.Sender, e.Subject, e.Body)
}

// GenerateReply drafts a reply with the active autoReply prompt. Custom
// instructions are appended to the system prompt.
func (s *Service) GenerateReply(ctx context.Context, emailID uuid.UUID, instructions string) (*Reply, error) {
	email, err := s.emails.FindByID(ctx, emailID)
	if err != nil {
		return nil, err
	}
	prompt, err := s.prompts.FindActive(ctx, model.PromptAutoReply)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			return nil, apperr.Configuration("Auto-reply prompt not found")
		}
		return nil, err
	}

	system := prompt.Content
	if instructions != "" {
		system += "\n\nAdditional Instructions: " + instructions
	}
	text, err := s.llm.Complete(ctx, system, emailBlock(email))
	if err != nil {
		return nil, err
	}
	return &Reply{
		Reply:         text,
		OriginalEmail: OriginalEmail{Sender: email.Sender, Subject: email.Subject},
	}, nil
}

func (s *Service) Summarize(ctx context.Context, emailID uuid.UUID) (string, error) {
	email, err := s.emails.FindByID(ctx, emailID)
	if err != nil {
		return "", err
	}
	return s.llm.Complete(ctx, summarizePrompt, emailBlock(email))
}

type UrgentSummary struct {
	Summary string        `json:"summary"`
	Count   int           `json:"count"`
	Emails  []model.Email `json:"emails"`
}

// UrgentSummary summarizes processed Important and To-Do emails, listing at
// most ten of them to the model.
func (s *Service) UrgentSummary(ctx context.Context) (*UrgentSummary, error) {
	emails, err := s.emails.List(ctx, processedFilter(urgentCategories, 0))
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return &UrgentSummary{
			Summary: "No urgent or important emails found in your inbox.",
			Emails:  []model.Email{},
		}, nil
	}

	entries := make([]string, 0, listLimit)
	for i, e := range head(emails, listLimit) {
		items := ""
		if len(e.ActionItems) > 0 {
			items = "Action Items: " + taskList(e.ActionItems, false)
		}
		entries = append(entries, fmt.Sprintf("%d. From: %s\n   Subject: %s\n   Category: %s\n   %s",
			i+1, e.Sender, e.Subject, e.Category, items))
	}
	system := fmt.Sprintf("Provide a brief summary of these %d urgent emails. Highlight the most critical items that need immediate attention.", len(emails))
	content := fmt.Sprintf("Total urgent emails: %d\n\nTop 10 urgent emails:\n\n%s", len(emails), strings.Join(entries, "\n\n"))

	summary, err := s.llm.Complete(ctx, system, content)
	if err != nil {
		return nil, err
	}
	return &UrgentSummary{Summary: summary, Count: len(emails), Emails: emails}, nil
}
