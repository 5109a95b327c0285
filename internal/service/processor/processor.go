// Package processor turns one email into a category and action items, and
// runs that over a list with a pause between model calls.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"commandmail/internal/apperr"
	"commandmail/internal/llm"
	"commandmail/internal/model"
	"commandmail/pkg/logger"
	"commandmail/pkg/metrics"

	"go.uber.org/zap"
)

const fallbackTaskLen = 200

var fenceRe = regexp.MustCompile("```json\\n?|```\\n?")

// PromptSource looks up the active template for a prompt name.
type PromptSource interface {
	FindActive(ctx context.Context, name model.PromptName) (*model.Prompt, error)
}

type Result struct {
	Category    model.Category     `json:"category"`
	ActionItems []model.ActionItem `json:"actionItems"`
}

type Processor struct {
	prompts PromptSource
	llm     llm.Gateway
	logger  *zap.Logger
}

func NewProcessor(prompts PromptSource, gateway llm.Gateway, logger *zap.Logger) *Processor {
	return &Processor{prompts: prompts, llm: gateway, logger: logger}
}

// Process categorizes email and extracts its action items with two
// independent model calls. Nothing is persisted.
func (p *Processor) Process(ctx context.Context, email model.Email) (Result, error) {
	res, err := p.process(ctx, email)
	if err != nil {
		metrics.IncrementEmailProcessed("failed")
		return Result{}, err
	}
	metrics.IncrementEmailProcessed("success")
	return res, nil
}

func (p *Processor) process(ctx context.Context, email model.Email) (Result, error) {
	log := logger.WithTrace(ctx, p.logger)

	catPrompt, err := p.activePrompt(ctx, model.PromptCategorization)
	if err != nil {
		return Result{}, err
	}
	itemPrompt, err := p.activePrompt(ctx, model.PromptActionItem)
	if err != nil {
		return Result{}, err
	}

	content := fmt.Sprintf("Subject: %s\n\nFrom: %s\n\nBody: %s", email.Subject, email.Sender, email.Body)
	log.Info("Processing email", zap.String("email_id", email.ID.String()), zap.String("subject", email.Subject))

	catText, err := p.llm.Complete(ctx, catPrompt.Content, content)
	if err != nil {
		return Result{}, err
	}
	category := ResolveCategory(catText)

	itemText, err := p.llm.Complete(ctx, itemPrompt.Content, content)
	if err != nil {
		return Result{}, err
	}
	items := ParseActionItems(itemText)

	log.Info("Email processed",
		zap.String("email_id", email.ID.String()),
		zap.String("category", string(category)),
		zap.Int("action_items", len(items)),
	)
	return Result{Category: category, ActionItems: items}, nil
}

func (p *Processor) activePrompt(ctx context.Context, name model.PromptName) (*model.Prompt, error) {
	prompt, err := p.prompts.FindActive(ctx, name)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			return nil, apperr.Configuration("Required prompts not found. Please initialize prompts first.")
		}
		return nil, err
	}
	return prompt, nil
}

// ResolveCategory returns the first category, in declaration order, whose
// name appears case-insensitively in text. Uncategorized when none does.
func ResolveCategory(text string) model.Category {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, c := range model.ResolutionOrder {
		if strings.Contains(lower, strings.ToLower(string(c))) {
			return c
		}
	}
	return model.CategoryUncategorized
}

// ParseActionItems decodes a model answer into action items. Code fences are
// stripped first; a bare object is wrapped; items without a task are dropped.
// Unparseable text mentioning a task or action becomes a single item holding
// its first 200 characters.
func ParseActionItems(text string) []model.ActionItem {
	clean := fenceRe.ReplaceAllString(strings.TrimSpace(text), "")

	var parsed any
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return fallbackActionItems(text)
	}

	var raw []any
	switch v := parsed.(type) {
	case []any:
		raw = v
	default:
		raw = []any{v}
	}

	items := []model.ActionItem{}
	for _, r := range raw {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}
		task, _ := obj["task"].(string)
		if task == "" {
			continue
		}
		item := model.ActionItem{Task: task}
		if d, ok := obj["deadline"].(string); ok {
			item.Deadline = &d
		}
		items = append(items, item)
	}
	return items
}

func fallbackActionItems(text string) []model.ActionItem {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "task") && !strings.Contains(lower, "action") {
		return []model.ActionItem{}
	}
	runes := []rune(text)
	if len(runes) > fallbackTaskLen {
		runes = runes[:fallbackTaskLen]
	}
	return []model.ActionItem{{Task: string(runes)}}
}
