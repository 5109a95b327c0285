// Package seed carries the demo inbox and the default prompt texts.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"commandmail/internal/model"
)

//go:embed inbox.json
var inboxJSON []byte

// Inbox decodes the embedded demo inbox. Every call returns fresh values.
func Inbox() ([]model.Email, error) {
	var emails []model.Email
	if err := json.Unmarshal(inboxJSON, &emails); err != nil {
		return nil, fmt.Errorf("decode seed inbox: %w", err)
	}
	for i := range emails {
		emails[i].Category = model.CategoryUncategorized
		emails[i].ActionItems = []model.ActionItem{}
	}
	return emails, nil
}

// DefaultPrompt is one of the templates installed by prompt initialization.
type DefaultPrompt struct {
	Name    model.PromptName
	Content string
}

const categorizationPrompt = `You are an email categorization system. Categorize the following email into EXACTLY ONE category.

Categories:
- Important: Urgent or from key stakeholders
- To-Do: Contains a direct request requiring user action
- Newsletter: Marketing or informational content
- Spam: Unsolicited or suspicious content

Respond with ONLY ONE WORD - the category name. No explanation, no punctuation, just the category.`

const actionItemPrompt = `Extract actionable tasks from the email below. 

Return ONLY a valid JSON array in this exact format:
[{"task": "description of task", "deadline": "date or null"}]

If no tasks exist, return: []

Do not include any markdown formatting, code blocks, or explanations. Only return the JSON array.`

const autoReplyPrompt = `You are drafting a professional email reply.

Instructions:
- If it's a meeting request, ask for an agenda
- Keep tone polite and concise
- Be professional but friendly
- Include appropriate greeting and closing

Draft the complete email reply:`

// DefaultPrompts returns the three built-in templates in a stable order.
func DefaultPrompts() []DefaultPrompt {
	return []DefaultPrompt{
		{Name: model.PromptCategorization, Content: categorizationPrompt},
		{Name: model.PromptActionItem, Content: actionItemPrompt},
		{Name: model.PromptAutoReply, Content: autoReplyPrompt},
	}
}
