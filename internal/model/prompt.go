package model

import (
	"time"

	"github.com/google/uuid"
)

type PromptName string

const (
	PromptCategorization PromptName = "categorization"
	PromptActionItem     PromptName = "actionItem"
	PromptAutoReply      PromptName = "autoReply"
)

func (n PromptName) Valid() bool {
	switch n {
	case PromptCategorization, PromptActionItem, PromptAutoReply:
		return true
	}
	return false
}

type Prompt struct {
	ID        uuid.UUID  `json:"id"`
	Name      PromptName `json:"name"`
	Content   string     `json:"content"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// PromptPatch carries partial updates; nil fields are left untouched.
type PromptPatch struct {
	Name     *PromptName `json:"name"`
	Content  *string     `json:"content"`
	IsActive *bool       `json:"isActive"`
}
