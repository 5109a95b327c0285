package model

import (
	"time"

	"github.com/google/uuid"
)

type DraftMetadata struct {
	Category    string       `json:"category,omitempty"`
	ActionItems []ActionItem `json:"actionItems,omitempty"`
}

// Draft is a saved reply. EmailID is a weak reference: the email may be
// deleted (or reloaded) without touching the draft, in which case Email is nil.
type Draft struct {
	ID        uuid.UUID     `json:"id"`
	EmailID   *uuid.UUID    `json:"emailId,omitempty"`
	Subject   string        `json:"subject"`
	Body      string        `json:"body"`
	Metadata  DraftMetadata `json:"metadata"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Email     *Email        `json:"email,omitempty"`
}

// DraftPatch carries partial updates; nil fields are left untouched.
type DraftPatch struct {
	EmailID  *uuid.UUID     `json:"emailId"`
	Subject  *string        `json:"subject"`
	Body     *string        `json:"body"`
	Metadata *DraftMetadata `json:"metadata"`
}
