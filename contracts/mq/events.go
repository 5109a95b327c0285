package mq

import "time"

// Routing keys published on the events exchange.
const (
	RoutingEmailProcessed     = "email.processed"
	RoutingActionItemToggled  = "action_item.toggled"
	RoutingDraftCreated       = "draft.created"
	RoutingInboxLoaded        = "inbox.loaded"
	RoutingPromptsInitialized = "prompts.initialized"
)

// EmailProcessedPayload 邮件处理完成事件
type EmailProcessedPayload struct {
	EmailID     string    `json:"email_id"`
	Category    string    `json:"category"`
	ActionItems int       `json:"action_items"`
	ProcessedAt time.Time `json:"processed_at"`
}

type ActionItemToggledPayload struct {
	EmailID   string    `json:"email_id"`
	Index     int       `json:"index"`
	Completed bool      `json:"completed"`
	ToggledAt time.Time `json:"toggled_at"`
}

type DraftCreatedPayload struct {
	DraftID   string    `json:"draft_id"`
	EmailID   string    `json:"email_id,omitempty"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
}

type InboxLoadedPayload struct {
	Count    int       `json:"count"`
	LoadedAt time.Time `json:"loaded_at"`
}
