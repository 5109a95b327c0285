package model

import (
	"time"

	"commandmail/internal/apperr"
)

// ToggleActionItem returns a copy of items with the completion flag at index
// flipped. CompletedAt is set to now when completing and cleared otherwise.
// items itself is never modified.
func ToggleActionItem(items []ActionItem, index int, now time.Time) ([]ActionItem, error) {
	if index < 0 || index >= len(items) {
		return nil, apperr.Validation("Invalid action item index")
	}
	out := make([]ActionItem, len(items))
	copy(out, items)
	item := out[index]
	item.Completed = !item.Completed
	if item.Completed {
		t := now
		item.CompletedAt = &t
	} else {
		item.CompletedAt = nil
	}
	out[index] = item
	return out, nil
}
