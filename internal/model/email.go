package model

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryImportant     Category = "Important"
	CategoryNewsletter    Category = "Newsletter"
	CategorySpam          Category = "Spam"
	CategoryToDo          Category = "To-Do"
	CategoryUncategorized Category = "Uncategorized"
)

// ResolutionOrder is the priority in which category names are searched for
// in a model answer. Uncategorized is the fallback and never matched.
var ResolutionOrder = []Category{
	CategoryImportant,
	CategoryNewsletter,
	CategorySpam,
	CategoryToDo,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryImportant, CategoryNewsletter, CategorySpam, CategoryToDo, CategoryUncategorized:
		return true
	}
	return false
}

type ActionItem struct {
	Task        string     `json:"task"`
	Deadline    *string    `json:"deadline"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type Email struct {
	ID          uuid.UUID    `json:"id"`
	Sender      string       `json:"sender"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Timestamp   time.Time    `json:"timestamp"`
	Category    Category     `json:"category"`
	ActionItems []ActionItem `json:"actionItems"`
	Processed   bool         `json:"processed"`
}

// EmailFilter narrows a listing. Zero values are not applied; Limit 0 means
// no limit. Categories match any-of.
type EmailFilter struct {
	Categories []Category
	Processed  *bool
	Limit      int
}

// CategoryCounts is the per-category tally used by the query router.
type CategoryCounts struct {
	Total       int
	Processed   int
	Unprocessed int
	Important   int
	ToDo        int
	Newsletter  int
	Spam        int
}
