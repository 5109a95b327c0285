package agent

import (
	"context"
	"fmt"
	"strings"

	"commandmail/internal/model"
)

const (
	listLimit      = 10
	highlightLimit = 5
	dateLayout     = "1/2/2006"
)

var urgentCategories = []model.Category{model.CategoryImportant, model.CategoryToDo}

// Route is one entry of the query decision list. Match receives the
// lower-cased query; Build assembles the content sent to the model.
type Route struct {
	Name  string
	Match func(lower string) bool
	Build func(ctx context.Context, s *Service, query string) (string, error)
}

func containsAny(words ...string) func(string) bool {
	return func(lower string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
}

// DefaultRoutes is evaluated top to bottom; the last entry matches anything.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "count", Match: containsAny("how many", "count"), Build: buildCount},
		{Name: "urgent", Match: containsAny("urgent", "important"), Build: buildUrgent},
		{Name: "unprocessed", Match: containsAny("unprocessed", "not processed"), Build: buildUnprocessed},
		{Name: "todo", Match: containsAny("todo", "action", "task"), Build: buildTodo},
		{Name: "summary", Match: containsAny("summary", "summarize", "overview"), Build: buildSummary},
		{Name: "default", Match: func(string) bool { return true }, Build: buildDefault},
	}
}

// Classify returns the first route whose predicate accepts query.
func Classify(routes []Route, query string) Route {
	lower := strings.ToLower(query)
	for _, r := range routes {
		if r.Match(lower) {
			return r
		}
	}
	return routes[len(routes)-1]
}

func processedFilter(cats []model.Category, limit int) model.EmailFilter {
	processed := true
	return model.EmailFilter{Categories: cats, Processed: &processed, Limit: limit}
}

func buildCount(ctx context.Context, s *Service, query string) (string, error) {
	c, err := s.emails.Counts(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Email Statistics:
- Total emails: %d
- Processed emails: %d
- Unprocessed emails: %d
- Important emails: %d
- To-Do emails: %d
- Newsletter emails: %d
- Spam emails: %d

User Query: %s

Please answer the user's question based on these statistics. Be precise with the numbers.`,
		c.Total, c.Processed, c.Unprocessed, c.Important, c.ToDo, c.Newsletter, c.Spam, query), nil
}

func taskList(items []model.ActionItem, withDeadline bool) string {
	tasks := make([]string, len(items))
	for i, it := range items {
		tasks[i] = it.Task
		if withDeadline && it.Deadline != nil && *it.Deadline != "" {
			tasks[i] += " (Due: " + *it.Deadline + ")"
		}
	}
	return strings.Join(tasks, "; ")
}

func buildUrgent(ctx context.Context, s *Service, query string) (string, error) {
	emails, err := s.emails.List(ctx, processedFilter(urgentCategories, 0))
	if err != nil {
		return "", err
	}
	if len(emails) == 0 {
		return "No urgent or important emails found.\n\nUser Query: " + query, nil
	}

	entries := make([]string, 0, listLimit)
	for i, e := range head(emails, listLimit) {
		items := "No action items"
		if len(e.ActionItems) > 0 {
			items = "Action Items: " + taskList(e.ActionItems, false)
		}
		entries = append(entries, fmt.Sprintf("%d. From: %s\n   Subject: %s\n   Category: %s\n   %s\n   Received: %s",
			i+1, e.Sender, e.Subject, e.Category, items, e.Timestamp.Format(dateLayout)))
	}
	return fmt.Sprintf("Found %d urgent/important emails. Here are the top 10:\n\n%s\n\nUser Query: %s\n\nPlease provide a helpful response based on these emails.",
		len(emails), strings.Join(entries, "\n\n"), query), nil
}

func buildUnprocessed(ctx context.Context, s *Service, query string) (string, error) {
	unprocessed := false
	emails, err := s.emails.List(ctx, model.EmailFilter{Processed: &unprocessed})
	if err != nil {
		return "", err
	}
	if len(emails) == 0 {
		return "No unprocessed emails found. All emails have been processed.\n\nUser Query: " + query, nil
	}

	entries := make([]string, 0, listLimit)
	for i, e := range head(emails, listLimit) {
		entries = append(entries, fmt.Sprintf("%d. From: %s\n   Subject: %s\n   Received: %s",
			i+1, e.Sender, e.Subject, e.Timestamp.Format(dateLayout)))
	}
	return fmt.Sprintf("You have %d unprocessed emails. Here are the first 10:\n\n%s\n\nUser Query: %s\n\nPlease provide a helpful response.",
		len(emails), strings.Join(entries, "\n\n"), query), nil
}

func buildTodo(ctx context.Context, s *Service, query string) (string, error) {
	emails, err := s.emails.List(ctx, processedFilter([]model.Category{model.CategoryToDo}, 0))
	if err != nil {
		return "", err
	}
	if len(emails) == 0 {
		return "No To-Do emails found.\n\nUser Query: " + query, nil
	}

	entries := make([]string, 0, listLimit)
	for i, e := range head(emails, listLimit) {
		items := "No action items extracted"
		if len(e.ActionItems) > 0 {
			items = "Action Items: " + taskList(e.ActionItems, true)
		}
		entries = append(entries, fmt.Sprintf("%d. From: %s\n   Subject: %s\n   %s", i+1, e.Sender, e.Subject, items))
	}
	return fmt.Sprintf("Found %d To-Do emails. Here are the details:\n\n%s\n\nUser Query: %s\n\nPlease summarize the action items and priorities.",
		len(emails), strings.Join(entries, "\n\n"), query), nil
}

func buildSummary(ctx context.Context, s *Service, query string) (string, error) {
	c, err := s.emails.Counts(ctx)
	if err != nil {
		return "", err
	}
	recent, err := s.emails.List(ctx, processedFilter(urgentCategories, highlightLimit))
	if err != nil {
		return "", err
	}

	lines := make([]string, len(recent))
	for i, e := range recent {
		lines[i] = fmt.Sprintf("%d. %s (from %s) - %s", i+1, e.Subject, e.Sender, e.Category)
	}
	return fmt.Sprintf(`Inbox Overview:
- Total emails: %d
- Processed: %d
- Unprocessed: %d
- Important: %d
- To-Do: %d
- Newsletters: %d

Recent Important Emails:
%s

User Query: %s

Please provide a helpful summary of the inbox status.`,
		c.Total, c.Processed, c.Unprocessed, c.Important, c.ToDo, c.Newsletter, strings.Join(lines, "\n"), query), nil
}

func buildDefault(ctx context.Context, s *Service, query string) (string, error) {
	recent, err := s.emails.List(ctx, processedFilter(nil, highlightLimit))
	if err != nil {
		return "", err
	}
	if len(recent) == 0 {
		return query, nil
	}

	lines := make([]string, len(recent))
	for i, e := range recent {
		lines[i] = fmt.Sprintf("%d. From: %s, Subject: %s, Category: %s", i+1, e.Sender, e.Subject, e.Category)
	}
	return fmt.Sprintf("Recent emails in inbox:\n%s\n\nUser Query: %s", strings.Join(lines, "\n"), query), nil
}

func head(emails []model.Email, n int) []model.Email {
	if len(emails) > n {
		return emails[:n]
	}
	return emails
}
