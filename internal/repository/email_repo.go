package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"commandmail/internal/apperr"
	"commandmail/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const emailColumns = `id, sender, subject, body, "timestamp", category, action_items, processed`

type EmailRepository struct {
	db  DBTX
	now func() time.Time
}

func NewEmailRepository(db DBTX) *EmailRepository {
	return &EmailRepository{db: db, now: time.Now}
}

func scanEmail(row pgx.Row) (*model.Email, error) {
	var e model.Email
	err := row.Scan(
		&e.ID,
		&e.Sender,
		&e.Subject,
		&e.Body,
		&e.Timestamp,
		&e.Category,
		&e.ActionItems,
		&e.Processed,
	)
	if err != nil {
		return nil, err
	}
	if e.ActionItems == nil {
		e.ActionItems = []model.ActionItem{}
	}
	return &e, nil
}

func collectEmails(rows pgx.Rows) ([]model.Email, error) {
	defer rows.Close()
	emails := []model.Email{}
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, *e)
	}
	return emails, rows.Err()
}

func notFoundEmail(err error, id uuid.UUID) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Email", id.String())
	}
	return err
}

// ReplaceAll deletes every email and inserts seed in one transaction.
// Missing ids, timestamps and categories are filled in on the returned copies.
func (r *EmailRepository) ReplaceAll(ctx context.Context, seed []model.Email) ([]model.Email, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `DELETE FROM emails`); err != nil {
		return nil, fmt.Errorf("clear emails: %w", err)
	}

	query := `
        INSERT INTO emails (` + emailColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	out := make([]model.Email, 0, len(seed))
	for _, e := range seed {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = r.now()
		}
		if e.Category == "" {
			e.Category = model.CategoryUncategorized
		}
		if e.ActionItems == nil {
			e.ActionItems = []model.ActionItem{}
		}
		_, err := tx.Exec(ctx, query,
			e.ID,
			e.Sender,
			e.Subject,
			e.Body,
			e.Timestamp,
			e.Category,
			e.ActionItems,
			e.Processed,
		)
		if err != nil {
			return nil, fmt.Errorf("insert email %q: %w", e.Subject, err)
		}
		out = append(out, e)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (r *EmailRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE id = $1`
	e, err := scanEmail(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundEmail(err, id)
	}
	return e, nil
}

// FindByIDs returns the emails that still exist among ids, keyed by id.
func (r *EmailRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Email, error) {
	found := make(map[uuid.UUID]model.Email, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	emails, err := collectEmails(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range emails {
		found[e.ID] = e
	}
	return found, nil
}

// List returns emails matching f, newest first.
func (r *EmailRepository) List(ctx context.Context, f model.EmailFilter) ([]model.Email, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Categories) > 0 {
		cats := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			cats[i] = string(c)
		}
		args = append(args, cats)
		where = append(where, fmt.Sprintf("category = ANY($%d)", len(args)))
	}
	if f.Processed != nil {
		args = append(args, *f.Processed)
		where = append(where, fmt.Sprintf("processed = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + emailColumns + ` FROM emails`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(` ORDER BY "timestamp" DESC`)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	return collectEmails(rows)
}

// SaveProcessing stores the processor outcome and marks the email processed.
func (r *EmailRepository) SaveProcessing(ctx context.Context, id uuid.UUID, category model.Category, items []model.ActionItem) (*model.Email, error) {
	if items == nil {
		items = []model.ActionItem{}
	}
	query := `
        UPDATE emails
        SET category = $2, action_items = $3, processed = TRUE
        WHERE id = $1
        RETURNING ` + emailColumns
	e, err := scanEmail(r.db.QueryRow(ctx, query, id, category, items))
	if err != nil {
		return nil, notFoundEmail(err, id)
	}
	return e, nil
}

// ToggleActionItem flips the item at index under a row lock. An out-of-range
// index rolls back without writing.
func (r *EmailRepository) ToggleActionItem(ctx context.Context, id uuid.UUID, index int) (*model.Email, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer rollback(ctx, tx)

	var items []model.ActionItem
	err = tx.QueryRow(ctx, `SELECT action_items FROM emails WHERE id = $1 FOR UPDATE`, id).Scan(&items)
	if err != nil {
		return nil, notFoundEmail(err, id)
	}

	toggled, err := model.ToggleActionItem(items, index, r.now())
	if err != nil {
		return nil, err
	}

	query := `UPDATE emails SET action_items = $2 WHERE id = $1 RETURNING ` + emailColumns
	e, err := scanEmail(tx.QueryRow(ctx, query, id, toggled))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

// Counts tallies totals and per-category processed counts in one pass.
func (r *EmailRepository) Counts(ctx context.Context) (model.CategoryCounts, error) {
	query := `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE processed),
            COUNT(*) FILTER (WHERE NOT processed),
            COUNT(*) FILTER (WHERE processed AND category = 'Important'),
            COUNT(*) FILTER (WHERE processed AND category = 'To-Do'),
            COUNT(*) FILTER (WHERE processed AND category = 'Newsletter'),
            COUNT(*) FILTER (WHERE processed AND category = 'Spam')
        FROM emails
    `
	var c model.CategoryCounts
	err := r.db.QueryRow(ctx, query).Scan(
		&c.Total,
		&c.Processed,
		&c.Unprocessed,
		&c.Important,
		&c.ToDo,
		&c.Newsletter,
		&c.Spam,
	)
	if err != nil {
		return model.CategoryCounts{}, fmt.Errorf("count emails: %w", err)
	}
	return c, nil
}
