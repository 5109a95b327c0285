package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commandmail/internal/apperr"
	"commandmail/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const draftColumns = `id, email_id, subject, body, metadata, created_at, updated_at`

type DraftRepository struct {
	db  DBTX
	now func() time.Time
}

func NewDraftRepository(db DBTX) *DraftRepository {
	return &DraftRepository{db: db, now: time.Now}
}

func scanDraft(row pgx.Row) (*model.Draft, error) {
	var d model.Draft
	err := row.Scan(
		&d.ID,
		&d.EmailID,
		&d.Subject,
		&d.Body,
		&d.Metadata,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func notFoundDraft(err error, id uuid.UUID) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Draft", id.String())
	}
	return err
}

// List returns all drafts, newest first.
func (r *DraftRepository) List(ctx context.Context) ([]model.Draft, error) {
	rows, err := r.db.Query(ctx, `SELECT `+draftColumns+` FROM drafts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	drafts := []model.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, *d)
	}
	return drafts, rows.Err()
}

func (r *DraftRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Draft, error) {
	d, err := scanDraft(r.db.QueryRow(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundDraft(err, id)
	}
	return d, nil
}

func (r *DraftRepository) Create(ctx context.Context, d model.Draft) (*model.Draft, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := r.now()
	query := `
        INSERT INTO drafts (` + draftColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $6)
        RETURNING ` + draftColumns
	return scanDraft(r.db.QueryRow(ctx, query, d.ID, d.EmailID, d.Subject, d.Body, d.Metadata, now))
}

// Update applies the non-nil fields of p.
func (r *DraftRepository) Update(ctx context.Context, id uuid.UUID, p model.DraftPatch) (*model.Draft, error) {
	query := `
        UPDATE drafts
        SET email_id = COALESCE($2, email_id),
            subject = COALESCE($3, subject),
            body = COALESCE($4, body),
            metadata = COALESCE($5, metadata),
            updated_at = $6
        WHERE id = $1
        RETURNING ` + draftColumns
	d, err := scanDraft(r.db.QueryRow(ctx, query, id, p.EmailID, p.Subject, p.Body, p.Metadata, r.now()))
	if err != nil {
		return nil, notFoundDraft(err, id)
	}
	return d, nil
}

func (r *DraftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Draft", id.String())
	}
	return nil
}
