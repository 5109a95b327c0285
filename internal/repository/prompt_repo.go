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

const promptColumns = `id, name, content, is_active, created_at, updated_at`

type PromptRepository struct {
	db  DBTX
	now func() time.Time
}

func NewPromptRepository(db DBTX) *PromptRepository {
	return &PromptRepository{db: db, now: time.Now}
}

func scanPrompt(row pgx.Row) (*model.Prompt, error) {
	var p model.Prompt
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Content,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PromptRepository) List(ctx context.Context) ([]model.Prompt, error) {
	rows, err := r.db.Query(ctx, `SELECT `+promptColumns+` FROM prompts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	prompts := []model.Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, *p)
	}
	return prompts, rows.Err()
}

// FindActive returns the active prompt named name, or a NotFoundError.
func (r *PromptRepository) FindActive(ctx context.Context, name model.PromptName) (*model.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE name = $1 AND is_active`
	p, err := scanPrompt(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Prompt", string(name))
		}
		return nil, err
	}
	return p, nil
}

// Upsert writes content under name and marks it active. UNIQUE(name) keeps
// one row per name.
func (r *PromptRepository) Upsert(ctx context.Context, name model.PromptName, content string) (*model.Prompt, error) {
	now := r.now()
	query := `
        INSERT INTO prompts (` + promptColumns + `)
        VALUES ($1, $2, $3, TRUE, $4, $4)
        ON CONFLICT (name) DO UPDATE
        SET content = EXCLUDED.content, is_active = TRUE, updated_at = EXCLUDED.updated_at
        RETURNING ` + promptColumns
	p, err := scanPrompt(r.db.QueryRow(ctx, query, uuid.New(), name, content, now))
	if err != nil {
		return nil, fmt.Errorf("upsert prompt %s: %w", name, err)
	}
	return p, nil
}

// InsertIfAbsent creates the prompt only when no row with that name exists.
func (r *PromptRepository) InsertIfAbsent(ctx context.Context, name model.PromptName, content string) error {
	query := `
        INSERT INTO prompts (` + promptColumns + `)
        VALUES ($1, $2, $3, TRUE, $4, $4)
        ON CONFLICT (name) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, query, uuid.New(), name, content, r.now()); err != nil {
		return fmt.Errorf("seed prompt %s: %w", name, err)
	}
	return nil
}

// Update applies the non-nil fields of p.
func (r *PromptRepository) Update(ctx context.Context, id uuid.UUID, p model.PromptPatch) (*model.Prompt, error) {
	query := `
        UPDATE prompts
        SET name = COALESCE($2, name),
            content = COALESCE($3, content),
            is_active = COALESCE($4, is_active),
            updated_at = $5
        WHERE id = $1
        RETURNING ` + promptColumns
	out, err := scanPrompt(r.db.QueryRow(ctx, query, id, p.Name, p.Content, p.IsActive, r.now()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Prompt", id.String())
		}
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("a prompt with that name already exists")
		}
		return nil, err
	}
	return out, nil
}

func (r *PromptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Prompt", id.String())
	}
	return nil
}
