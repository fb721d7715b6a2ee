package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tumapply/internal/domain"
)

type DocumentRepository struct {
	q sqlx.ExtContext
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	query := `SELECT id, path, mime_type, size_bytes, created_at FROM documents WHERE id = $1`

	if err := sqlx.GetContext(ctx, r.q, &doc, query, id); err != nil {
		return nil, notFound(err, "document", id)
	}
	return &doc, nil
}

// CreateIfAbsent keeps the first row stored for a content hash and fills doc from it.
func (r *DocumentRepository) CreateIfAbsent(ctx context.Context, doc *domain.Document) error {
	query := `
        INSERT INTO documents (id, path, mime_type, size_bytes)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO NOTHING
        RETURNING created_at`

	err := r.q.QueryRowxContext(ctx, query,
		doc.ID,
		doc.Path,
		doc.MIMEType,
		doc.SizeBytes,
	).Scan(&doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := r.GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		*doc = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

type JobRepository struct {
	q sqlx.ExtContext
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT id, title, supervising_professor_id FROM jobs WHERE id = $1`

	if err := sqlx.GetContext(ctx, r.q, &job, query, id); err != nil {
		return nil, notFound(err, "job", id)
	}
	return &job, nil
}

type CustomFieldAnswerRepository struct {
	q sqlx.ExtContext
}

func (r *CustomFieldAnswerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomFieldAnswer, error) {
	var answer domain.CustomFieldAnswer
	query := `
        SELECT id, application_id, custom_field_id, answer, created_at
        FROM custom_field_answers
        WHERE id = $1`

	if err := sqlx.GetContext(ctx, r.q, &answer, query, id); err != nil {
		return nil, notFound(err, "custom field answer", id)
	}
	return &answer, nil
}

func (r *CustomFieldAnswerRepository) GetOrCreate(ctx context.Context, applicationID, customFieldID uuid.UUID) (*domain.CustomFieldAnswer, error) {
	_, err := r.q.ExecContext(ctx, `
        INSERT INTO custom_field_answers (id, application_id, custom_field_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (application_id, custom_field_id) DO NOTHING`,
		uuid.New(), applicationID, customFieldID)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return nil, fmt.Errorf("%w: application %s", domain.ErrNotFound, applicationID)
		}
		return nil, fmt.Errorf("failed to create custom field answer: %w", err)
	}

	var answer domain.CustomFieldAnswer
	query := `
        SELECT id, application_id, custom_field_id, answer, created_at
        FROM custom_field_answers
        WHERE application_id = $1 AND custom_field_id = $2`

	if err := sqlx.GetContext(ctx, r.q, &answer, query, applicationID, customFieldID); err != nil {
		return nil, notFound(err, "custom field answer for field", customFieldID)
	}
	return &answer, nil
}
