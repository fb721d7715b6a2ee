package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tumapply/internal/domain"
)

type AssociationRepository struct {
	q sqlx.ExtContext
}

// associationRow is a document_associations row joined with its document.
type associationRow struct {
	ID                  uuid.UUID  `db:"id"`
	Name                string     `db:"name"`
	Category            string     `db:"category"`
	ProfileUserID       *uuid.UUID `db:"profile_user_id"`
	ApplicationID       *uuid.UUID `db:"application_id"`
	CustomFieldAnswerID *uuid.UUID `db:"custom_field_answer_id"`
	CreatedAt           time.Time  `db:"created_at"`
	DocumentID          string     `db:"document_id"`
	DocumentPath        string     `db:"document_path"`
	DocumentMIMEType    string     `db:"document_mime_type"`
	DocumentSizeBytes   int64      `db:"document_size_bytes"`
	DocumentCreatedAt   time.Time  `db:"document_created_at"`
}

func (row associationRow) toDomain() (domain.DocumentAssociation, error) {
	owner, err := domain.OwnerFromColumns(row.ProfileUserID, row.ApplicationID, row.CustomFieldAnswerID)
	if err != nil {
		return domain.DocumentAssociation{}, fmt.Errorf("association %s: %w", row.ID, err)
	}
	return domain.DocumentAssociation{
		ID:       row.ID,
		Name:     row.Name,
		Category: domain.DocumentCategory(row.Category),
		Owner:    owner,
		Document: domain.Document{
			ID:        row.DocumentID,
			Path:      row.DocumentPath,
			MIMEType:  row.DocumentMIMEType,
			SizeBytes: row.DocumentSizeBytes,
			CreatedAt: row.DocumentCreatedAt,
		},
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *AssociationRepository) selectAssociations() sq.SelectBuilder {
	return psql.Select(
		"a.id", "a.name", "a.category",
		"a.profile_user_id", "a.application_id", "a.custom_field_answer_id", "a.created_at",
		"d.id AS document_id",
		"d.path AS document_path",
		"d.mime_type AS document_mime_type",
		"d.size_bytes AS document_size_bytes",
		"d.created_at AS document_created_at",
	).
		From("document_associations a").
		Join("documents d ON d.id = a.document_id")
}

func ownerCondition(owner domain.OwnerRef) (sq.Eq, error) {
	switch owner.Kind() {
	case domain.OwnerProfile:
		return sq.Eq{"a.profile_user_id": owner.ID()}, nil
	case domain.OwnerApplication:
		return sq.Eq{"a.application_id": owner.ID()}, nil
	case domain.OwnerCustomFieldAnswer:
		return sq.Eq{"a.custom_field_answer_id": owner.ID()}, nil
	default:
		return nil, fmt.Errorf("%w: association owner is not set", domain.ErrInvalidParameter)
	}
}

func (r *AssociationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DocumentAssociation, error) {
	query, args, err := r.selectAssociations().Where(sq.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	var row associationRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, args...); err != nil {
		return nil, notFound(err, "document association", id)
	}
	a, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssociationRepository) ListByOwner(ctx context.Context, owner domain.OwnerRef, categories ...domain.DocumentCategory) ([]domain.DocumentAssociation, error) {
	cond, err := ownerCondition(owner)
	if err != nil {
		return nil, err
	}

	builder := r.selectAssociations().Where(cond).OrderBy("a.seq")
	if len(categories) > 0 {
		names := make([]string, 0, len(categories))
		for _, c := range categories {
			names = append(names, string(c))
		}
		builder = builder.Where(sq.Eq{"a.category": names})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []associationRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list document associations: %w", err)
	}

	out := make([]domain.DocumentAssociation, 0, len(rows))
	for _, row := range rows {
		a, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *AssociationRepository) Create(ctx context.Context, a *domain.DocumentAssociation) error {
	if a.Owner.IsZero() {
		return fmt.Errorf("%w: association owner is not set", domain.ErrInvalidParameter)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	profileUserID, applicationID, answerID := a.Owner.Columns()

	query := `
        INSERT INTO document_associations
            (id, document_id, name, category, profile_user_id, application_id, custom_field_answer_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at`

	err := r.q.QueryRowxContext(ctx, query,
		a.ID,
		a.Document.ID,
		a.Name,
		string(a.Category),
		profileUserID,
		applicationID,
		answerID,
	).Scan(&a.CreatedAt)
	if err != nil {
		switch pqCode(err) {
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: document %s or owner %s", domain.ErrNotFound, a.Document.ID, a.Owner)
		case pqCheckViolation:
			return fmt.Errorf("%w: association must have exactly one owner", domain.ErrInvalidParameter)
		}
		return fmt.Errorf("failed to create document association: %w", err)
	}
	return nil
}

func (r *AssociationRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE document_associations SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename document association: %w", err)
	}
	return expectOneRow(res, "document association", id)
}

func (r *AssociationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM document_associations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document association: %w", err)
	}
	return expectOneRow(res, "document association", id)
}

func (r *AssociationRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := psql.Delete("document_associations").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete document associations: %w", err)
	}
	return nil
}
