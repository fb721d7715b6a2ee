package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tumapply/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// Store hands out repositories bound either to the pool or to one transaction.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Repos() domain.Repositories {
	return reposFor(s.db)
}

// WithinTx runs fn in a transaction and commits only if fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(repos domain.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(reposFor(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func reposFor(q sqlx.ExtContext) domain.Repositories {
	return domain.Repositories{
		Applications: &ApplicationRepository{q: q},
		Profiles:     &ProfileRepository{q: q},
		Associations: &AssociationRepository{q: q},
		Documents:    &DocumentRepository{q: q},
		Jobs:         &JobRepository{q: q},
		Answers:      &CustomFieldAnswerRepository{q: q},
	}
}

// notFound turns sql.ErrNoRows into domain.ErrNotFound and wraps anything else.
func notFound(err error, what string, id interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %v", domain.ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func expectOneRow(res sql.Result, what string, id interface{}) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %v", domain.ErrNotFound, what, id)
	}
	return nil
}
