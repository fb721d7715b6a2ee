package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tumapply/internal/domain"
)

var profileColumns = withColumns([]string{"user_id"}, withColumns(personalColumns, "created_at", "updated_at")...)

type ProfileRepository struct {
	q sqlx.ExtContext
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.ApplicantProfile, error) {
	query, args, err := psql.Select(profileColumns...).
		From("applicant_profiles").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var profile domain.ApplicantProfile
	if err := sqlx.GetContext(ctx, r.q, &profile, query, args...); err != nil {
		return nil, notFound(err, "applicant profile", userID)
	}
	return &profile, nil
}

// EnsureExists is insert-or-ignore on the primary key, so concurrent first
// requests of the same user cannot create two profiles.
func (r *ProfileRepository) EnsureExists(ctx context.Context, userID uuid.UUID) (*domain.ApplicantProfile, error) {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO applicant_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create applicant profile: %w", err)
	}
	return r.GetByUserID(ctx, userID)
}

func (r *ProfileRepository) Update(ctx context.Context, profile *domain.ApplicantProfile) error {
	query, args, err := psql.Update("applicant_profiles").
		SetMap(personalValues(profile.PersonalData)).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"user_id": profile.UserID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return err
	}

	if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&profile.UpdatedAt); err != nil {
		return notFound(err, "applicant profile", profile.UserID)
	}
	return nil
}
