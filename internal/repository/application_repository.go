package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tumapply/internal/domain"
)

var applicationColumns = withColumns(
	[]string{"id", "applicant_id", "job_id", "state", "applied_at", "desired_start_date", "motivation", "special_skills", "projects"},
	withColumns(personalColumns, "created_at", "updated_at")...,
)

type ApplicationRepository struct {
	q sqlx.ExtContext
}

func (r *ApplicationRepository) selectApplications() sq.SelectBuilder {
	return psql.Select(applicationColumns...).From("applications")
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	return r.getByID(ctx, id, false)
}

func (r *ApplicationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	return r.getByID(ctx, id, true)
}

func (r *ApplicationRepository) getByID(ctx context.Context, id uuid.UUID, lock bool) (*domain.Application, error) {
	query, args, err := r.byIDQuery(id, lock)
	if err != nil {
		return nil, err
	}

	var app domain.Application
	if err := sqlx.GetContext(ctx, r.q, &app, query, args...); err != nil {
		return nil, notFound(err, "application", id)
	}
	return &app, nil
}

func (r *ApplicationRepository) byIDQuery(id uuid.UUID, lock bool) (string, []interface{}, error) {
	b := r.selectApplications().Where(sq.Eq{"id": id})
	if lock {
		b = b.Suffix("FOR UPDATE")
	}
	return b.ToSql()
}

func (r *ApplicationRepository) FindByApplicantAndJob(ctx context.Context, applicantID, jobID uuid.UUID) (*domain.Application, error) {
	query, args, err := r.selectApplications().
		Where(sq.Eq{"applicant_id": applicantID, "job_id": jobID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var app domain.Application
	if err := sqlx.GetContext(ctx, r.q, &app, query, args...); err != nil {
		return nil, notFound(err, "application for job", jobID)
	}
	return &app, nil
}

func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID uuid.UUID) ([]domain.Application, error) {
	query, args, err := r.selectApplications().
		Where(sq.Eq{"applicant_id": applicantID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var apps []domain.Application
	if err := sqlx.SelectContext(ctx, r.q, &apps, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// CreateIfAbsent relies on the unique (applicant_id, job_id) constraint, so
// two concurrent creates for the same pair end with a single row.
func (r *ApplicationRepository) CreateIfAbsent(ctx context.Context, app *domain.Application) (bool, error) {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}

	values := personalValues(app.PersonalData)
	values["id"] = app.ID
	values["applicant_id"] = app.ApplicantID
	values["job_id"] = app.JobID
	values["state"] = app.State
	values["applied_at"] = app.AppliedAt
	values["desired_start_date"] = app.DesiredStartDate
	values["motivation"] = app.Motivation
	values["special_skills"] = app.SpecialSkills
	values["projects"] = app.Projects

	query, args, err := psql.Insert("applications").
		SetMap(values).
		Suffix("ON CONFLICT (applicant_id, job_id) DO NOTHING RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return false, err
	}

	err = r.q.QueryRowxContext(ctx, query, args...).Scan(&app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := r.FindByApplicantAndJob(ctx, app.ApplicantID, app.JobID)
		if err != nil {
			return false, err
		}
		*app = *existing
		return false, nil
	}
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return false, fmt.Errorf("%w: job %s", domain.ErrNotFound, app.JobID)
		}
		return false, fmt.Errorf("failed to create application: %w", err)
	}
	return true, nil
}

func (r *ApplicationRepository) Update(ctx context.Context, app *domain.Application) error {
	query, args, err := psql.Update("applications").
		SetMap(personalValues(app.PersonalData)).
		Set("state", app.State).
		Set("applied_at", app.AppliedAt).
		Set("desired_start_date", app.DesiredStartDate).
		Set("motivation", app.Motivation).
		Set("special_skills", app.SpecialSkills).
		Set("projects", app.Projects).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": app.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return err
	}

	if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&app.UpdatedAt); err != nil {
		return notFound(err, "application", app.ID)
	}
	return nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	return expectOneRow(res, "application", id)
}
