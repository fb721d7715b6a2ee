package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tumapply/internal/domain"
	"tumapply/internal/metrics"
)

// ApplicationService drives applications through their lifecycle and keeps
// their documents.
type ApplicationService struct {
	store       domain.Store
	reconciler  *DocumentReconciler
	permissions *PermissionService
	notifier    domain.Notifier
	uploads     *uploader
	logger      *zap.Logger
	now         func() time.Time
}

func NewApplicationService(
	store domain.Store,
	documents domain.DocumentStore,
	reconciler *DocumentReconciler,
	permissions *PermissionService,
	notifier domain.Notifier,
	maxConcurrentUploads int,
	logger *zap.Logger,
) *ApplicationService {
	return &ApplicationService{
		store:       store,
		reconciler:  reconciler,
		permissions: permissions,
		notifier:    notifier,
		uploads:     newUploader(documents, maxConcurrentUploads, logger),
		logger:      logger,
		now:         time.Now,
	}
}

// Create returns the actor's application for jobID, creating it from the
// profile on first call. created is false when the application already
// existed. Anonymous callers get an unsaved preview.
func (s *ApplicationService) Create(ctx context.Context, jobID uuid.UUID, actor domain.Actor) (app *domain.Application, created bool, err error) {
	if jobID == uuid.Nil {
		return nil, false, fmt.Errorf("%w: job id is required", domain.ErrInvalidParameter)
	}

	if !actor.Authenticated() {
		if _, err := s.store.Repos().Jobs.GetByID(ctx, jobID); err != nil {
			return nil, false, err
		}
		return &domain.Application{JobID: jobID, State: domain.StateSaved}, false, nil
	}

	err = s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if _, err := repos.Jobs.GetByID(ctx, jobID); err != nil {
			return err
		}

		existing, err := repos.Applications.FindByApplicantAndJob(ctx, actor.UserID, jobID)
		if err == nil {
			app = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		profile, err := repos.Profiles.EnsureExists(ctx, actor.UserID)
		if err != nil {
			return err
		}

		candidate := &domain.Application{
			ID:           uuid.New(),
			ApplicantID:  actor.UserID,
			JobID:        jobID,
			State:        domain.StateSaved,
			PersonalData: profile.PersonalData,
		}
		created, err = repos.Applications.CreateIfAbsent(ctx, candidate)
		if err != nil {
			return err
		}
		app = candidate
		if !created {
			return nil
		}

		return s.reconciler.CopyCategories(ctx, repos.Associations,
			domain.ProfileOwner(actor.UserID),
			domain.ApplicationOwner(app.ID),
			domain.ProfileCategories,
		)
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("application opened",
		zap.String("application", app.ID.String()),
		zap.String("job", jobID.String()),
		zap.String("applicant", actor.UserID.String()),
		zap.Bool("created", created),
	)
	return app, created, nil
}

func (s *ApplicationService) Get(ctx context.Context, id uuid.UUID, actor domain.Actor) (*domain.Application, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: application id is required", domain.ErrInvalidParameter)
	}
	app, err := s.store.Repos().Applications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.CheckApplication(actor, app, OperationView); err != nil {
		return nil, err
	}
	return app, nil
}

// ListMine returns the actor's own applications.
func (s *ApplicationService) ListMine(ctx context.Context, actor domain.Actor) ([]domain.Application, error) {
	if err := s.permissions.CheckProfile(actor, actor.UserID); err != nil {
		return nil, err
	}
	return s.store.Repos().Applications.ListByApplicant(ctx, actor.UserID)
}

// Update applies edits and moves the application to edits.State. An empty
// state keeps it a draft.
func (s *ApplicationService) Update(ctx context.Context, id uuid.UUID, edits domain.ApplicationEdits, actor domain.Actor) (*domain.Application, error) {
	action, err := domain.ActionForState(edits.State)
	if err != nil {
		return nil, err
	}
	if action == domain.ActionWithdraw {
		return s.Withdraw(ctx, id, actor)
	}
	return s.transition(ctx, id, action, &edits, actor)
}

func (s *ApplicationService) Withdraw(ctx context.Context, id uuid.UUID, actor domain.Actor) (*domain.Application, error) {
	return s.transition(ctx, id, domain.ActionWithdraw, nil, actor)
}

func (s *ApplicationService) Delete(ctx context.Context, id uuid.UUID, actor domain.Actor) error {
	_, err := s.transition(ctx, id, domain.ActionDelete, nil, actor)
	return err
}

// transition runs one lifecycle step. Everything except notifications
// happens in a single transaction; notifications go out after commit.
func (s *ApplicationService) transition(
	ctx context.Context,
	id uuid.UUID,
	action domain.Action,
	edits *domain.ApplicationEdits,
	actor domain.Actor,
) (*domain.Application, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: application id is required", domain.ErrInvalidParameter)
	}

	var (
		app *domain.Application
		job *domain.Job
		tr  domain.Transition
	)
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		current, err := repos.Applications.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.permissions.CheckApplication(actor, current, OperationEdit); err != nil {
			return err
		}

		tr, err = domain.NextTransition(current.State, action)
		if err != nil {
			return err
		}

		for _, effect := range tr.Effects {
			if err := s.apply(ctx, repos, effect, current, edits); err != nil {
				return fmt.Errorf("%s: %w", effect, err)
			}
		}

		if tr.Has(domain.EffectRemove) {
			app = current
			return nil
		}

		if tr.To != tr.From || tr.Has(domain.EffectApplyEdits) {
			current.State = tr.To
			if err := repos.Applications.Update(ctx, current); err != nil {
				return err
			}
		}

		if tr.Has(domain.EffectNotifyProfessor) {
			job, err = repos.Jobs.GetByID(ctx, current.JobID)
			if err != nil {
				return err
			}
		}

		app = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LifecycleTransitions.WithLabelValues(string(tr.From), string(tr.Action), string(tr.To)).Inc()
	s.logger.Info("application transition",
		zap.String("application", id.String()),
		zap.String("from", string(tr.From)),
		zap.String("action", string(tr.Action)),
		zap.String("to", string(tr.To)),
	)

	s.notify(tr, app, job)

	if tr.Has(domain.EffectRemove) {
		return nil, nil
	}
	return app, nil
}

func (s *ApplicationService) apply(
	ctx context.Context,
	repos domain.Repositories,
	effect domain.Effect,
	app *domain.Application,
	edits *domain.ApplicationEdits,
) error {
	switch effect {
	case domain.EffectApplyEdits:
		if edits != nil {
			edits.ApplyTo(app)
		}

	case domain.EffectRequireUnchanged:
		if edits != nil && edits.Changes(app) {
			return fmt.Errorf("%w: application %s was already sent", domain.ErrOperationNotAllowed, app.ID)
		}

	case domain.EffectStampAppliedAt:
		if app.AppliedAt == nil {
			now := s.now()
			app.AppliedAt = &now
		}

	case domain.EffectSyncProfileData:
		profile, err := repos.Profiles.EnsureExists(ctx, app.ApplicantID)
		if err != nil {
			return err
		}
		profile.PersonalData = app.PersonalData
		return repos.Profiles.Update(ctx, profile)

	case domain.EffectSyncProfileDocuments:
		return s.reconciler.CopyCategories(ctx, repos.Associations,
			domain.ApplicationOwner(app.ID),
			domain.ProfileOwner(app.ApplicantID),
			domain.ProfileCategories,
		)

	case domain.EffectRemove:
		return repos.Applications.Delete(ctx, app.ID)
	}
	return nil
}

func (s *ApplicationService) notify(tr domain.Transition, app *domain.Application, job *domain.Job) {
	for _, effect := range tr.Effects {
		if !effect.Notifies() {
			continue
		}

		event := domain.NotificationEvent{
			ID:            uuid.New(),
			ApplicationID: app.ID,
			JobID:         app.JobID,
			OccurredAt:    s.now(),
		}
		switch effect {
		case domain.EffectNotifyApplicantSent:
			event.Type = domain.EventApplicationSent
			event.RecipientID = app.ApplicantID
		case domain.EffectNotifyProfessor:
			if job == nil {
				continue
			}
			event.Type = domain.EventApplicationReceived
			event.RecipientID = job.SupervisingProfessorID
		case domain.EffectNotifyApplicantWithdrawn:
			event.Type = domain.EventApplicationWithdrawn
			event.RecipientID = app.ApplicantID
		}
		s.notifier.SendAsync(event)
	}
}

// UploadDocuments replaces the application's documents of category with files.
func (s *ApplicationService) UploadDocuments(
	ctx context.Context,
	id uuid.UUID,
	category domain.DocumentCategory,
	files []domain.UploadFile,
	actor domain.Actor,
) ([]domain.DocumentDescriptor, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: application id is required", domain.ErrInvalidParameter)
	}
	if _, _, err := filesForCategory(category, files); err != nil {
		return nil, err
	}
	if err := s.checkUpload(ctx, s.store.Repos(), id, actor, false); err != nil {
		return nil, err
	}

	entries, err := s.uploads.prepare(ctx, category, files, actor.UserID)
	if err != nil {
		return nil, err
	}

	var updated []domain.DocumentAssociation
	err = s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if err := s.checkUpload(ctx, repos, id, actor, true); err != nil {
			return err
		}
		updated, err = s.reconciler.ReplaceAll(ctx, repos.Associations, domain.ApplicationOwner(id), category, entries)
		return err
	})
	if err != nil {
		return nil, err
	}
	return domain.Descriptors(updated), nil
}

// UploadCustomFieldDocuments replaces the files attached to the answer of a
// custom field, creating the answer when needed.
func (s *ApplicationService) UploadCustomFieldDocuments(
	ctx context.Context,
	id, customFieldID uuid.UUID,
	files []domain.UploadFile,
	actor domain.Actor,
) ([]domain.DocumentDescriptor, error) {
	if id == uuid.Nil || customFieldID == uuid.Nil {
		return nil, fmt.Errorf("%w: application and custom field ids are required", domain.ErrInvalidParameter)
	}
	if err := s.checkUpload(ctx, s.store.Repos(), id, actor, false); err != nil {
		return nil, err
	}

	entries, err := s.uploads.upload(ctx, files, actor.UserID)
	if err != nil {
		return nil, err
	}

	var updated []domain.DocumentAssociation
	err = s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if err := s.checkUpload(ctx, repos, id, actor, true); err != nil {
			return err
		}
		answer, err := repos.Answers.GetOrCreate(ctx, id, customFieldID)
		if err != nil {
			return err
		}
		updated, err = s.reconciler.ReplaceAll(ctx, repos.Associations,
			domain.CustomFieldAnswerOwner(answer.ID), domain.CategoryCustom, entries)
		return err
	})
	if err != nil {
		return nil, err
	}
	return domain.Descriptors(updated), nil
}

// ListDocuments returns the application's documents in creation order.
func (s *ApplicationService) ListDocuments(ctx context.Context, id uuid.UUID, actor domain.Actor) ([]domain.DocumentDescriptor, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	associations, err := s.store.Repos().Associations.ListByOwner(ctx, domain.ApplicationOwner(id))
	if err != nil {
		return nil, err
	}
	return domain.Descriptors(associations), nil
}

// checkUpload verifies the application still accepts documents. With lock
// set the row stays locked so a concurrent send waits for the upload.
func (s *ApplicationService) checkUpload(ctx context.Context, repos domain.Repositories, id uuid.UUID, actor domain.Actor, lock bool) error {
	get := repos.Applications.GetByID
	if lock {
		get = repos.Applications.GetByIDForUpdate
	}
	app, err := get(ctx, id)
	if err != nil {
		return err
	}
	return s.permissions.CheckApplication(actor, app, OperationUpload)
}
