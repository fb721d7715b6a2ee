package service

import (
	"context"

	"go.uber.org/zap"

	"tumapply/internal/domain"
)

// ProfileService serves the applicant's own profile. A profile is created
// empty the first time it is needed.
type ProfileService struct {
	store       domain.Store
	reconciler  *DocumentReconciler
	permissions *PermissionService
	uploads     *uploader
	logger      *zap.Logger
}

func NewProfileService(
	store domain.Store,
	documents domain.DocumentStore,
	reconciler *DocumentReconciler,
	permissions *PermissionService,
	maxConcurrentUploads int,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		store:       store,
		reconciler:  reconciler,
		permissions: permissions,
		uploads:     newUploader(documents, maxConcurrentUploads, logger),
		logger:      logger,
	}
}

func (s *ProfileService) Get(ctx context.Context, actor domain.Actor) (*domain.ApplicantProfile, error) {
	if err := s.permissions.CheckProfile(actor, actor.UserID); err != nil {
		return nil, err
	}
	return s.store.Repos().Profiles.EnsureExists(ctx, actor.UserID)
}

// Update overwrites the profile's personal data. Existing applications keep
// their own copies.
func (s *ProfileService) Update(ctx context.Context, data domain.PersonalData, actor domain.Actor) (*domain.ApplicantProfile, error) {
	if err := s.permissions.CheckProfile(actor, actor.UserID); err != nil {
		return nil, err
	}

	var profile *domain.ApplicantProfile
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		var err error
		profile, err = repos.Profiles.EnsureExists(ctx, actor.UserID)
		if err != nil {
			return err
		}
		profile.PersonalData = data
		return repos.Profiles.Update(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UploadDocuments replaces the profile's documents of category with files.
func (s *ProfileService) UploadDocuments(
	ctx context.Context,
	category domain.DocumentCategory,
	files []domain.UploadFile,
	actor domain.Actor,
) ([]domain.DocumentDescriptor, error) {
	if err := s.permissions.CheckProfile(actor, actor.UserID); err != nil {
		return nil, err
	}

	entries, err := s.uploads.prepare(ctx, category, files, actor.UserID)
	if err != nil {
		return nil, err
	}

	var updated []domain.DocumentAssociation
	err = s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if _, err := repos.Profiles.EnsureExists(ctx, actor.UserID); err != nil {
			return err
		}
		updated, err = s.reconciler.ReplaceAll(ctx, repos.Associations, domain.ProfileOwner(actor.UserID), category, entries)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile documents replaced",
		zap.String("user", actor.UserID.String()),
		zap.String("category", string(category)),
		zap.Int("count", len(updated)),
	)
	return domain.Descriptors(updated), nil
}

func (s *ProfileService) ListDocuments(ctx context.Context, actor domain.Actor) ([]domain.DocumentDescriptor, error) {
	if err := s.permissions.CheckProfile(actor, actor.UserID); err != nil {
		return nil, err
	}
	associations, err := s.store.Repos().Associations.ListByOwner(ctx, domain.ProfileOwner(actor.UserID))
	if err != nil {
		return nil, err
	}
	return domain.Descriptors(associations), nil
}
