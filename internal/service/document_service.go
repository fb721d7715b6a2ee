package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tumapply/internal/domain"
)

// DocumentService works on single associations regardless of their owner.
type DocumentService struct {
	store       domain.Store
	documents   domain.DocumentStore
	reconciler  *DocumentReconciler
	permissions *PermissionService
	logger      *zap.Logger
}

func NewDocumentService(
	store domain.Store,
	documents domain.DocumentStore,
	reconciler *DocumentReconciler,
	permissions *PermissionService,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		store:       store,
		documents:   documents,
		reconciler:  reconciler,
		permissions: permissions,
		logger:      logger,
	}
}

func (s *DocumentService) Rename(ctx context.Context, id uuid.UUID, name string, actor domain.Actor) (*domain.DocumentDescriptor, error) {
	var renamed *domain.DocumentAssociation
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		association, err := s.authorize(ctx, repos, id, actor, OperationRename)
		if err != nil {
			return err
		}
		if err := s.reconciler.Rename(ctx, repos.Associations, id, name); err != nil {
			return err
		}
		renamed, err = repos.Associations.GetByID(ctx, association.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	d := renamed.Descriptor()
	return &d, nil
}

// Delete removes one association. The document content stays, other
// associations may still point at it.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID, actor domain.Actor) error {
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if _, err := s.authorize(ctx, repos, id, actor, OperationDelete); err != nil {
			return err
		}
		return s.reconciler.Delete(ctx, repos.Associations, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("document association deleted", zap.String("association", id.String()))
	return nil
}

// Download returns the association together with the document content.
func (s *DocumentService) Download(ctx context.Context, id uuid.UUID, actor domain.Actor) (*domain.DocumentAssociation, []byte, error) {
	association, err := s.authorize(ctx, s.store.Repos(), id, actor, OperationDownload)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.documents.Download(ctx, association.Document)
	if err != nil {
		return nil, nil, err
	}
	return association, data, nil
}

func (s *DocumentService) authorize(
	ctx context.Context,
	repos domain.Repositories,
	id uuid.UUID,
	actor domain.Actor,
	operation OperationType,
) (*domain.DocumentAssociation, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidParameter)
	}
	association, err := repos.Associations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.CheckAssociation(ctx, repos, actor, association, operation); err != nil {
		return nil, err
	}
	return association, nil
}
