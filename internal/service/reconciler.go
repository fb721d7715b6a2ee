package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tumapply/internal/domain"
	"tumapply/internal/metrics"
)

// DocumentReconciler keeps the association set of an owner and category in
// sync with a desired document list. It serves every owner kind the same way:
// the owner is stamped onto each new association and nothing else differs.
type DocumentReconciler struct {
	logger *zap.Logger
}

func NewDocumentReconciler(logger *zap.Logger) *DocumentReconciler {
	return &DocumentReconciler{logger: logger}
}

// Reconcile replaces existing with one fresh association per entry in docs.
// It is a full replace, not a merge: association ids never survive a call.
// Cardinality rules are the caller's business.
func (r *DocumentReconciler) Reconcile(
	ctx context.Context,
	associations domain.AssociationRepository,
	owner domain.OwnerRef,
	category domain.DocumentCategory,
	existing []domain.DocumentAssociation,
	docs []domain.DocumentEntry,
) ([]domain.DocumentAssociation, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidParameter)
	}

	ids := make([]uuid.UUID, 0, len(existing))
	for _, a := range existing {
		if a.Owner != owner || a.Category != category {
			return nil, fmt.Errorf("%w: association %s belongs to %s/%s, not %s/%s",
				domain.ErrInvalidParameter, a.ID, a.Owner, a.Category, owner, category)
		}
		ids = append(ids, a.ID)
	}

	if err := associations.DeleteByIDs(ctx, ids); err != nil {
		return nil, err
	}

	updated := make([]domain.DocumentAssociation, 0, len(docs))
	for _, entry := range docs {
		a := domain.DocumentAssociation{
			ID:       uuid.New(),
			Document: entry.Document,
			Name:     entry.Name,
			Category: category,
			Owner:    owner,
		}
		if err := associations.Create(ctx, &a); err != nil {
			return nil, err
		}
		updated = append(updated, a)
	}

	metrics.DocumentsReconciled.WithLabelValues(string(owner.Kind()), string(category)).Inc()
	r.logger.Debug("documents reconciled",
		zap.Stringer("owner", owner),
		zap.String("category", string(category)),
		zap.Int("removed", len(ids)),
		zap.Int("created", len(updated)),
	)
	return updated, nil
}

// ReplaceAll loads the current set of owner+category and reconciles it with docs.
func (r *DocumentReconciler) ReplaceAll(
	ctx context.Context,
	associations domain.AssociationRepository,
	owner domain.OwnerRef,
	category domain.DocumentCategory,
	docs []domain.DocumentEntry,
) ([]domain.DocumentAssociation, error) {
	existing, err := associations.ListByOwner(ctx, owner, category)
	if err != nil {
		return nil, err
	}
	return r.Reconcile(ctx, associations, owner, category, existing, docs)
}

// CopyCategories makes to's documents equal to from's for every category.
func (r *DocumentReconciler) CopyCategories(
	ctx context.Context,
	associations domain.AssociationRepository,
	from, to domain.OwnerRef,
	categories []domain.DocumentCategory,
) error {
	source, err := associations.ListByOwner(ctx, from, categories...)
	if err != nil {
		return err
	}

	byCategory := make(map[domain.DocumentCategory][]domain.DocumentEntry, len(categories))
	for _, a := range source {
		byCategory[a.Category] = append(byCategory[a.Category], domain.DocumentEntry{Document: a.Document, Name: a.Name})
	}

	for _, category := range categories {
		if _, err := r.ReplaceAll(ctx, associations, to, category, byCategory[category]); err != nil {
			return err
		}
	}
	return nil
}

// Rename changes the display name only.
func (r *DocumentReconciler) Rename(ctx context.Context, associations domain.AssociationRepository, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if id == uuid.Nil || name == "" {
		return fmt.Errorf("%w: association id and name are required", domain.ErrInvalidParameter)
	}
	return associations.Rename(ctx, id, name)
}

// Delete removes a single association. The document itself stays.
func (r *DocumentReconciler) Delete(ctx context.Context, associations domain.AssociationRepository, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: association id is required", domain.ErrInvalidParameter)
	}
	return associations.Delete(ctx, id)
}
