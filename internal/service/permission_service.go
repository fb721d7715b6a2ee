package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tumapply/internal/domain"
)

// OperationType is what an actor wants to do with a resource.
type OperationType string

const (
	OperationView     OperationType = "view"
	OperationDownload OperationType = "download"
	OperationEdit     OperationType = "edit"
	OperationUpload   OperationType = "upload"
	OperationRename   OperationType = "rename"
	OperationDelete   OperationType = "delete"
)

// PermissionService decides whether an actor may touch applications, profiles
// and document associations.
type PermissionService struct{}

func NewPermissionService() *PermissionService {
	return &PermissionService{}
}

// changesDocuments reports whether the operation edits an application's
// document set, which is only allowed while the application is a draft.
func changesDocuments(operation OperationType) bool {
	switch operation {
	case OperationUpload, OperationRename, OperationDelete:
		return true
	default:
		return false
	}
}

// CheckProfile allows the profile's user and admins.
func (s *PermissionService) CheckProfile(actor domain.Actor, userID uuid.UUID) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: authentication required", domain.ErrForbidden)
	}
	if !actor.Owns(userID) {
		return fmt.Errorf("%w: profile belongs to another user", domain.ErrForbidden)
	}
	return nil
}

// CheckApplication allows the applicant and admins. Document changes on an
// application that left SAVED are rejected for everyone.
func (s *PermissionService) CheckApplication(actor domain.Actor, app *domain.Application, operation OperationType) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: authentication required", domain.ErrForbidden)
	}
	if !actor.Owns(app.ApplicantID) {
		return fmt.Errorf("%w: application %s belongs to another applicant", domain.ErrForbidden, app.ID)
	}
	if changesDocuments(operation) && app.State != domain.StateSaved {
		return fmt.Errorf("%w: documents of a %s application cannot be changed", domain.ErrOperationNotAllowed, app.State)
	}
	return nil
}

// CheckAssociation resolves the owner of an association down to a user and
// applies the matching profile or application rule.
func (s *PermissionService) CheckAssociation(
	ctx context.Context,
	repos domain.Repositories,
	actor domain.Actor,
	association *domain.DocumentAssociation,
	operation OperationType,
) error {
	owner := association.Owner
	switch owner.Kind() {
	case domain.OwnerProfile:
		return s.CheckProfile(actor, owner.ID())

	case domain.OwnerApplication:
		app, err := repos.Applications.GetByID(ctx, owner.ID())
		if err != nil {
			return err
		}
		return s.CheckApplication(actor, app, operation)

	case domain.OwnerCustomFieldAnswer:
		answer, err := repos.Answers.GetByID(ctx, owner.ID())
		if err != nil {
			return err
		}
		app, err := repos.Applications.GetByID(ctx, answer.ApplicationID)
		if err != nil {
			return err
		}
		return s.CheckApplication(actor, app, operation)

	default:
		return fmt.Errorf("%w: unsupported owner kind %q", domain.ErrUnsupported, owner.Kind())
	}
}
