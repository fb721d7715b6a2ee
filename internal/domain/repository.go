package domain

import (
	"context"

	"github.com/google/uuid"
)

type ApplicationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Application, error)
	// GetByIDForUpdate reads the application and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Application, error)
	FindByApplicantAndJob(ctx context.Context, applicantID, jobID uuid.UUID) (*Application, error)
	ListByApplicant(ctx context.Context, applicantID uuid.UUID) ([]Application, error)
	// CreateIfAbsent inserts app unless the (applicant, job) pair already has
	// an application. In that case app is overwritten with the stored row and
	// created is false.
	CreateIfAbsent(ctx context.Context, app *Application) (created bool, err error)
	Update(ctx context.Context, app *Application) error
	// Delete removes the application together with its answers and associations.
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*ApplicantProfile, error)
	// EnsureExists returns the profile of userID, creating an empty one first if needed.
	EnsureExists(ctx context.Context, userID uuid.UUID) (*ApplicantProfile, error)
	Update(ctx context.Context, profile *ApplicantProfile) error
}

type AssociationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*DocumentAssociation, error)
	// ListByOwner returns the owner's associations in creation order, limited
	// to categories when any are given.
	ListByOwner(ctx context.Context, owner OwnerRef, categories ...DocumentCategory) ([]DocumentAssociation, error)
	Create(ctx context.Context, association *DocumentAssociation) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
}

type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*Document, error)
	// CreateIfAbsent stores doc unless a document with the same hash exists.
	CreateIfAbsent(ctx context.Context, doc *Document) error
}

type JobRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
}

type CustomFieldAnswerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CustomFieldAnswer, error)
	GetOrCreate(ctx context.Context, applicationID, customFieldID uuid.UUID) (*CustomFieldAnswer, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Applications ApplicationRepository
	Profiles     ProfileRepository
	Associations AssociationRepository
	Documents    DocumentRepository
	Jobs         JobRepository
	Answers      CustomFieldAnswerRepository
}

// Store hands out repositories. Everything done inside WithinTx commits or
// rolls back as a whole.
type Store interface {
	Repos() Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

// DocumentStore keeps document content. It is content-addressed.
type DocumentStore interface {
	Upload(ctx context.Context, data []byte, meta UploadMeta) (*Document, error)
	Download(ctx context.Context, doc Document) ([]byte, error)
}

// Notifier hands lifecycle events to delivery without waiting for it.
type Notifier interface {
	SendAsync(event NotificationEvent)
}
