package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tumapply/internal/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store        *memStore
	blobs        *memBlobs
	notifier     *recordingNotifier
	documents    *BlobDocumentStore
	reconciler   *DocumentReconciler
	applications *ApplicationService
	profiles     *ProfileService
	docs         *DocumentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	store := newMemStore()
	blobs := newMemBlobs()
	notifier := &recordingNotifier{}
	documents := NewBlobDocumentStore(blobs, store, 1<<20, logger)
	reconciler := NewDocumentReconciler(logger)
	permissions := NewPermissionService()

	applications := NewApplicationService(store, documents, reconciler, permissions, notifier, 2, logger)
	applications.now = func() time.Time { return fixedNow }

	return &testEnv{
		store:        store,
		blobs:        blobs,
		notifier:     notifier,
		documents:    documents,
		reconciler:   reconciler,
		applications: applications,
		profiles:     NewProfileService(store, documents, reconciler, permissions, 2, logger),
		docs:         NewDocumentService(store, documents, reconciler, permissions, logger),
	}
}

func applicant() domain.Actor {
	return domain.Actor{UserID: uuid.New()}
}

func pdf(name, content string) domain.UploadFile {
	return domain.UploadFile{Name: name, MIMEType: "application/pdf", Data: []byte(content)}
}

func (e *testEnv) owned(owner domain.OwnerRef, categories ...domain.DocumentCategory) []domain.DocumentAssociation {
	list, err := e.store.Repos().Associations.ListByOwner(context.Background(), owner, categories...)
	if err != nil {
		panic(err)
	}
	return list
}

func (e *testEnv) allAssociations() []domain.DocumentAssociation {
	var out []domain.DocumentAssociation
	e.store.view(func(st *memState) {
		out = append(out, st.associations...)
	})
	return out
}

func (e *testEnv) application(t *testing.T, id uuid.UUID) domain.Application {
	t.Helper()
	app, err := e.store.Repos().Applications.GetByID(context.Background(), id)
	require.NoError(t, err)
	return *app
}

func (e *testEnv) profile(t *testing.T, userID uuid.UUID) domain.ApplicantProfile {
	t.Helper()
	p, err := e.store.Repos().Profiles.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return *p
}

// documentIDs returns the document hashes of list, in order.
func documentIDs(list []domain.DocumentAssociation) []string {
	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.Document.ID)
	}
	return ids
}

// names returns the display names of list, in order.
func names(list []domain.DocumentAssociation) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Name)
	}
	return out
}

// seedProfile gives actor a profile with the given personal data and uploads.
func (e *testEnv) seedProfile(t *testing.T, actor domain.Actor, data domain.PersonalData, uploads map[domain.DocumentCategory][]domain.UploadFile) {
	t.Helper()
	ctx := context.Background()

	_, err := e.profiles.Update(ctx, data, actor)
	require.NoError(t, err)
	for _, category := range domain.ProfileCategories {
		files, ok := uploads[category]
		if !ok {
			continue
		}
		_, err := e.profiles.UploadDocuments(ctx, category, files, actor)
		require.NoError(t, err)
	}
}
