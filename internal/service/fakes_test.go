package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tumapply/internal/domain"
	"tumapply/internal/service/s3"
)

type memState struct {
	jobs         map[uuid.UUID]domain.Job
	profiles     map[uuid.UUID]domain.ApplicantProfile
	applications map[uuid.UUID]domain.Application
	answers      map[uuid.UUID]domain.CustomFieldAnswer
	documents    map[string]domain.Document
	associations []domain.DocumentAssociation
}

func newMemState() *memState {
	return &memState{
		jobs:         map[uuid.UUID]domain.Job{},
		profiles:     map[uuid.UUID]domain.ApplicantProfile{},
		applications: map[uuid.UUID]domain.Application{},
		answers:      map[uuid.UUID]domain.CustomFieldAnswer{},
		documents:    map[string]domain.Document{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.answers {
		c.answers[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	c.associations = append([]domain.DocumentAssociation(nil), s.associations...)
	return c
}

// memStore is an in-memory domain.Store. Transactions are serialized and
// roll back by restoring a snapshot of the state.
type memStore struct {
	mu    sync.Mutex
	state *memState
	clock time.Time
	fail  map[string]error

	// lockedReads counts GetByIDForUpdate calls.
	lockedReads int
	// beforeInsert runs inside Applications.CreateIfAbsent ahead of the
	// conflict check, the way another transaction can commit between a
	// lookup and an insert.
	beforeInsert func(st *memState)
}

func newMemStore() *memStore {
	return &memStore{
		state: newMemState(),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		fail:  map[string]error{},
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// failOn makes every later call of op return err.
func (m *memStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

func (m *memStore) Repos() domain.Repositories {
	return m.repos(true)
}

func (m *memStore) WithinTx(_ context.Context, fn func(repos domain.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	backup := m.state.clone()
	if err := fn(m.repos(false)); err != nil {
		m.state = backup
		return err
	}
	return nil
}

func (m *memStore) repos(autoLock bool) domain.Repositories {
	tx := memTx{store: m, autoLock: autoLock}
	return domain.Repositories{
		Applications: memApplications{tx},
		Profiles:     memProfiles{tx},
		Associations: memAssociations{tx},
		Documents:    memDocuments{tx},
		Jobs:         memJobs{tx},
		Answers:      memAnswers{tx},
	}
}

// view runs fn against the state without any transaction.
func (m *memStore) view(fn func(st *memState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.state)
}

func (m *memStore) addJob(professorID uuid.UUID) domain.Job {
	job := domain.Job{ID: uuid.New(), Title: "Research assistant", SupervisingProfessorID: professorID}
	m.view(func(st *memState) { st.jobs[job.ID] = job })
	return job
}

type memTx struct {
	store    *memStore
	autoLock bool
}

func (t memTx) do(op string, fn func(st *memState) error) error {
	if t.autoLock {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
	}
	if err, ok := t.store.fail[op]; ok {
		return err
	}
	return fn(t.store.state)
}

type memApplications struct{ memTx }

func (r memApplications) GetByID(_ context.Context, id uuid.UUID) (*domain.Application, error) {
	var out *domain.Application
	err := r.do("Applications.GetByID", func(st *memState) error {
		app, ok := st.applications[id]
		if !ok {
			return fmt.Errorf("%w: application %s", domain.ErrNotFound, id)
		}
		out = &app
		return nil
	})
	return out, err
}

// GetByIDForUpdate has nothing more to lock, memStore already serializes
// transactions.
func (r memApplications) GetByIDForUpdate(_ context.Context, id uuid.UUID) (*domain.Application, error) {
	var out *domain.Application
	err := r.do("Applications.GetByIDForUpdate", func(st *memState) error {
		app, ok := st.applications[id]
		if !ok {
			return fmt.Errorf("%w: application %s", domain.ErrNotFound, id)
		}
		r.store.lockedReads++
		out = &app
		return nil
	})
	return out, err
}

func (r memApplications) FindByApplicantAndJob(_ context.Context, applicantID, jobID uuid.UUID) (*domain.Application, error) {
	var out *domain.Application
	err := r.do("Applications.FindByApplicantAndJob", func(st *memState) error {
		for _, app := range st.applications {
			if app.ApplicantID == applicantID && app.JobID == jobID {
				app := app
				out = &app
				return nil
			}
		}
		return fmt.Errorf("%w: application for job %s", domain.ErrNotFound, jobID)
	})
	return out, err
}

func (r memApplications) ListByApplicant(_ context.Context, applicantID uuid.UUID) ([]domain.Application, error) {
	var out []domain.Application
	err := r.do("Applications.ListByApplicant", func(st *memState) error {
		for _, app := range st.applications {
			if app.ApplicantID == applicantID {
				out = append(out, app)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r memApplications) CreateIfAbsent(_ context.Context, app *domain.Application) (bool, error) {
	created := false
	err := r.do("Applications.CreateIfAbsent", func(st *memState) error {
		if _, ok := st.jobs[app.JobID]; !ok {
			return fmt.Errorf("%w: job %s", domain.ErrNotFound, app.JobID)
		}
		if r.store.beforeInsert != nil {
			r.store.beforeInsert(st)
		}
		for _, existing := range st.applications {
			if existing.ApplicantID == app.ApplicantID && existing.JobID == app.JobID {
				*app = existing
				return nil
			}
		}
		now := r.store.tick()
		app.CreatedAt, app.UpdatedAt = now, now
		st.applications[app.ID] = *app
		created = true
		return nil
	})
	return created, err
}

func (r memApplications) Update(_ context.Context, app *domain.Application) error {
	return r.do("Applications.Update", func(st *memState) error {
		if _, ok := st.applications[app.ID]; !ok {
			return fmt.Errorf("%w: application %s", domain.ErrNotFound, app.ID)
		}
		app.UpdatedAt = r.store.tick()
		st.applications[app.ID] = *app
		return nil
	})
}

func (r memApplications) Delete(_ context.Context, id uuid.UUID) error {
	return r.do("Applications.Delete", func(st *memState) error {
		if _, ok := st.applications[id]; !ok {
			return fmt.Errorf("%w: application %s", domain.ErrNotFound, id)
		}
		delete(st.applications, id)

		owners := map[domain.OwnerRef]bool{domain.ApplicationOwner(id): true}
		for answerID, answer := range st.answers {
			if answer.ApplicationID == id {
				owners[domain.CustomFieldAnswerOwner(answerID)] = true
				delete(st.answers, answerID)
			}
		}

		kept := st.associations[:0]
		for _, a := range st.associations {
			if !owners[a.Owner] {
				kept = append(kept, a)
			}
		}
		st.associations = kept
		return nil
	})
}

type memProfiles struct{ memTx }

func (r memProfiles) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.ApplicantProfile, error) {
	var out *domain.ApplicantProfile
	err := r.do("Profiles.GetByUserID", func(st *memState) error {
		p, ok := st.profiles[userID]
		if !ok {
			return fmt.Errorf("%w: profile %s", domain.ErrNotFound, userID)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memProfiles) EnsureExists(_ context.Context, userID uuid.UUID) (*domain.ApplicantProfile, error) {
	var out *domain.ApplicantProfile
	err := r.do("Profiles.EnsureExists", func(st *memState) error {
		p, ok := st.profiles[userID]
		if !ok {
			now := r.store.tick()
			p = domain.ApplicantProfile{UserID: userID, CreatedAt: now, UpdatedAt: now}
			st.profiles[userID] = p
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memProfiles) Update(_ context.Context, profile *domain.ApplicantProfile) error {
	return r.do("Profiles.Update", func(st *memState) error {
		if _, ok := st.profiles[profile.UserID]; !ok {
			return fmt.Errorf("%w: profile %s", domain.ErrNotFound, profile.UserID)
		}
		profile.UpdatedAt = r.store.tick()
		st.profiles[profile.UserID] = *profile
		return nil
	})
}

type memAssociations struct{ memTx }

func (r memAssociations) GetByID(_ context.Context, id uuid.UUID) (*domain.DocumentAssociation, error) {
	var out *domain.DocumentAssociation
	err := r.do("Associations.GetByID", func(st *memState) error {
		for _, a := range st.associations {
			if a.ID == id {
				a := a
				out = &a
				return nil
			}
		}
		return fmt.Errorf("%w: document association %s", domain.ErrNotFound, id)
	})
	return out, err
}

func (r memAssociations) ListByOwner(_ context.Context, owner domain.OwnerRef, categories ...domain.DocumentCategory) ([]domain.DocumentAssociation, error) {
	var out []domain.DocumentAssociation
	err := r.do("Associations.ListByOwner", func(st *memState) error {
		for _, a := range st.associations {
			if a.Owner != owner {
				continue
			}
			if len(categories) > 0 && !containsCategory(categories, a.Category) {
				continue
			}
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

func containsCategory(categories []domain.DocumentCategory, c domain.DocumentCategory) bool {
	for _, x := range categories {
		if x == c {
			return true
		}
	}
	return false
}

func (r memAssociations) Create(_ context.Context, a *domain.DocumentAssociation) error {
	return r.do("Associations.Create", func(st *memState) error {
		if _, ok := st.documents[a.Document.ID]; !ok {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, a.Document.ID)
		}
		var ownerExists bool
		switch a.Owner.Kind() {
		case domain.OwnerProfile:
			_, ownerExists = st.profiles[a.Owner.ID()]
		case domain.OwnerApplication:
			_, ownerExists = st.applications[a.Owner.ID()]
		case domain.OwnerCustomFieldAnswer:
			_, ownerExists = st.answers[a.Owner.ID()]
		default:
			return fmt.Errorf("%w: association without owner", domain.ErrInvalidParameter)
		}
		if !ownerExists {
			return fmt.Errorf("%w: owner %s", domain.ErrNotFound, a.Owner)
		}
		a.CreatedAt = r.store.tick()
		st.associations = append(st.associations, *a)
		return nil
	})
}

func (r memAssociations) Rename(_ context.Context, id uuid.UUID, name string) error {
	return r.do("Associations.Rename", func(st *memState) error {
		for i := range st.associations {
			if st.associations[i].ID == id {
				st.associations[i].Name = name
				return nil
			}
		}
		return fmt.Errorf("%w: document association %s", domain.ErrNotFound, id)
	})
}

func (r memAssociations) Delete(_ context.Context, id uuid.UUID) error {
	return r.do("Associations.Delete", func(st *memState) error {
		for i := range st.associations {
			if st.associations[i].ID == id {
				st.associations = append(st.associations[:i:i], st.associations[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: document association %s", domain.ErrNotFound, id)
	})
}

func (r memAssociations) DeleteByIDs(_ context.Context, ids []uuid.UUID) error {
	return r.do("Associations.DeleteByIDs", func(st *memState) error {
		drop := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			drop[id] = true
		}
		kept := make([]domain.DocumentAssociation, 0, len(st.associations))
		for _, a := range st.associations {
			if !drop[a.ID] {
				kept = append(kept, a)
			}
		}
		st.associations = kept
		return nil
	})
}

type memDocuments struct{ memTx }

func (r memDocuments) GetByID(_ context.Context, id string) (*domain.Document, error) {
	var out *domain.Document
	err := r.do("Documents.GetByID", func(st *memState) error {
		d, ok := st.documents[id]
		if !ok {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		out = &d
		return nil
	})
	return out, err
}

func (r memDocuments) CreateIfAbsent(_ context.Context, doc *domain.Document) error {
	return r.do("Documents.CreateIfAbsent", func(st *memState) error {
		if existing, ok := st.documents[doc.ID]; ok {
			*doc = existing
			return nil
		}
		doc.CreatedAt = r.store.tick()
		st.documents[doc.ID] = *doc
		return nil
	})
}

type memJobs struct{ memTx }

func (r memJobs) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	var out *domain.Job
	err := r.do("Jobs.GetByID", func(st *memState) error {
		j, ok := st.jobs[id]
		if !ok {
			return fmt.Errorf("%w: job %s", domain.ErrNotFound, id)
		}
		out = &j
		return nil
	})
	return out, err
}

type memAnswers struct{ memTx }

func (r memAnswers) GetByID(_ context.Context, id uuid.UUID) (*domain.CustomFieldAnswer, error) {
	var out *domain.CustomFieldAnswer
	err := r.do("Answers.GetByID", func(st *memState) error {
		a, ok := st.answers[id]
		if !ok {
			return fmt.Errorf("%w: custom field answer %s", domain.ErrNotFound, id)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r memAnswers) GetOrCreate(_ context.Context, applicationID, customFieldID uuid.UUID) (*domain.CustomFieldAnswer, error) {
	var out *domain.CustomFieldAnswer
	err := r.do("Answers.GetOrCreate", func(st *memState) error {
		if _, ok := st.applications[applicationID]; !ok {
			return fmt.Errorf("%w: application %s", domain.ErrNotFound, applicationID)
		}
		for _, a := range st.answers {
			if a.ApplicationID == applicationID && a.CustomFieldID == customFieldID {
				a := a
				out = &a
				return nil
			}
		}
		a := domain.CustomFieldAnswer{
			ID:            uuid.New(),
			ApplicationID: applicationID,
			CustomFieldID: customFieldID,
			CreatedAt:     r.store.tick(),
		}
		st.answers[a.ID] = a
		out = &a
		return nil
	})
	return out, err
}

// memBlobs is an in-memory bucket.
type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploads   int
	uploadErr error
}

var _ s3.Storage = (*memBlobs)(nil)

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (b *memBlobs) UploadBytes(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return b.uploadErr
	}
	b.uploads++
	b.objects[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBlobs) DownloadBytes(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, s3.ErrObjectNotFound
	}
	return data, nil
}

func (b *memBlobs) ObjectExists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

// recordingNotifier keeps every event it was handed.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
}

func (n *recordingNotifier) SendAsync(event domain.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []domain.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.NotificationEvent(nil), n.events...)
}
