package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobmarket/internal/notify"
	"github.com/kiranshivaraju/jobmarket/internal/store"
	"github.com/kiranshivaraju/jobmarket/pkg/models"
)

// fakeStore is an in-memory store.Store with the same conditional-update and
// counter semantics as the Postgres store.
type fakeStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	jobs  map[uuid.UUID]*models.Job
	apps  map[uuid.UUID]*models.Application

	// failTransition makes TransitionApplication fail for the given applications.
	failTransition map[uuid.UUID]error
	// afterGetApplication runs outside the lock after every GetApplication.
	afterGetApplication func()
	// calls records user lookups and application writes in order.
	calls []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:          map[uuid.UUID]*models.User{},
		jobs:           map[uuid.UUID]*models.Job{},
		apps:           map[uuid.UUID]*models.Application{},
		failTransition: map[uuid.UUID]error{},
	}
}

func copyApp(a *models.Application) *models.Application {
	c := *a
	c.StatusHistory = append([]models.StatusChange(nil), a.StatusHistory...)
	return &c
}

func copyJob(j *models.Job) *models.Job {
	c := *j
	return &c
}

func (f *fakeStore) addUser(role models.Role, email string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: uuid.New(), Email: email, DisplayName: email, Role: role}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) addJob(companyID uuid.UUID, status models.JobStatus, max *int) *models.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := &models.Job{ID: uuid.New(), CompanyID: companyID, Title: "Festival promoter", Status: status, MaxApplications: max}
	f.jobs[j.ID] = j
	return copyJob(j)
}

// addApplication inserts an application directly, bypassing the counter.
func (f *fakeStore) addApplication(jobID, applicantID uuid.UUID, createdAt time.Time) *models.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &models.Application{
		ID: uuid.New(), JobID: jobID, ApplicantID: applicantID, Status: models.ApplicationPending,
		LastStatusUpdate: createdAt, CreatedAt: createdAt, UpdatedAt: createdAt,
		StatusHistory: []models.StatusChange{{Status: models.ApplicationPending, ActorID: applicantID, ChangedAt: createdAt}},
	}
	f.apps[a.ID] = a
	f.jobs[jobID].ApplicationCount++
	return copyApp(a)
}

// callsSince returns the calls recorded after the first n.
func (f *fakeStore) callsSince(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls[n:]...)
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeStore) removeUser(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

func (f *fakeStore) count(jobID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[jobID].ApplicationCount
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "GetUser")
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeStore) GetAPIKeyByPrefix(context.Context, string) ([]*models.APIKey, error) {
	return nil, nil
}

func (f *fakeStore) UpdateAPIKeyLastUsed(context.Context, uuid.UUID) error { return nil }

func (f *fakeStore) CreateJob(_ context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[job.CompanyID]; !ok {
		return store.ErrNotFound
	}
	f.jobs[job.ID] = copyJob(job)
	return nil
}

func (f *fakeStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyJob(j), nil
}

func (f *fakeStore) ListJobs(_ context.Context, filter store.JobFilter) ([]*models.Job, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Job
	for _, j := range f.jobs {
		if filter.CompanyID != uuid.Nil && j.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		out = append(out, copyJob(j))
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateJobStatus(_ context.Context, id uuid.UUID, from, to models.JobStatus, opts ...store.JobUpdateOption) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if j.Status != from {
		return nil, store.ErrStatusConflict
	}
	j.Status = to
	return copyJob(j), nil
}

func (f *fakeStore) CreateApplication(_ context.Context, app *models.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "CreateApplication")
	j, ok := f.jobs[app.JobID]
	if !ok {
		return store.ErrNotFound
	}
	if !j.Status.AcceptsApplications() {
		return store.ErrJobNotAccepting
	}
	if !j.HasCapacity() {
		return store.ErrCapacityExhausted
	}
	if _, ok := f.users[app.ApplicantID]; !ok {
		return store.ErrNotFound
	}
	for _, a := range f.apps {
		if a.JobID == app.JobID && a.ApplicantID == app.ApplicantID {
			return store.ErrDuplicateKey
		}
	}
	j.ApplicationCount++
	f.apps[app.ID] = copyApp(app)
	return nil
}

func (f *fakeStore) GetApplication(_ context.Context, id uuid.UUID) (*models.Application, error) {
	f.mu.Lock()
	a, ok := f.apps[id]
	var c *models.Application
	if ok {
		c = copyApp(a)
	}
	f.mu.Unlock()

	if !ok {
		return nil, store.ErrNotFound
	}
	if f.afterGetApplication != nil {
		f.afterGetApplication()
	}
	return c, nil
}

func (f *fakeStore) ListApplications(_ context.Context, filter store.ApplicationFilter) ([]*models.Application, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Application
	for _, a := range f.apps {
		if filter.JobID != uuid.Nil && a.JobID != filter.JobID {
			continue
		}
		if filter.ApplicantID != uuid.Nil && a.ApplicantID != filter.ApplicantID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		c := copyApp(a)
		c.StatusHistory = nil
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *fakeStore) TransitionApplication(_ context.Context, id uuid.UUID, from models.ApplicationStatus, change models.StatusChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failTransition[id]; err != nil {
		return err
	}
	a, ok := f.apps[id]
	if !ok {
		return store.ErrNotFound
	}
	if a.Status != from {
		return store.ErrStatusConflict
	}
	f.calls = append(f.calls, "TransitionApplication")
	a.Status = change.Status
	a.LastStatusUpdate = change.ChangedAt
	a.UpdatedAt = change.ChangedAt
	a.StatusHistory = append(a.StatusHistory, change)
	if change.Status == models.ApplicationWithdrawn && from.Counted() {
		if j := f.jobs[a.JobID]; j.ApplicationCount > 0 {
			j.ApplicationCount--
		}
	}
	return nil
}

func (f *fakeStore) ListStalePending(_ context.Context, createdBefore time.Time, limit int) ([]*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Application
	for _, a := range f.apps {
		if a.Status == models.ApplicationPending && a.CreatedAt.Before(createdBefore) {
			out = append(out, copyApp(a))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// recordingDispatcher captures notifications.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (d *recordingDispatcher) Notify(_ context.Context, e notify.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return d.err
}

func (d *recordingDispatcher) all() []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Event(nil), d.events...)
}

// memCache is a minimal in-memory cache.Cache.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	indexes map[string][]string
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, indexes: map[string][]string{}}
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.SetIndexed(ctx, key, value, ttl)
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	return m.Invalidate(ctx, []string{key}, nil)
}

func (m *memCache) Ping(context.Context) error { return nil }

func (m *memCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func (m *memCache) SetIndexed(_ context.Context, key string, value []byte, _ time.Duration, indexes ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	for _, idx := range indexes {
		m.indexes[idx] = append(m.indexes[idx], key)
	}
	return nil
}

func (m *memCache) Invalidate(_ context.Context, keys []string, indexes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	for _, idx := range indexes {
		for _, k := range m.indexes[idx] {
			delete(m.data, k)
		}
		delete(m.indexes, idx)
	}
	return nil
}
