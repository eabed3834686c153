package plan

import (
	"context"
	"sync"
	"time"

	"github.com/kahero/ratiba/core"
)

// testLogger satisfies core.Logger and swallows output.
type testLogger struct {
	mu    sync.Mutex
	warns []string
}

var _ core.Logger = (*testLogger)(nil)

func (l *testLogger) Debug(msg string, args ...interface{}) {}
func (l *testLogger) Info(msg string, args ...interface{})  {}
func (l *testLogger) Warn(msg string, args ...interface{}) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
func (l *testLogger) Error(msg string, args ...interface{}) {}
func (l *testLogger) Fatal(msg string, args ...interface{}) {}

// memStore is an in-memory ContentStore with switchable failures and call
// counters.
type memStore struct {
	mu       sync.Mutex
	plans    map[string]SemesterPlan
	loads    int
	persists int

	loadErr    error
	persistErr error
}

var _ ContentStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{plans: make(map[string]SemesterPlan)}
}

func (s *memStore) Load(ctx context.Context, unitID string) (SemesterPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return SemesterPlan{}, s.loadErr
	}
	p, ok := s.plans[unitID]
	if !ok {
		return SemesterPlan{}, ErrPlanNotFound
	}
	return p.Clone(), nil
}

func (s *memStore) Persist(ctx context.Context, unitID string, p SemesterPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persists++
	if s.persistErr != nil {
		return s.persistErr
	}
	s.plans[unitID] = p.Clone()
	return nil
}

func (s *memStore) Delete(ctx context.Context, unitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plans, unitID)
	return nil
}

// fakeIdentity is a settable IdentityProvider.
type fakeIdentity struct {
	mu      sync.RWMutex
	subject string
}

var _ IdentityProvider = (*fakeIdentity)(nil)

func (f *fakeIdentity) CurrentIdentity() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.subject
}

func (f *fakeIdentity) set(subject string) {
	f.mu.Lock()
	f.subject = subject
	f.mu.Unlock()
}

// memRoster resolves units and enrollments from maps.
type memRoster struct {
	units    map[string]Unit
	students map[string][]Student

	unitErr    error
	studentErr error
}

var _ Roster = (*memRoster)(nil)

func (r *memRoster) GetUnit(ctx context.Context, unitID string) (Unit, error) {
	if r.unitErr != nil {
		return Unit{}, r.unitErr
	}
	return r.units[unitID], nil
}

func (r *memRoster) EnrolledStudents(ctx context.Context, unitID string) ([]Student, error) {
	if r.studentErr != nil {
		return nil, r.studentErr
	}
	return r.students[unitID], nil
}

// memFeed captures upserted records per recipient; selected recipients can be
// made to fail.
type memFeed struct {
	mu      sync.Mutex
	records map[string][]core.DashboardRecord
	failFor map[string]error
}

var _ core.FeedService = (*memFeed)(nil)

func newMemFeed() *memFeed {
	return &memFeed{
		records: make(map[string][]core.DashboardRecord),
		failFor: make(map[string]error),
	}
}

func (f *memFeed) Upsert(ctx context.Context, recipientID string, rec core.DashboardRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[recipientID]; ok {
		return err
	}
	f.records[recipientID] = append(f.records[recipientID], rec)
	return nil
}

func (f *memFeed) recordsFor(recipientID string) []core.DashboardRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.DashboardRecord(nil), f.records[recipientID]...)
}

// memOverlay is a DocumentOverlay backed by a map.
type memOverlay struct {
	docs map[string][]Document
	err  error
}

var _ DocumentOverlay = (*memOverlay)(nil)

func (o *memOverlay) VisibleDocuments(ctx context.Context, entityID string, kind ItemKind) ([]Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.docs[entityID], nil
}

func newTestCache(store ContentStore, idp IdentityProvider) *Cache {
	return NewCache(store, idp, &testLogger{})
}

func weekOf(n int, start time.Time) WeekPlan {
	s := start.AddDate(0, 0, (n-1)*7)
	return WeekPlan{WeekNumber: n, StartDate: s, EndDate: s.AddDate(0, 0, 6)}
}

func planWithWeeks(weeks ...WeekPlan) SemesterPlan {
	return SemesterPlan{SemesterWeeks: DefaultSemesterWeeks, Weeks: weeks}
}
