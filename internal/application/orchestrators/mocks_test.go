package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"studio/internal/adapters/changefeed"
	emailAdapter "studio/internal/adapters/email"
	"studio/internal/adapters/storage"
	sessionStore "studio/internal/adapters/storage/session"
	"studio/internal/domain/account"
	"studio/internal/domain/instructor"
	"studio/internal/domain/outbox"
	"studio/internal/domain/session"
)

// fixedTime is a Wednesday.
var fixedTime = time.Date(2026, 3, 4, 2, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func fixedID() string { return "test-id-001" }

// sequentialIDs returns a generator producing id-1, id-2, ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// mockSessionStore implements every session store surface for testing.
type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]session.Session
	failWith error
}

func newMockSessionStore(sessions ...session.Session) *mockSessionStore {
	m := &mockSessionStore{sessions: make(map[string]session.Session)}
	for _, s := range sessions {
		m.sessions[s.ID] = s.Clone()
	}
	return m
}

func (m *mockSessionStore) GetByID(_ context.Context, id string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return session.Session{}, m.failWith
	}
	s, ok := m.sessions[id]
	if !ok {
		return session.Session{}, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	return s.Clone(), nil
}

func (m *mockSessionStore) Create(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *mockSessionStore) Update(_ context.Context, id string, fn sessionStore.MutateFunc) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return session.Session{}, m.failWith
	}
	s, ok := m.sessions[id]
	if !ok {
		return session.Session{}, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	s = s.Clone()
	if err := fn(&s); err != nil {
		return session.Session{}, err
	}
	s.ID = id
	m.sessions[id] = s.Clone()
	return s, nil
}

func (m *mockSessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionStore) RemoveMember(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed []string
	for id, s := range m.sessions {
		if s.Cancel(userID) {
			m.sessions[id] = s
			changed = append(changed, id)
		}
	}
	return changed, nil
}

func (m *mockSessionStore) CountByInstructor(_ context.Context, instructorID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.InstructorID == instructorID {
			n++
		}
	}
	return n, nil
}

func (m *mockSessionStore) get(id string) session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Clone()
}

// mockAccountStore implements the account store surfaces for testing.
type mockAccountStore struct {
	accounts map[string]account.Account
}

func newMockAccountStore(accounts ...account.Account) *mockAccountStore {
	m := &mockAccountStore{accounts: make(map[string]account.Account)}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return a, nil
}

func (m *mockAccountStore) GetByUsername(_ context.Context, username string) (account.Account, error) {
	for _, a := range m.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return account.Account{}, fmt.Errorf("account %s: %w", username, storage.ErrNotFound)
}

func (m *mockAccountStore) Save(_ context.Context, a account.Account) error {
	for _, other := range m.accounts {
		if other.ID != a.ID && other.Username == a.Username {
			return account.ErrUsernameTaken
		}
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountStore) Delete(_ context.Context, id string) error {
	if _, ok := m.accounts[id]; !ok {
		return fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	delete(m.accounts, id)
	return nil
}

// mockInstructorStore implements the instructor store surfaces for testing.
type mockInstructorStore struct {
	mu          sync.Mutex
	instructors map[string]instructor.Instructor
}

func newMockInstructorStore(list ...instructor.Instructor) *mockInstructorStore {
	m := &mockInstructorStore{instructors: make(map[string]instructor.Instructor)}
	for _, i := range list {
		m.instructors[i.ID] = i
	}
	return m
}

func (m *mockInstructorStore) GetByID(_ context.Context, id string) (instructor.Instructor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.instructors[id]
	if !ok {
		return instructor.Instructor{}, fmt.Errorf("instructor %s: %w", id, storage.ErrNotFound)
	}
	return i, nil
}

func (m *mockInstructorStore) Save(_ context.Context, i instructor.Instructor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instructors[i.ID] = i
	return nil
}

func (m *mockInstructorStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instructors[id]; !ok {
		return fmt.Errorf("instructor %s: %w", id, storage.ErrNotFound)
	}
	delete(m.instructors, id)
	return nil
}

// mockOutboxStore implements OutboxStore for testing.
type mockOutboxStore struct {
	entries map[string]outbox.Entry
}

func newMockOutboxStore() *mockOutboxStore {
	return &mockOutboxStore{entries: make(map[string]outbox.Entry)}
}

func (m *mockOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return outbox.Entry{}, fmt.Errorf("outbox %s: %w", id, storage.ErrNotFound)
	}
	return e, nil
}

func (m *mockOutboxStore) Save(ctx context.Context, e outbox.Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save outbox %s: %w", e.ID, storage.ErrUnavailable)
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// recordingPublisher collects published topics. A nil recorder discards
// them, so helpers can pass nil for tests that do not inspect the feed.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []changefeed.Topic
}

func (p *recordingPublisher) Publish(_ context.Context, topic changefeed.Topic) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) published() []changefeed.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]changefeed.Topic(nil), p.topics...)
}

// mockSender records sends and optionally fails them.
type mockSender struct {
	sent    []emailAdapter.SendRequest
	failErr error
}

func (m *mockSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	if m.failErr != nil {
		return emailAdapter.SendResult{}, m.failErr
	}
	m.sent = append(m.sent, req)
	return emailAdapter.SendResult{MessageID: fmt.Sprintf("msg-%d", len(m.sent)), SentAt: fixedTime}, nil
}

func (m *mockSender) SendBatch(ctx context.Context, reqs []emailAdapter.SendRequest) ([]emailAdapter.SendResult, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	var out []emailAdapter.SendResult
	for _, r := range reqs {
		res, _ := m.Send(ctx, r)
		out = append(out, res)
	}
	return out, nil
}

var errDriver = fmt.Errorf("session.update: %w: %w", storage.ErrUnavailable, errors.New("database is locked"))

func paidStudent(id string) account.Account {
	return account.Account{ID: id, Name: "Student " + id, Username: id, Role: account.RoleStudent, HasPaid: true}
}

func unpaidStudent(id string) account.Account {
	return account.Account{ID: id, Name: "Student " + id, Username: id, Role: account.RoleStudent}
}

func adminAccount(id string) account.Account {
	return account.Account{ID: id, Name: "Admin", Username: "admin", Role: account.RoleAdmin}
}

// wednesdayNoon is weekly Wednesday 12:00 with one seat.
func wednesdayNoon() session.Session {
	return session.Session{
		ID:              "c2",
		Title:           "Power Lunch",
		DayOfWeek:       3,
		StartTime:       "12:00",
		DurationMinutes: 45,
		InstructorID:    "i1",
		Capacity:        1,
		EnrolledUserIDs: []string{},
		Location:        "Studio B",
		Difficulty:      session.DifficultyAdvanced,
	}
}
