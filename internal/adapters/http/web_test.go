package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"studio/internal/adapters/changefeed"
	"studio/internal/adapters/drafting"
	"studio/internal/adapters/email"
	"studio/internal/adapters/http/middleware"
	"studio/internal/adapters/http/perf"
	"studio/internal/adapters/storage"
	accountStore "studio/internal/adapters/storage/account"
	instructorStore "studio/internal/adapters/storage/instructor"
	outboxStore "studio/internal/adapters/storage/outbox"
	sessionStore "studio/internal/adapters/storage/session"
	"studio/internal/application/orchestrators"
	"studio/internal/domain/outbox"
)

// testNow is Wednesday 2026-03-04 02:00 UTC. From here the Wednesday noon
// and Friday evening classes are inside the 72h window; Monday and Saturday are not.
var testNow = time.Date(2026, 3, 4, 2, 0, 0, 0, time.UTC)

const (
	testAdminUser = "admin"
	testAdminPass = "admin-pass"
	demoPass      = "lotus123"
)

// testApp is a fully wired server over an in-memory database seeded with
// the demo catalog.
type testApp struct {
	handler http.Handler
	stores  *Stores
	broker  *changefeed.MemoryBroker
	sender  *email.NoopSender
	drafts  *orchestrators.DraftWorkflow
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := &Stores{
		SessionStore:    sessionStore.NewSQLiteStore(db),
		InstructorStore: instructorStore.NewSQLiteStore(db),
		AccountStore:    accountStore.NewSQLiteStore(db),
		OutboxStore:     outboxStore.NewSQLiteStore(db),
	}
	clock := func() time.Time { return testNow }

	seed := orchestrators.SeedDeps{
		AccountStore:    s.AccountStore,
		InstructorStore: s.InstructorStore,
		SessionStore:    s.SessionStore,
		GenerateID:      generateID,
		Now:             clock,
	}
	ctx := context.Background()
	if err := orchestrators.ExecuteSeedAdmin(ctx, seed, testAdminUser, testAdminPass); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := orchestrators.ExecuteSeedDemo(ctx, seed); err != nil {
		t.Fatalf("seed demo: %v", err)
	}

	app := &testApp{
		stores: s,
		broker: changefeed.NewMemoryBroker(),
		sender: email.NewNoopSender(),
	}
	app.drafts = orchestrators.NewDraftWorkflow(orchestrators.DraftWorkflowDeps{
		SessionStore:    s.SessionStore,
		InstructorStore: s.InstructorStore,
		Drafter:         drafting.TemplateDrafter{},
		GenerateID:      generateID,
		Timeout:         time.Second,
	})
	t.Cleanup(app.drafts.Wait)

	svc := &Services{
		Changes: app.broker,
		Drafts:  app.drafts,
		Notifier: &orchestrators.SubstitutionNotifier{
			Accounts:    s.AccountStore,
			Sender:      app.sender,
			Outbox:      s.OutboxStore,
			FromAddress: "Lotus Studio <classes@lotus.example>",
			StudioName:  "Lotus Studio",
			GenerateID:  generateID,
			Now:         clock,
		},
		Outbox: orchestrators.NewOutboxProcessor(s.OutboxStore, map[string]orchestrators.ActionExecutor{
			outbox.ActionTypeSubstitutionNotice: &orchestrators.SubstitutionNoticeExecutor{Sender: app.sender, FromAddress: "classes@lotus.example"},
		}).WithClock(clock),
		Now: clock,
	}

	RateLimitPerSecond = 10000
	app.handler = NewMux(s, svc, Options{
		CSRFKey:   []byte(strings.Repeat("c", 32)),
		Collector: perf.NewCollector(100),
	})
	return app
}

// do sends a JSON request through the full middleware chain.
func (a *testApp) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

// login signs in through the API and returns the session cookie.
func (a *testApp) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rr := a.do(t, "POST", "/api/login", map[string]string{"username": username, "password": password}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatalf("login %s: no session cookie", username)
	return nil
}

func (a *testApp) admin(t *testing.T) *http.Cookie {
	return a.login(t, testAdminUser, testAdminPass)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, rr.Body.String())
	}
	return v
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}
