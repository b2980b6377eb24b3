package web

import (
	"net/http"
	"time"

	"studio/internal/adapters/changefeed"
	"studio/internal/adapters/http/middleware"
	"studio/internal/adapters/http/perf"
	accountStore "studio/internal/adapters/storage/account"
	instructorStore "studio/internal/adapters/storage/instructor"
	outboxStore "studio/internal/adapters/storage/outbox"
	sessionStore "studio/internal/adapters/storage/session"
	"studio/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	SessionStore    sessionStore.Store
	InstructorStore instructorStore.Store
	AccountStore    accountStore.Store
	OutboxStore     outboxStore.Store
}

// Services holds the long-lived collaborators shared by handlers.
type Services struct {
	Changes  changefeed.Broker
	Drafts   *orchestrators.DraftWorkflow
	Notifier orchestrators.Notifier // nil disables substitution notices
	Outbox   *orchestrators.OutboxProcessor
	Now      func() time.Time
}

// Options configures the HTTP surface.
type Options struct {
	StaticDir      string
	CSRFKey        []byte // 32 bytes
	Secure         bool   // production: Secure cookies
	TrustedOrigins []string
	SlowRequest    time.Duration
	Collector      *perf.Collector
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global services instance (set by NewMux)
var services *Services

// Global session store instance
var sessions *middleware.SessionStore

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 20

// timeNow is used when Services carries no clock.
var timeNow = time.Now

// now returns the application clock.
func now() time.Time {
	if services != nil && services.Now != nil {
		return services.Now()
	}
	return timeNow()
}

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, svc *Services, opts Options) http.Handler {
	stores = s
	services = svc
	perfCollector = opts.Collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = opts.Secure

	mux := http.NewServeMux()
	if opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	}
	registerRoutes(mux)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Outermost first: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, opts.Secure, opts.TrustedOrigins...),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.Collector, opts.SlowRequest),
	)
}

// publisher adapts the configured broker for orchestrators; nil when unset.
func publisher() orchestrators.ChangePublisher {
	if services == nil || services.Changes == nil {
		return nil
	}
	return services.Changes
}

// notifier returns the configured substitution notifier, or nil.
func notifier() orchestrators.Notifier {
	if services == nil {
		return nil
	}
	return services.Notifier
}

// catalogDeps builds the dependency set shared by session catalog handlers.
func catalogDeps() orchestrators.CatalogDeps {
	return orchestrators.CatalogDeps{
		SessionStore:    stores.SessionStore,
		InstructorStore: stores.InstructorStore,
		Changes:         publisher(),
		GenerateID:      generateID,
	}
}
