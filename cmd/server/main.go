package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"studio/internal/adapters/changefeed"
	"studio/internal/adapters/drafting"
	emailPkg "studio/internal/adapters/email"
	web "studio/internal/adapters/http"
	"studio/internal/adapters/http/perf"
	"studio/internal/adapters/storage"
	accountStore "studio/internal/adapters/storage/account"
	instructorStore "studio/internal/adapters/storage/instructor"
	outboxStorePkg "studio/internal/adapters/storage/outbox"
	sessionStore "studio/internal/adapters/storage/session"
	"studio/internal/application/orchestrators"
	"studio/internal/config"
	"studio/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// WAL mode, foreign keys and busy timeout on every connection
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	log.Println("Database initialized successfully!")

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQuery)

	stores := &web.Stores{
		SessionStore:    sessionStore.NewSQLiteStore(timedDB),
		InstructorStore: instructorStore.NewSQLiteStore(timedDB),
		AccountStore:    accountStore.NewSQLiteStore(timedDB),
		OutboxStore:     outboxStorePkg.NewSQLiteStore(timedDB),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seedDeps := orchestrators.SeedDeps{
		AccountStore:    stores.AccountStore,
		InstructorStore: stores.InstructorStore,
		SessionStore:    stores.SessionStore,
		GenerateID:      uuid.NewString,
		Now:             cfg.Now,
	}
	if err := orchestrators.ExecuteSeedAdmin(ctx, seedDeps, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	if !cfg.IsProduction() {
		if err := orchestrators.ExecuteSeedDemo(ctx, seedDeps); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
		log.Println("Demo catalog loaded (dev mode)")
	}

	// Email sender
	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.ResendFrom, cfg.ReplyTo)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			log.Println("WARNING: STUDIO_RESEND_KEY is not set, substitution notices will not be delivered")
		} else {
			log.Println("Email sender configured (noop, set STUDIO_RESEND_KEY for real delivery)")
		}
	}

	// Notification drafter
	var drafter drafting.Drafter = drafting.TemplateDrafter{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := drafting.NewGeminiDrafter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.StudioName)
		if err != nil {
			log.Printf("Gemini drafter unavailable, using template: %v", err)
		} else {
			defer gemini.Close()
			drafter = gemini
			log.Printf("Notification drafter configured (Gemini %s)", cfg.GeminiModel)
		}
	}

	// Change feed
	var broker changefeed.Broker = changefeed.NewMemoryBroker()
	if cfg.RedisAddr != "" {
		redisBroker, err := changefeed.NewRedisBroker(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("failed to connect change feed to redis: %v", err)
		}
		defer redisBroker.Close()
		broker = redisBroker
		log.Printf("Change feed configured (Redis %s)", cfg.RedisAddr)
	}

	// Outbox worker retries substitution notices that failed at assignment time
	outboxProcessor := orchestrators.NewOutboxProcessor(stores.OutboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeSubstitutionNotice: &orchestrators.SubstitutionNoticeExecutor{Sender: sender, FromAddress: cfg.ResendFrom},
	}).WithClock(cfg.Now)
	outboxStopCh := make(chan struct{})
	orchestrators.StartBackgroundWorker(outboxProcessor, cfg.OutboxInterval, outboxStopCh)
	defer close(outboxStopCh)

	drafts := orchestrators.NewDraftWorkflow(orchestrators.DraftWorkflowDeps{
		SessionStore:    stores.SessionStore,
		InstructorStore: stores.InstructorStore,
		Drafter:         drafter,
		GenerateID:      uuid.NewString,
		Timeout:         cfg.DraftTimeout,
	})

	services := &web.Services{
		Changes: broker,
		Drafts:  drafts,
		Notifier: &orchestrators.SubstitutionNotifier{
			Accounts:    stores.AccountStore,
			Sender:      sender,
			Outbox:      stores.OutboxStore,
			FromAddress: cfg.ResendFrom,
			ReplyTo:     cfg.ReplyTo,
			StudioName:  cfg.StudioName,
			GenerateID:  uuid.NewString,
			Now:         cfg.Now,
		},
		Outbox: outboxProcessor,
		Now:    cfg.Now,
	}

	csrfKey := []byte(cfg.CSRFKey)
	if len(csrfKey) == 0 {
		// Dev only: config.Load rejects a missing key in production.
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			log.Fatalf("failed to generate CSRF key: %v", err)
		}
	}

	staticDir := ""
	if fi, err := os.Stat("static"); err == nil && fi.IsDir() {
		staticDir = "static"
	}

	handler := web.NewMux(stores, services, web.Options{
		StaticDir:   staticDir,
		CSRFKey:     csrfKey,
		Secure:      cfg.IsProduction(),
		SlowRequest: cfg.SlowRequest,
		Collector:   collector,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("Studio %s starting on %s (env=%s, schema=%d)", version, cfg.Addr, cfg.Env, storage.LatestSchemaVersion())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	drafts.Wait()
	log.Println("Server stopped")
}
