// jobmate-tracker-service
//
// Job application tracker: a kanban board of applications with a reminder
// engine on top. Exposes the REST API used by the web client:
//   - applications CRUD and moveCard(applicationId, status)
//   - follow-up recording and follow-up timing advice
//   - reminders with per-user dismissals
//   - cover letter drafting and e-mail ingestion
//
// Publishes EVENT_APPLICATION_CREATED, EVENT_CARD_MOVED and
// EVENT_REMINDERS_DUE to Redis when it is configured.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"jobmate/tracker-service/internal/api"
	"jobmate/tracker-service/internal/auth"
	"jobmate/tracker-service/internal/config"
	"jobmate/tracker-service/internal/coverletter"
	"jobmate/tracker-service/internal/db"
	"jobmate/tracker-service/internal/events"
	"jobmate/tracker-service/internal/heuristics"
	"jobmate/tracker-service/internal/ingest"
	"jobmate/tracker-service/internal/kanban"
	"jobmate/tracker-service/internal/notion"
	"jobmate/tracker-service/internal/reminder"
	"jobmate/tracker-service/internal/scheduler"
	"jobmate/tracker-service/internal/store"
)

const version = "1.1.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Store ───────────────────────────────────────────────────────────────
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store")
	}
	defer closeStore()

	// ── Redis (optional) ────────────────────────────────────────────────────
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	var (
		sessions   auth.SessionStore
		dismissals reminder.DismissalStore
		publisher  kanban.Publisher
	)
	if rdb != nil {
		defer rdb.Close()
		sessions = auth.NewRedisSessions(rdb)
		dismissals = reminder.NewRedisDismissals(rdb)
		publisher = events.NewRedisPublisher(rdb)
		log.Info().Msg("redis connected")
	} else {
		sessions = auth.NewMemorySessions()
		dismissals = reminder.NewMemoryDismissals()
		publisher = events.NopPublisher{}
		log.Warn().Msg("REDIS_URL not set: sessions and dismissals are kept in memory, events are not published")
	}

	// ── Domain services ─────────────────────────────────────────────────────
	rules := heuristics.Default()
	if cfg.HeuristicsFile != "" {
		if rules, err = heuristics.Load(cfg.HeuristicsFile); err != nil {
			log.Fatal().Err(err).Msg("heuristics")
		}
	}

	now := func() time.Time { return time.Now().In(cfg.Location) }
	opts := []kanban.Option{kanban.WithClock(now)}
	if cfg.NotionEnabled() {
		opts = append(opts, kanban.WithMirror(notion.New(cfg.NotionToken, cfg.NotionDBID)))
		log.Info().Str("database", cfg.NotionDBID).Msg("notion mirror enabled")
	}
	apps := kanban.NewService(st, publisher, opts...)
	reminders := reminder.NewService(apps, dismissals, now)

	var gen coverletter.Generator
	if cfg.GeminiAPIKey != "" {
		if gen, err = coverletter.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel); err != nil {
			log.Fatal().Err(err).Msg("gemini")
		}
		log.Info().Str("model", cfg.GeminiModel).Msg("cover letters via gemini")
	}

	// ── Reminder sweep ──────────────────────────────────────────────────────
	sched := scheduler.New(apps, reminders, publisher, cfg.ReminderSweepSpec, cron.WithLocation(cfg.Location))
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}

	// ── HTTP server ─────────────────────────────────────────────────────────
	server := api.NewServer(api.Deps{
		Auth:              auth.NewService(st, sessions, cfg.SessionTTL),
		Apps:              apps,
		Reminders:         reminders,
		CoverLetter:       coverletter.NewService(gen),
		Ingester:          ingest.New(apps, rules),
		Rules:             rules,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Version:           version,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("version", version).Str("port", cfg.Port).Msg("tracker-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	cancel()
	sched.Stop()
	log.Info().Msg("stopped")
}

func setupLogging(cfg *config.Config) {
	zerolog.SetGlobalLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(os.Stderr)
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = logger.With().Timestamp().Str("service", "tracker-service").Logger()
}

// openStore connects and migrates the configured database.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.MigrateSQLite(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite ready")
		return store.NewSQLite(sqlDB), func() { _ = sqlDB.Close() }, nil
	default:
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info().Msg("postgres connected")
		return store.NewPostgres(pool), pool.Close, nil
	}
}
