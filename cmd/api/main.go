package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach-crm/internal/audit"
	"outreach-crm/internal/auth"
	"outreach-crm/internal/cadence"
	"outreach-crm/internal/calls"
	"outreach-crm/internal/capacity"
	"outreach-crm/internal/config"
	"outreach-crm/internal/contacts"
	"outreach-crm/internal/eligibility"
	"outreach-crm/internal/httpapi"
	"outreach-crm/internal/pause"
	"outreach-crm/internal/reporting"
	"outreach-crm/internal/session"
	"outreach-crm/pkg/logger"
	"outreach-crm/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, "dialer-api")
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	policy := cfg.Dialer.CadencePolicy()
	if err := policy.Validate(); err != nil {
		log.Error("cadence policy invalid", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, utils.DriverPgx, cfg.PostgresDSN(), cfg.PostgresPool())
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, cfg.RedisClient())
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Engine wiring. Every service reads the stores fresh; nothing caches eligibility.
	contactRepo := contacts.NewPostgresRepo(db)
	callSvc := calls.NewService(calls.NewPostgresLedger(db))
	queues := eligibility.NewService(contactRepo, contactRepo, callSvc, eligibility.NewFilter(cfg.Dialer.MaxCallAttempts))

	registry := session.NewRegistry()
	sessions := session.NewService(session.Deps{
		Queues:   queues,
		Calls:    callSvc,
		Resolver: cadence.NewResolver(policy),
		Contacts: contactRepo,
		Records:  session.NewPostgresRepo(db),
		Lock:     session.NewRedisCallLock(rdb, cfg.Dialer.CallLockTTL),
		Registry: registry,
		Logger:   log.With("component", "session"),
	}, cfg.Dialer.SessionOptions())

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	pauses := pause.NewService(contactRepo, contactRepo, auditSvc, log.With("component", "pause"))
	pauses.SetPruner(registry)

	monitor := capacity.NewMonitor(queues, callSvc, pauses, contactRepo, cfg.Dialer.CapacityOptions(), log.With("component", "capacity"))
	job := capacity.NewJob(monitor, cfg.Dialer.CapacityCron, cfg.Dialer.CapacityAutoFix, log.With("component", "capacity_job"))
	if err := job.Start(); err != nil {
		log.Error("capacity job init failed", "err", err)
		os.Exit(1)
	}

	h := httpapi.Handlers{
		Queues:   queues,
		Sessions: sessions,
		Capacity: monitor,
		Pauses:   pauses,
		Audit:    auditSvc,
		Stats:    reporting.NewService(callSvc, cfg.Dialer.DailyTarget),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, readiness{db: db, rdb: rdb})
	registerProtectedRoutes(r, auth.RequireAccessToken(authManager), h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	job.Stop(shutdownCtx)
	log.Info("shutdown complete", "live_sessions", registry.Len())
}
