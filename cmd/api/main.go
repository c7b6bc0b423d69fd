package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Bahjat/site-audit/internal/analyzer"
	"github.com/Bahjat/site-audit/internal/archive"
	"github.com/Bahjat/site-audit/internal/audit"
	"github.com/Bahjat/site-audit/internal/platform/config"
	"github.com/Bahjat/site-audit/internal/platform/logger"
	"github.com/Bahjat/site-audit/internal/scanner"
	"github.com/Bahjat/site-audit/internal/store"
	"github.com/Bahjat/site-audit/internal/store/postgres"
	"github.com/Bahjat/site-audit/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var (
		repo   store.Repository
		pinger analyzer.Pinger
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx, log); err != nil {
			return err
		}
		repo, pinger = db, db
	} else {
		log.Warn("DATABASE_URL not set, audits are kept in memory only")
		repo = store.NewMemory()
	}

	opts := []audit.Option{audit.WithMaxDuration(cfg.MaxAuditDuration)}
	if cfg.S3.Enabled() {
		s3, err := archive.New(cfg.S3)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		opts = append(opts, audit.WithArchiver(s3))
	}
	orch := audit.New(repo, scanner.FromConfig(cfg, log), log, opts...)

	runner := worker.New(repo, orch, log, worker.Config{
		Concurrency:  cfg.AuditWorkers,
		PollInterval: cfg.AuditPollInterval,
		StaleAfter:   cfg.StaleProcessingAfter,
	})

	svc := analyzer.NewService(repo, orch, runner, log)
	transportOpts := []analyzer.TransportOption{analyzer.WithInlineTimeout(cfg.MaxAuditDuration + 30*time.Second)}
	if pinger != nil {
		transportOpts = append(transportOpts, analyzer.WithPinger(pinger))
	}
	handler := analyzer.NewRouter(analyzer.NewTransport(svc, log, transportOpts...), log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Go(func() { runner.Run(ctx) })

	serveErr := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", srv.Addr, "workers", cfg.AuditWorkers)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	log.Info("shutting down")
	shctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shctx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	wg.Wait()
	return nil
}
