package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"subsniff/internal/config"
	"subsniff/internal/download"
	"subsniff/internal/fetch"
	"subsniff/internal/httpapi"
	"subsniff/internal/ingest"
	"subsniff/internal/observe"
	"subsniff/internal/store"
	"subsniff/pkg/log"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	st, err := store.New(cfg.Storage.DBPath())
	if err != nil {
		log.Fatal("failed to open capture store: %v", err)
	}
	defer st.Close()

	engine := fetch.NewEngine(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxBodyBytes)
	state := ingest.NewState(ingest.Limits{
		HeaderCache: cfg.Ingest.HeaderCacheLimit,
		Attempted:   cfg.Ingest.AttemptedLimit,
		Failed:      cfg.Ingest.FailedLimit,
	})
	tabs := ingest.NewTabRegistry()
	orch := ingest.NewOrchestrator(state, engine, st, tabs, ingest.Config{
		MaxRetries: cfg.Ingest.MaxRetries,
		RetryDelay: cfg.Ingest.RetryDelay,
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Ingest.SweepCronExpr, func() {
		report := orch.Sweep()
		if report.HeadersEvicted > 0 || report.AttemptedEvicted > 0 || report.FailedCleared > 0 {
			log.Info("sweep: evicted %d header(s), %d attempted, cleared %d failed",
				report.HeadersEvicted, report.AttemptedEvicted, report.FailedCleared)
		}
	}); err != nil {
		log.Fatal("invalid sweep schedule %q: %v", cfg.Ingest.SweepCronExpr, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := httpapi.NewServer(orch, st, tabs,
		httpapi.WithDownloads(download.NewManager(st, cfg.Storage.DownloadDir)),
		httpapi.WithScanner(observe.NewScanner(orch, cfg.Fetch.UserAgent, cfg.Fetch.Timeout)),
		httpapi.WithSweepSchedule(cfg.Ingest.SweepCronExpr),
	)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", cfg.HTTP.ListenAddr)
		errCh <- server.ListenAndServe(cfg.HTTP.ListenAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal("http server failed: %v", err)
	case sig := <-stop:
		log.Info("received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown: %v", err)
	}
	orch.Wait()
}
