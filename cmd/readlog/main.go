package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"readlog/internal/auth"
	"readlog/internal/config"
	"readlog/internal/db"
	httpx "readlog/internal/http"
	"readlog/internal/jobs"
	"readlog/internal/logger"
	"readlog/internal/store"
)

func main() {
	cfg, _ := config.Load()
	log := logger.New(cfg.LogLevel, false)

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	r := httpx.NewRouter(cfg, gdb, jwtSvc, log)

	// stats-cache worker
	worker := &jobs.Worker{
		ID:       "worker-1",
		Repo:     &jobs.Repo{DB: gdb},
		Entries:  &store.EntryRepo{DB: gdb},
		Stats:    &store.StatsRepo{DB: gdb},
		Timezone: cfg.Timezone,
		Log:      log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
