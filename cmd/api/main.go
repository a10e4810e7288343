package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/john77eipe/directory-fortress-enmasse/internal/authority/pg"
	"github.com/john77eipe/directory-fortress-enmasse/internal/config"
	"github.com/john77eipe/directory-fortress-enmasse/internal/dispatch"
	"github.com/john77eipe/directory-fortress-enmasse/internal/httpapi"
	"github.com/john77eipe/directory-fortress-enmasse/internal/obs"
)

var version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.PGDSN == "" {
		log.Fatal("ENMASSE_PG_DSN is required")
	}

	obs.Init()
	obs.InitBuildInfo(version, buildCommit())

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open authority store: %v", err)
	}
	defer store.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), cfg.ReadTimeout)
	if err := store.Ping(pingCtx); err != nil {
		cancelPing()
		log.Fatalf("ping authority store: %v", err)
	}
	cancelPing()

	api := httpapi.New(
		httpapi.ReadyProbe{DB: store.DB()},
		version,
		httpapi.Options{
			MaxBodyBytes:    cfg.MaxBodyBytes,
			RateLimitPerSec: cfg.RateLimitPerSec,
			RateLimitBurst:  cfg.RateLimitBurst,
		},
		dispatch.NewAccessService(store),
		dispatch.NewAdminService(store),
		dispatch.NewReviewService(store),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	log.Printf("Starting enmasse-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

func buildCommit() string {
	if c := os.Getenv("ENMASSE_BUILD_COMMIT"); c != "" {
		return c
	}
	return "dev"
}
