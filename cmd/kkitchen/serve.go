package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/tbourn/k-kitchen/internal/http"
	"github.com/tbourn/k-kitchen/internal/observability"
	"github.com/tbourn/k-kitchen/internal/repo"
	"github.com/tbourn/k-kitchen/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the optional background generator",
	Long: `Opens the database, seeds an empty feed with the curated posts, prunes
the avatar cache and serves the API until SIGINT or SIGTERM.

Background generation runs every SCHEDULER_INTERVAL when it is set.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version())
	if err != nil {
		return err
	}
	defer flush(shutdownTracing)

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	warmUp(ctx, a)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, a.deps(), cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		(&services.AutoRunner{Feed: a.feed, Interval: cfg.Scheduler.Interval}).Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		a.hub.Close()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// warmUp prepares storage before traffic arrives. Failures are logged; the
// server still starts.
func warmUp(ctx context.Context, a *app) {
	if n, err := a.feed.Seed(ctx); err != nil {
		log.Warn().Err(err).Msg("seed feed")
	} else if n > 0 {
		log.Info().Int("posts", n).Msg("seeded empty feed")
	}
	if n, err := a.avatars.Prune(ctx); err != nil {
		log.Warn().Err(err).Msg("prune avatar cache")
	} else if n > 0 {
		log.Info().Int("removed", n).Msg("pruned avatar cache")
	}
	if n, err := repo.PurgeExpiredIdempotency(ctx, a.db, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Msg("purge idempotency keys")
	} else if n > 0 {
		log.Info().Int64("removed", n).Msg("purged expired idempotency keys")
	}
}

func flush(shutdown observability.Shutdown) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("flush traces")
	}
}
