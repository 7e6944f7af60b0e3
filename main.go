package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/ssau-fiit/cloudocs-api/common/util"
	"github.com/ssau-fiit/cloudocs-api/database"
	"golang.org/x/sync/errgroup"
)

func main() {
	path := os.Getenv("CLOUDOCS_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("could not load config")
	}
	cfg.setupLogging()

	database.Configure(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	store := database.NewStore(database.Database())

	srv := newServer(store, store, util.ClientID())
	snap := newSnapshotter(store, srv.hub, cfg)
	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Run(ctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Msg("server started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.hub.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("could not start server")
	}

	// One last pass so nothing waits for the next start.
	finalCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := snap.Snapshot(finalCtx); err != nil {
		log.Error().Err(err).Msg("final snapshot failed")
	}
}
