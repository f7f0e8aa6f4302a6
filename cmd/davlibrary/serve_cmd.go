package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"davlibrary/internal/library"
	"davlibrary/internal/server"
	"davlibrary/internal/storage"
	"davlibrary/internal/streaming"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server. When sync.interval is set, the catalog is
also copied into the snapshot database on that interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := loadApp(os.Stdout)
	if err != nil {
		return err
	}

	a.logger.Info().
		Str("webdav", a.cfg.WebDAV.BaseURL()).
		Int("media_paths", len(a.cfg.WebDAV.MediaPaths)).
		Msg("starting davlibrary server")

	store, err := storage.NewSQLiteStorage(a.cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	syncer := library.NewSyncer(a.catalog, store, a.logger.With().Str("component", "sync").Logger())

	srv := server.New(a.cfg, a.logger, a.catalog)
	srv.SetSyncer(syncer)
	srv.SetSnapshots(store)
	srv.SetStreamer(streaming.NewHandler(a.client, a.cfg.WebDAV, a.logger.With().Str("component", "stream").Logger()))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info().Msg("received shutdown signal")
		return srv.Shutdown(context.Background())
	})

	if a.cfg.Sync.Interval > 0 {
		g.Go(func() error {
			runSyncLoop(ctx, syncer, a.cfg.Sync.Interval, a.logger)
			return nil
		})
	}

	err = g.Wait()
	a.logger.Info().Msg("server stopped")
	return err
}

// runSyncLoop syncs once right away and then on every tick until ctx ends.
func runSyncLoop(ctx context.Context, syncer *library.Syncer, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := syncer.Run(ctx); err != nil && !errors.Is(err, library.ErrSyncInProgress) && ctx.Err() == nil {
			logger.Error().Err(err).Msg("periodic sync failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
