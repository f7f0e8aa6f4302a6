package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"davlibrary/internal/api"
	"davlibrary/internal/config"
	"davlibrary/internal/library"
	"davlibrary/internal/streaming"
	"davlibrary/internal/webdav"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "davlibrary",
		Short: "Media library discovery over WebDAV",
		Long: `davlibrary walks a WebDAV server, recognizes movies and TV episodes from
their file and folder names, and serves the resulting catalog over HTTP.`,
		Version:       api.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTestCmd())
	rootCmd.AddCommand(newLibrariesCmd())
	rootCmd.AddCommand(newMoviesCmd())
	rootCmd.AddCommand(newSeriesCmd())
	rootCmd.AddCommand(newSeasonsCmd())
	rootCmd.AddCommand(newEpisodesCmd())
	rootCmd.AddCommand(newSyncCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// app holds the components every command shares.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	client  *webdav.Client
	catalog *library.Service
}

// loadApp reads the config and wires the WebDAV client and catalog. Logs go
// to logOut so commands that print JSON keep stdout clean.
func loadApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging, logOut)

	client := webdav.NewClient(cfg.WebDAV.BaseURL(), webdav.Credentials{
		Username: cfg.WebDAV.Username,
		Password: cfg.WebDAV.Password,
	})
	streams := streaming.NewProxyURLGenerator(cfg.Server.PublicURL)

	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		catalog: library.NewService(cfg.WebDAV, client, streams, logger.With().Str("component", "library").Logger()),
	}, nil
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Logger()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
