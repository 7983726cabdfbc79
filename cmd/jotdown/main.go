package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/jotdown/internal/config"
	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/internal/generator"
	"github.com/dshills/jotdown/internal/logging"
	"github.com/dshills/jotdown/internal/storage"
	"github.com/dshills/jotdown/internal/thoughts"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// Persistent flags
var (
	dbPath   string
	logLevel string
	envFile  string
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the root command with args and returns the process exit code
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "jotdown",
		Short:         "Jot down short thoughts; they file and find themselves",
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default $JOTDOWN_DB_PATH or ~/.jotdown/jotdown.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(rmCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(keywordsCmd())
	rootCmd.AddCommand(liveCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(reindexCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(embedcheckCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// loadConfig reads the env file and environment, then applies flag overrides
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := logging.Stderr(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

// app holds the wired service and everything that must be closed with it
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   *storage.SQLiteStorage
	emb     embedder.Embedder
	gen     generator.Generator
	service *thoughts.Service
}

func getApp() (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig(logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	gen, err := generator.New(cfg.GeneratorConfig())
	if err != nil {
		_ = emb.Close()
		_ = store.Close()
		return nil, fmt.Errorf("generation provider: %w", err)
	}

	service := thoughts.New(store, emb, gen, thoughts.Options{
		MaxThoughtLength: cfg.MaxThoughtLength,
		Threshold:        &cfg.Threshold,
		SearchLimit:      cfg.SearchLimit,
		AnchorCacheSize:  cfg.AnchorCacheSize,
		Logger:           logger,
	})

	logger.Debug().
		Str("db", cfg.DBPath).
		Str("embedding", emb.Provider()).
		Str("generation", gen.Provider()).
		Msg("service ready")

	return &app{cfg: cfg, logger: logger, store: store, emb: emb, gen: gen, service: service}, nil
}

func (a *app) Close() error {
	return errors.Join(a.gen.Close(), a.emb.Close(), a.store.Close())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "jotdown %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
		},
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
