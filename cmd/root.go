package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/logging"
	"github.com/abhisek/quizgen/internal/store"
)

// logger is built before any subcommand runs.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:          "quizgen",
	Short:        "Generate educational quiz illustrations",
	Long:         "quizgen drafts image prompts for quiz questions, generates the images with OpenAI or Imagen, and stores them.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		cfg := logging.ConfigFromEnv()
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Level = lvl
		}
		l, err := logging.New(cfg)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the CLI. ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QUIZGEN_DB env var)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file to load if present")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides QUIZGEN_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("blob-dir", "", "Directory images are stored in (overrides QUIZGEN_BLOB_DIR)")
	rootCmd.PersistentFlags().String("public-url", "", "Public URL prefix of the blob directory (overrides QUIZGEN_PUBLIC_URL)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then QUIZGEN_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
