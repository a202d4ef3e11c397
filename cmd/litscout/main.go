// Package main provides the litscout CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/config"
	"github.com/matsen/litscout/internal/logger"
	"github.com/matsen/litscout/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	projectDir  string
)

func main() {
	// A missing .env is fine; keys may come from the environment or config.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "litscout",
	Short: "Literature discovery and full-text acquisition CLI",
	Long: `litscout builds a literature corpus for a research project.

Core features:
  - Keyword search across Semantic Scholar, PubMed and OpenAlex
  - Citation expansion from seed papers with composite scoring
  - Full-text retrieval through an open access fallback chain
  - Manual PDF ingest for papers behind paywalls
  - LLM-ready text extraction, ranking and corpus reports

Papers live in papers.jsonl with an ephemeral SQLite index for queries.
All commands output JSON by default for AI agent integration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", "", "Project directory (default: current directory)")
	rootCmd.Version = Version
}

// startingDirectory returns --project-dir or the working directory.
func startingDirectory() string {
	if projectDir != "" {
		return config.ExpandPath(projectDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}
	return cwd
}

// mustLoadProject finds the enclosing project and loads its configuration,
// exits on error.
func mustLoadProject() *config.Config {
	root, err := config.FindProject(startingDirectory())
	if err != nil {
		if errors.Is(err, config.ErrNotProject) {
			exitWithError(ExitConfigError, "%v\n\nRun 'litscout init' to create one.", err)
		}
		exitWithError(ExitConfigError, "finding project: %v", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// newLogger builds the command logger honoring --verbose.
func newLogger() *zap.Logger {
	return logger.New(verbose)
}

// openStore returns the paper store and run logs of the project.
func openStore(cfg *config.Config) (*storage.Store, *storage.Logs) {
	return storage.NewStore(cfg.PapersPath()), storage.NewLogs(cfg.Dir)
}

// mustOpenIndex opens the SQLite index and rebuilds it from papers.jsonl.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenIndex(cfg *config.Config, store *storage.Store) *storage.DB {
	path := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(path)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	if _, err := db.RebuildFromStore(store); err != nil {
		db.Close()
		exitWithError(ExitDataError, "indexing papers: %v", err)
	}
	return db
}

// signalContext is canceled on Ctrl-C or SIGTERM so long runs stop
// between items.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
