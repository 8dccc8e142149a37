// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/vecsync"
	"github.com/poiesic/vecsync/ai"
	"github.com/poiesic/vecsync/search"
	"github.com/poiesic/vecsync/storage"
	"github.com/poiesic/vecsync/syncer"
	"github.com/urfave/cli/v2"
)

const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

// errPartialFailure marks a run that completed but left some files stale.
var errPartialFailure = errors.New("sync completed with failures")

func main() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFatal)
	}

	err := newApp(os.Stdout).Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCode(err))
}

// loadDotEnv populates the environment from path. Existing variables win
// and a missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errPartialFailure):
		return exitPartial
	default:
		return exitFatal
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "vecsync",
		Usage:     "Synchronize a directory with a vector store",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"VECSYNC_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		// Exit codes are decided in main so that tests can run the app.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Delete stale records and re-embed every local file",
				Action: syncCommand,
				Flags:  append(storeFlags(), syncFlags()...),
			},
			{
				Name:      "search",
				Usage:     "Find the files most similar to a query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum cosine similarity",
						Value: float64(search.DefaultMinScore),
					},
				),
			},
		},
	}
}

func storeFlags() []cli.Flag {
	aiDefaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "Record store backend (supabase, postgres, badger)",
			Value:   string(vecsync.BackendSupabase),
			EnvVars: []string{"VECSYNC_BACKEND"},
		},
		&cli.StringFlag{
			Name:  "table",
			Usage: "Table holding the records",
			Value: storage.DefaultTable,
		},
		&cli.StringFlag{
			Name:    "supabase-url",
			Usage:   "Supabase project URL",
			EnvVars: []string{vecsync.EnvSupabaseURL},
		},
		&cli.StringFlag{
			Name:    "supabase-key",
			Usage:   "Supabase service role key",
			EnvVars: []string{vecsync.EnvSupabaseKey},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "PostgreSQL connection string (postgres backend)",
			EnvVars: []string{vecsync.EnvDatabaseURL},
		},
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Create the pgvector extension, table and index (postgres backend)",
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory (badger backend)",
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Usage:   "Embedding service API key",
			EnvVars: []string{vecsync.EnvOpenAIKey},
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: aiDefaults.EmbeddingHost,
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: aiDefaults.EmbeddingModel,
		},
		&cli.IntFlag{
			Name:  "dimensions",
			Usage: "Expected embedding dimensions (0 disables the check)",
			Value: aiDefaults.Dimensions,
		},
	}
}

func syncFlags() []cli.Flag {
	defaults := syncer.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "Directory to sync",
			Value:   ".",
		},
		&cli.StringFlag{
			Name:  "ignore-file",
			Usage: "Exclusion file relative to root",
			Value: ".gitignore",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Extra exclusion pattern (repeatable)",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Number of files processed concurrently",
			Value:   defaults.Workers,
		},
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "Attempts per remote or embedding call",
			Value: defaults.MaxAttempts,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: defaults.RetryDelay,
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N files",
			Value: defaults.ReportInterval,
		},
		&cli.IntFlag{
			Name:  "delete-batch-size",
			Usage: "Maximum paths per delete call",
			Value: defaults.DeleteBatchSize,
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Report what would change without touching the store",
		},
	}
}

// buildConfig maps flags onto a vecsync.Config. Sync settings are only
// read when the command defines them.
func buildConfig(c *cli.Context) *vecsync.Config {
	cfg := vecsync.DefaultConfig()
	cfg.Backend = vecsync.Backend(strings.ToLower(c.String("backend")))
	cfg.Table = c.String("table")
	cfg.SupabaseURL = c.String("supabase-url")
	cfg.SupabaseKey = c.String("supabase-key")
	cfg.DatabaseURL = c.String("database-url")
	cfg.Migrate = c.Bool("migrate")
	cfg.DBPath = c.String("db")

	cfg.AI = ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("openai-api-key")),
		ai.WithDimensions(c.Int("dimensions")),
	)

	if c.IsSet("root") || c.String("root") != "" {
		cfg.Root = c.String("root")
		cfg.IgnoreFile = c.String("ignore-file")
		cfg.Excludes = c.StringSlice("exclude")
		cfg.Sync = &syncer.Config{
			Workers:         c.Int("workers"),
			MaxAttempts:     c.Int("max-attempts"),
			RetryDelay:      c.Duration("retry-delay"),
			ReportInterval:  c.Int("report-interval"),
			DeleteBatchSize: c.Int("delete-batch-size"),
			DryRun:          c.Bool("dry-run"),
		}
	}
	return cfg
}

func syncCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := buildConfig(c)
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := vecsync.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewPipeline(syncer.WithProgress(c.App.ErrWriter))
	if err != nil {
		return err
	}

	summary, err := pipeline.Run(ctx)
	if summary != nil {
		printSummary(c.App.Writer, summary)
	}
	if err != nil {
		return err
	}
	if runErr := summary.Err(); runErr != nil {
		return fmt.Errorf("%w: %w", errPartialFailure, runErr)
	}
	return nil
}

func printSummary(w io.Writer, s *syncer.Summary) {
	verb := "Deleted"
	if s.DryRun {
		verb = "Would delete"
	}
	fmt.Fprintf(w, "Run %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Local files:  %d\n", s.LocalFiles)
	fmt.Fprintf(w, "  Remote paths: %d\n", s.RemotePaths)
	fmt.Fprintf(w, "  %s: %d\n", verb, len(s.Deleted))
	if s.DryRun {
		fmt.Fprintf(w, "  Would upsert: %d\n", s.Planned)
	} else {
		fmt.Fprintf(w, "  Upserted: %d\n", s.Upserted)
	}
	fmt.Fprintf(w, "  Skipped (blank): %d\n", s.Skipped)
	fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	if s.DeleteErr != nil {
		fmt.Fprintf(w, "  Delete error: %v\n", s.DeleteErr)
	}
	for _, f := range s.Failures() {
		fmt.Fprintf(w, "    %v\n", f.Err)
	}
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	ctx, cancel := context.WithTimeout(c.Context, 2*time.Minute)
	defer cancel()

	cfg := buildConfig(c)
	if err := cfg.ValidateStore(); err != nil {
		return err
	}

	db, err := vecsync.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher(search.WithMinScore(float32(c.Float64("min-score"))))
	if err != nil {
		return err
	}

	results, err := searcher.FindSimilar(ctx, query, c.Int("limit"))
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(c.App.Writer, "No results found.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(c.App.Writer, "%2d. %.3f  %s\n", i+1, r.Score, r.Record.FilePath)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
