package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vecsync/ai"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/fileset"
	"github.com/poiesic/vecsync/storage"
	"golang.org/x/sync/errgroup"
)

// Pipeline synchronizes a local directory with a record store.
type Pipeline struct {
	store    storage.RecordStore
	embedder ai.Embedder
	root     string
	resolve  fileset.Options
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithConfig sets run configuration.
// Default is DefaultConfig().
func WithConfig(config *Config) Option {
	return func(p *Pipeline) error {
		if config == nil {
			config = DefaultConfig()
		}
		if err := config.Validate(); err != nil {
			return err
		}
		p.config = config
		return nil
	}
}

// WithFilesetOptions sets the exclusion rules used to resolve the local set.
func WithFilesetOptions(opts fileset.Options) Option {
	return func(p *Pipeline) error {
		p.resolve = opts
		return nil
	}
}

// WithProgress sets where progress lines are written. Default is no output.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline that syncs root into store.
func NewPipeline(store storage.RecordStore, embedder ai.Embedder, root string, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if root == "" {
		return nil, ErrRootRequired
	}

	p := &Pipeline{
		store:    store,
		embedder: embedder,
		root:     root,
		config:   DefaultConfig(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "syncer")

	return p, nil
}

// Run performs one sync. The returned error is non-nil only when the run
// could not complete: resolving or fetching failed, or ctx was cancelled.
// Per-file and delete failures are reported through Summary.Err.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		RunID:  uuid.NewString(),
		DryRun: p.config.DryRun,
	}
	logger := p.logger.With("run", summary.RunID)
	defer func() { summary.Duration = time.Since(start) }()

	local, remote, err := p.gather(ctx, logger)
	if err != nil {
		return nil, err
	}
	summary.LocalFiles = len(local)
	summary.RemotePaths = remote.Len()
	logger.Info("sets resolved", "local", len(local), "remote", remote.Len())

	stale := Reconcile(core.PathSetFromFiles(local), remote)
	p.deleteStale(ctx, logger, stale, summary)

	err = p.ingest(ctx, logger, local, summary)
	summary.tally()

	logger.Info("sync complete",
		"upserted", summary.Upserted,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"planned", summary.Planned,
		"deleted", len(summary.Deleted),
		"elapsed", time.Since(start))

	return summary, err
}

// gather resolves the local set and fetches the remote set concurrently.
func (p *Pipeline) gather(ctx context.Context, logger *slog.Logger) ([]core.LocalFile, core.PathSet, error) {
	var (
		local  []core.LocalFile
		remote core.PathSet
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		opts := p.resolve
		if opts.Logger == nil {
			opts.Logger = logger
		}
		files, err := fileset.Resolve(p.root, opts)
		if err != nil {
			return fmt.Errorf("resolving local files: %w", err)
		}
		local = files
		return nil
	})
	g.Go(func() error {
		paths, err := p.fetchRemote(gctx)
		if err != nil {
			return err
		}
		remote = paths
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("aborting before any change", "err", err)
		return nil, nil, err
	}
	return local, remote, nil
}

func (p *Pipeline) fetchRemote(ctx context.Context) (core.PathSet, error) {
	var paths []string
	err := RetryWithBackoff(ctx, func() error {
		var err error
		paths, err = p.store.ListPaths(ctx)
		return err
	}, p.config.MaxAttempts, p.config.RetryDelay)
	if err != nil {
		return nil, &core.RemoteQueryError{Err: err}
	}
	return core.NewPathSet(paths...), nil
}

// deleteStale removes stale paths in sorted batches. An empty set issues no call.
func (p *Pipeline) deleteStale(ctx context.Context, logger *slog.Logger, stale core.PathSet, summary *Summary) {
	if stale.Len() == 0 {
		logger.Info("no stale records to delete")
		return
	}

	paths := stale.Sorted()
	if p.config.DryRun {
		summary.Deleted = paths
		logger.Info("dry run: would delete stale records", "count", len(paths))
		return
	}

	logger.Info("deleting stale records", "count", len(paths))
	var (
		failed []string
		errs   []error
	)
	for _, batch := range batches(paths, p.config.DeleteBatchSize) {
		err := RetryWithBackoff(ctx, func() error {
			return p.store.DeletePaths(ctx, batch...)
		}, p.config.MaxAttempts, p.config.RetryDelay)
		if err != nil {
			failed = append(failed, batch...)
			errs = append(errs, err)
			continue
		}
		summary.Deleted = append(summary.Deleted, batch...)
	}

	if len(failed) > 0 {
		summary.DeleteErr = &core.RemoteDeleteError{Paths: failed, Err: errors.Join(errs...)}
		logger.Error("error deleting stale records", "failed", len(failed), "err", summary.DeleteErr)
		return
	}
	logger.Info("deleted stale records", "count", len(summary.Deleted))
}

// ingest processes every local file on a bounded pool. Submission stops
// when ctx is cancelled; files already running finish.
func (p *Pipeline) ingest(ctx context.Context, logger *slog.Logger, files []core.LocalFile, summary *Summary) error {
	pool, err := ants.NewPool(p.config.Workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	tracker := NewProgressTracker(p.progress, len(files), p.config.ReportInterval)
	tracker.Start()

	taskCtx := context.WithoutCancel(ctx)
	results := make([]FileResult, len(files))
	submitted := 0
	var wg sync.WaitGroup

	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitted++
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = p.processFile(taskCtx, logger, f)
			tracker.Increment(1)
		})
		if err != nil {
			wg.Done()
			results[i] = p.fail(logger, f.Path, core.StageRead, err)
			tracker.Increment(1)
		}
	}

	wg.Wait()
	tracker.Finish()
	summary.Results = results[:submitted]

	if err := ctx.Err(); err != nil {
		logger.Warn("sync cancelled", "processed", submitted, "total", len(files))
		return err
	}
	return nil
}

// processFile reads, embeds and upserts one file. Each stage failure is
// confined to this file.
func (p *Pipeline) processFile(ctx context.Context, logger *slog.Logger, f core.LocalFile) FileResult {
	data, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return p.fail(logger, f.Path, core.StageRead, err)
	}
	content := strings.ToValidUTF8(string(data), "\uFFFD")
	if core.IsBlank(content) {
		logger.Debug("skipping blank file", "path", f.Path)
		return FileResult{Path: f.Path, Status: StatusSkipped}
	}

	info, err := os.Stat(f.AbsPath)
	if err != nil {
		return p.fail(logger, f.Path, core.StageStat, err)
	}

	if p.config.DryRun {
		logger.Debug("dry run: would upsert", "path", f.Path)
		return FileResult{Path: f.Path, Status: StatusPlanned}
	}

	logger.Debug("generating embedding", "path", f.Path)
	var vector []float32
	err = RetryWithBackoff(ctx, func() error {
		var err error
		vector, err = p.embedder.EmbedText(ctx, content)
		if err == nil && len(vector) == 0 {
			err = ai.ErrEmptyEmbedding
		}
		return err
	}, p.config.MaxAttempts, p.config.RetryDelay)
	if err != nil {
		return p.fail(logger, f.Path, core.StageEmbed, err)
	}

	record := &core.Record{
		FilePath:  f.Path,
		Content:   content,
		Embedding: vector,
		Metadata: core.Metadata{
			FileExtension: f.Extension,
			FileSizeBytes: info.Size(),
		},
	}
	err = RetryWithBackoff(ctx, func() error {
		return p.store.UpsertRecord(ctx, record)
	}, p.config.MaxAttempts, p.config.RetryDelay)
	if err != nil {
		return p.fail(logger, f.Path, core.StageUpsert, err)
	}

	logger.Info("ingested file", "path", f.Path, "bytes", info.Size())
	return FileResult{Path: f.Path, Status: StatusUpserted}
}

func (p *Pipeline) fail(logger *slog.Logger, path string, stage core.Stage, err error) FileResult {
	logger.Error("error processing file", "path", path, "stage", stage, "err", err)
	return FileResult{
		Path:   path,
		Status: StatusFailed,
		Err:    &core.FileProcessingError{Path: path, Stage: stage, Err: err},
	}
}
