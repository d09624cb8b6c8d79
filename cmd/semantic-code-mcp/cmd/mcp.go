package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/semantic-code-mcp/internal/async"
	"github.com/aman-cerp/semantic-code-mcp/internal/chunk"
	"github.com/aman-cerp/semantic-code-mcp/internal/config"
	"github.com/aman-cerp/semantic-code-mcp/internal/index"
	mcpserver "github.com/aman-cerp/semantic-code-mcp/internal/mcp"
	"github.com/aman-cerp/semantic-code-mcp/internal/scanner"
	"github.com/aman-cerp/semantic-code-mcp/internal/ui"
	"github.com/aman-cerp/semantic-code-mcp/internal/watcher"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server commands",
	}
	cmd.AddCommand(newMCPServeCmd())
	return cmd
}

func newMCPServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the stdio MCP server and expose semantic_search to AI clients",
		Long: `serve opens the index (starting a background build at once if it
does not exist yet), starts a file watcher that keeps the index current as
the project changes, and blocks serving JSON-RPC requests over stdio.

Only one serve or index process may hold the index directory's write lock
at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := rootLogger()
			slog.SetDefault(logger)

			root, err := resolveRoot()
			if err != nil {
				return err
			}
			cfg, err := config.Load(root)
			if err != nil {
				cfg = config.NewConfig()
			}
			dataDir := resolveDataDir(root, cfg)

			lock := index.NewWriteLock(dataDir)
			acquired, err := lock.TryLock()
			if err != nil {
				return err
			}
			if !acquired {
				return fmt.Errorf("index directory %s is locked by another process", dataDir)
			}
			defer func() { _ = lock.Unlock() }()

			needsIndex := !indexExists(dataDir)

			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			server, err := mcpserver.NewServer(p.Engine, p.Metadata, p.Embedder, p.Config, p.Root)
			if err != nil {
				return fmt.Errorf("create MCP server: %w", err)
			}
			if p.Metrics != nil {
				server.SetMetrics(p.Metrics)
			}

			if needsIndex {
				progress := async.NewIndexProgress()
				server.SetIndexProgress(progress)
				go runBackgroundIndex(ctx, p, dataDir, progress, logger)
			}

			watchCancel, err := startWatcher(ctx, p, dataDir, logger)
			if err != nil {
				logger.Warn("file watcher unavailable, index will not update automatically", slog.String("error", err.Error()))
			} else {
				defer watchCancel()
			}

			return server.Serve(ctx, "stdio", "")
		},
	}
}

// progressRenderer adapts the Runner's ui.Renderer callbacks onto an
// async.IndexProgress so the MCP tool handler can report lazy-indexing
// status without blocking on it.
type progressRenderer struct {
	progress *async.IndexProgress
}

func (r *progressRenderer) Start(ctx context.Context) error { return nil }

func (r *progressRenderer) UpdateProgress(event ui.ProgressEvent) {
	switch event.Stage {
	case ui.StageScanning:
		r.progress.SetStage(async.StageScanning, event.Total)
	case ui.StageChunking:
		r.progress.SetStage(async.StageChunking, event.Total)
		r.progress.UpdateFiles(event.Current)
	case ui.StageEmbedding:
		r.progress.SetStage(async.StageEmbedding, event.Total)
		r.progress.SetChunksTotal(event.Total)
		r.progress.UpdateChunks(event.Current)
	case ui.StageIndexing:
		r.progress.SetStage(async.StageIndexing, event.Total)
	case ui.StageComplete:
		r.progress.SetReady()
	}
}

func (r *progressRenderer) AddError(event ui.ErrorEvent) {}

func (r *progressRenderer) Complete(stats ui.CompletionStats) { r.progress.SetReady() }

func (r *progressRenderer) Stop() {}

// runBackgroundIndex performs the one-shot indexing pass the lazy
// initialization path defers until the server is already serving requests.
func runBackgroundIndex(ctx context.Context, p *project, dataDir string, progress *async.IndexProgress, logger *slog.Logger) {
	deps := index.RunnerDependencies{
		Renderer: &progressRenderer{progress: progress},
		Config:   p.Config,
		Metadata: p.Metadata,
		BM25:     p.BM25,
		Vector:   p.Vector,
		Embedder: p.Embedder,
	}
	runner, err := index.NewRunner(deps)
	if err != nil {
		progress.SetError(err.Error())
		logger.Error("background index setup failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = runner.Close() }()

	result, err := runner.Run(ctx, index.RunnerConfig{RootDir: p.Root, DataDir: dataDir, Offline: flagOffline})
	if err != nil {
		progress.SetError(err.Error())
		logger.Error("background index failed", slog.String("error", err.Error()))
		return
	}
	progress.SetReady()
	logger.Info("background index complete",
		slog.Int("files", result.Files), slog.Int("chunks", result.Chunks), slog.Duration("duration", result.Duration))
}

// startWatcher starts a file watcher over the project root and forwards
// batches of events into an index.Coordinator for incremental updates. The
// returned cancel function stops the watcher.
func startWatcher(ctx context.Context, p *project, dataDir string, logger *slog.Logger) (func(), error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	coordinator := index.NewCoordinator(index.CoordinatorConfig{
		ProjectID:       projectID(p.Root),
		RootPath:        p.Root,
		DataDir:         dataDir,
		Engine:          p.Engine,
		Metadata:        p.Metadata,
		CodeChunker:     chunk.NewCodeChunker(),
		MDChunker:       chunk.NewMarkdownChunker(),
		Scanner:         sc,
		ExcludePatterns: p.Config.Paths.Exclude,
	})

	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx, p.Root); err != nil {
		return nil, fmt.Errorf("start watcher: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case events, ok := <-w.Events():
				if !ok {
					return
				}
				if err := coordinator.HandleEvents(watchCtx, events); err != nil {
					logger.Warn("incremental index update failed", slog.String("error", err.Error()))
				}
			case err, ok := <-w.Errors():
				if !ok {
					continue
				}
				logger.Warn("watcher error", slog.String("error", err.Error()))
			}
		}
	}()

	return func() {
		cancel()
		_ = w.Stop()
	}, nil
}
