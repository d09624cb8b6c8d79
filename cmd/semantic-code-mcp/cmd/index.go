package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/semantic-code-mcp/internal/config"
	"github.com/aman-cerp/semantic-code-mcp/internal/index"
	"github.com/aman-cerp/semantic-code-mcp/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan the project root and build (or rebuild) the index",
		Long: `index performs the one-shot scan, chunk, embed and upsert pass:
every supported file under --root not matched by an ignore pattern is
hashed, chunked, embedded and written to the vector and BM25 stores.
Unchanged files (same content hash) are skipped.

Run 'semantic-code-mcp mcp serve' afterward to query the index, or let
serve build a missing index in the background as soon as it starts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			cfg, err := config.Load(root)
			if err != nil {
				cfg = config.NewConfig()
			}
			dataDir := resolveDataDir(root, cfg)

			if force {
				if err := os.RemoveAll(dataDir); err != nil {
					return fmt.Errorf("clear existing index: %w", err)
				}
			}

			lock := index.NewWriteLock(dataDir)
			acquired, err := lock.TryLock()
			if err != nil {
				return err
			}
			if !acquired {
				return fmt.Errorf("index directory %s is locked by another process", dataDir)
			}
			defer func() { _ = lock.Unlock() }()

			p, err := openProject(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			deps := index.RunnerDependencies{
				Renderer: ui.NewPlainRenderer(cmd.OutOrStdout()),
				Config:   p.Config,
				Metadata: p.Metadata,
				BM25:     p.BM25,
				Vector:   p.Vector,
				Embedder: p.Embedder,
			}
			runner, err := index.NewRunner(deps)
			if err != nil {
				return err
			}
			defer func() { _ = runner.Close() }()

			result, err := runner.Run(cmd.Context(), index.RunnerConfig{
				RootDir: root,
				DataDir: dataDir,
				Offline: flagOffline,
			})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files, %d chunks in %s (%d errors, %d warnings)\n",
				result.Files, result.Chunks, result.Duration.Round(1_000_000), result.Errors, result.Warnings)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "delete the existing index directory before indexing")
	return cmd
}
