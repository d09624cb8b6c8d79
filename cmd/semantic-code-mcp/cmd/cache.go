package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/semantic-code-mcp/internal/embed"
	"github.com/aman-cerp/semantic-code-mcp/internal/store"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the on-disk index and in-memory caches",
	}
	cmd.AddCommand(newCacheInfoCmd())
	cmd.AddCommand(newCacheStatsCmd())
	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print index location, size and embedding model provenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			ctx := cmd.Context()
			id := projectID(p.Root)
			project, err := p.Metadata.GetProject(ctx, id)
			if err != nil {
				return fmt.Errorf("load project metadata: %w", err)
			}

			indexModel, _ := p.Metadata.GetState(ctx, store.StateKeyIndexModel)
			embInfo := embed.GetInfo(ctx, p.Embedder)

			info := store.BuildIndexInfo(p.DataDir, p.Root, project, indexModel,
				embInfo.Model, string(embInfo.Provider), embInfo.Dimensions)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "location:        %s\n", info.Location)
			fmt.Fprintf(out, "project root:    %s\n", info.ProjectRoot)
			fmt.Fprintf(out, "index model:     %s (%s)\n", info.IndexModel, info.IndexBackend)
			fmt.Fprintf(out, "current model:   %s (%s, %d dims)\n", embInfo.Model, embInfo.Provider, embInfo.Dimensions)
			fmt.Fprintf(out, "documents:       %d\n", info.DocumentCount)
			fmt.Fprintf(out, "chunks:          %d\n", info.ChunkCount)
			fmt.Fprintf(out, "index size:      %s (bm25 %s, vector %s)\n",
				store.FormatBytes(info.IndexSizeBytes), store.FormatBytes(info.BM25SizeBytes), store.FormatBytes(info.VectorSizeBytes))
			fmt.Fprintf(out, "last updated:    %s\n", store.FormatTime(info.UpdatedAt))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print in-memory vector graph statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			hv, ok := p.Vector.(interface{ Stats() store.HNSWStats })
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "vector store does not expose statistics")
				return nil
			}
			stats := hv.Stats()
			fmt.Fprintf(out, "vector graph:    %d valid, %d nodes, %d orphans\n", stats.ValidIDs, stats.GraphNodes, stats.Orphans)
			return nil
		},
	}
}
