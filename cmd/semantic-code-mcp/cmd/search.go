package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/semantic-code-mcp/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		limit      int
		filter     string
		language   string
		symbolType string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid semantic search against the index from the command line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			results, err := p.Engine.Search(cmd.Context(), args[0], search.SearchOptions{
				Limit:      limit,
				Filter:     filter,
				Language:   language,
				SymbolType: symbolType,
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no results")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s:%d-%d (score %.3f)\n",
					i+1, r.Chunk.FilePath, r.Chunk.StartLine, r.Chunk.EndLine, r.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	cmd.Flags().StringVar(&filter, "filter", "all", "result filter: all|code|docs")
	cmd.Flags().StringVar(&language, "language", "", "restrict to a programming language")
	cmd.Flags().StringVar(&symbolType, "symbol-type", "", "restrict to a symbol type (function, class, ...)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON results")
	return cmd
}
