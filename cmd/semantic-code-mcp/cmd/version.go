package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/semantic-code-mcp/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if full {
				fmt.Fprintln(cmd.OutOrStdout(), version.Full())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print build date and go runtime version too")
	return cmd
}
