// Command semantic-code-mcp serves semantic code search over a local source
// tree to AI developer tools via the Model Context Protocol.
package main

import (
	"os"

	"github.com/aman-cerp/semantic-code-mcp/cmd/semantic-code-mcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
