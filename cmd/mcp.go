package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server (stdio) for AI/IDE integration",
	Long: `Run the Model Context Protocol server on stdio. Exposes parse_env (variables
with secrets masked), check_env (parse problems with locations), get_var
(one variable, masked if secret), history_recent and history_verify.
Plaintext secret values are never returned.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	version := rootCmd.Version
	if version == "" {
		version = "dev"
	}
	return mcpserver.Run(cmd.Context(), version)
}
