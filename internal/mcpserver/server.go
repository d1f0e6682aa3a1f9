package mcpserver

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// handler adapts a tool function to the SDK signature. Tool failures are
// reported in the result, not as protocol errors.
func handler[A any](name string, fn func(A) (map[string]any, error)) mcpsdk.ToolHandlerFor[A, any] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args A) (*mcpsdk.CallToolResult, any, error) {
		out, err := fn(args)
		if err != nil {
			log.Debug().Err(err).Str("component", "mcp").Str("tool", name).Msg("tool failed")
			return errorResult(err.Error()), nil, nil
		}
		return successResult(out), nil, nil
	}
}

func NewServer(version string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "dotenvy",
		Version: version,
	}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "parse_env",
		Description: "Parse the project's env files and list every variable with substitutions applied. Values that look like secrets are masked (e.g. ****WXYZ); plain values such as ports, flags and URLs without credentials are returned as-is.",
	}, handler("parse_env", parseEnv))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "check_env",
		Description: "Validate env files without stopping at the first bad line. Returns each problem with file, line, column and the offending text. Never returns values.",
	}, handler("check_env", checkEnv))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "get_var",
		Description: "Get one variable from the project's env files. Secret-looking values are masked; the length is always reported.",
	}, handler("get_var", getVar))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "history_recent",
		Description: "Show recent entries of the project's dotenvy history log (loads, runs, checks and tool calls). Entries hold key names only.",
	}, handler("history_recent", historyRecent))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "history_verify",
		Description: "Verify the hash chain of the history log and report any lines that were edited or removed.",
	}, handler("history_verify", historyVerify))

	return server
}

// Run serves the tools on stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, version string) error {
	return NewServer(version).Run(ctx, &mcpsdk.StdioTransport{})
}
