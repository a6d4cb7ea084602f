package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/tutor"
	"github.com/aretw0/tutor/pkg/adapters/mcp"
)

// Transports accepted by ServeMCP.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServeMCP exposes the stack as an MCP server until ctx is done (SSE) or
// stdin closes (stdio).
func ServeMCP(ctx context.Context, stack *Stack, transport string, port int) error {
	srv := mcp.NewServer(stack.Engine, tutor.Version, mcp.WithLogger(stack.Logger))

	switch transport {
	case TransportStdio:
		stack.Logger.Info("Starting tutor MCP server (stdio)")
		return srv.ServeStdio()
	case TransportSSE:
		stack.Logger.Info("Starting tutor MCP server (SSE)", "port", port)
		return srv.ServeSSE(ctx, port)
	}
	return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
}
