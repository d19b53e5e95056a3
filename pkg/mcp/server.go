// Package mcp exposes the saga engine to agents over the Model Context
// Protocol (stdio transport).
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/sagaline/internal/engine"
	"github.com/rendis/sagaline/internal/store"
)

// SagalineServerDeps holds the dependencies for creating a SagalineServer.
type SagalineServerDeps struct {
	Service *engine.Service
	Store   store.Store
	Logger  *slog.Logger
}

// SagalineServer wraps an MCP server with saga-specific tool handlers.
type SagalineServer struct {
	service   *engine.Service
	store     store.Store
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewSagalineServer creates a new SagalineServer with all 6 tools registered.
func NewSagalineServer(deps SagalineServerDeps) *SagalineServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &SagalineServer{
		service: deps.Service,
		store:   deps.Store,
		logger:  logger,
	}

	mcpSrv := server.NewMCPServer(
		"sagaline",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Sagaline executes declarative saga specifications against virtual actors. Use saga.validate to check a spec, saga.register to store it, saga.run to start a run, saga.status to inspect progress and coverage, saga.cancel to stop a run, and saga.message to inject an actor message mid-run."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *SagalineServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *SagalineServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *SagalineServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: registerTool(), Handler: s.handleRegister},
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: statusTool(), Handler: s.handleStatus},
		{Tool: cancelTool(), Handler: s.handleCancel},
		{Tool: messageTool(), Handler: s.handleMessage},
	}
}

// --- Tool definitions ---

func validateTool() mcp.Tool {
	return mcp.NewTool("saga.validate",
		mcp.WithDescription("Validate a saga specification document without running it"),
		mcp.WithString("spec", mcp.Required(), mcp.Description("The saga specification as a JSON string")),
	)
}

func registerTool() mcp.Tool {
	return mcp.NewTool("saga.register",
		mcp.WithDescription("Validate a saga specification and store it in the registry under its sagaKey"),
		mcp.WithString("spec", mcp.Required(), mcp.Description("The saga specification as a JSON string")),
	)
}

func runTool() mcp.Tool {
	return mcp.NewTool("saga.run",
		mcp.WithDescription("Start a run of a saga, either from a registered sagaKey or from an inline spec"),
		mcp.WithString("saga_key", mcp.Description("Key of a registered saga to run")),
		mcp.WithString("spec", mcp.Description("Inline saga specification as a JSON string (alternative to saga_key)")),
		mcp.WithString("mode", mcp.Enum("dry_run", "live"), mcp.Description("Run mode override (default: spec's defaults.runMode)")),
		mcp.WithObject("params", mcp.Description("Operator parameters exposed to condition probes")),
	)
}

func statusTool() mcp.Tool {
	return mcp.NewTool("saga.status",
		mcp.WithDescription("Get a run's status, step outcomes, message history and coverage"),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the run to query")),
	)
}

func cancelTool() mcp.Tool {
	return mcp.NewTool("saga.cancel",
		mcp.WithDescription("Cancel an in-flight run; the cancel is observed at the next suspension point"),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the run to cancel")),
	)
}

func messageTool() mcp.Tool {
	return mcp.NewTool("saga.message",
		mcp.WithDescription("Inject an operator-composed actor message into an active run"),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the active run")),
		mcp.WithString("to_actor_key", mcp.Required(), mcp.Description("Target actor key (must exist in the run's actor profiles)")),
		mcp.WithString("channel", mcp.Description("Delivery channel (email, sms, push, in_app; default in_app)")),
		mcp.WithString("subject", mcp.Description("Optional message subject")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Message body (non-empty)")),
	)
}
