package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/dqscore/internal/core/port"
	"github.com/guillermoBallester/dqscore/internal/core/service"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

const instructions = "Data quality assessment. Use assess_file for files the server can read, " +
	"assess_content to send file content inline, and assess_query (when available) for SQL result sets."

// NewServer creates an MCPServer with the assessment tools and logging hooks.
func NewServer(version string, svc *service.AssessmentService, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions(instructions),
		server.WithRecovery(),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, svc, logger)

	return s
}
