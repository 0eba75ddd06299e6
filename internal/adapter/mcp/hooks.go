package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/dqscore/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// callState holds per-request timing and span data.
type callState struct {
	tool  string
	start time.Time
	span  trace.Span
}

// ToolCallHooks creates MCP hooks that log tool calls and record OTel
// spans and the tool duration metric. tracer and inst may be nil.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	hooks := &server.Hooks{}
	var calls sync.Map // id -> *callState

	finish := func(ctx context.Context, id any, callErr error) {
		v, ok := calls.LoadAndDelete(id)
		if !ok {
			return
		}
		state := v.(*callState)
		duration := time.Since(state.start)

		attrs := []slog.Attr{
			slog.String("rpc.method", "tools/call"),
			slog.String("mcp.tool", state.tool),
			slog.Duration("duration", duration),
			slog.Bool("error", callErr != nil),
		}
		level := slog.LevelInfo
		if callErr != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.String("error.message", callErr.Error()))
		}
		logger.LogAttrs(ctx, level, "tool call", attrs...)

		if inst != nil {
			inst.RecordToolDuration(ctx, float64(duration.Milliseconds()))
		}
		if state.span != nil {
			if callErr != nil {
				state.span.RecordError(callErr)
				state.span.SetStatus(codes.Error, callErr.Error())
			}
			state.span.End()
		}
	}

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		state := &callState{tool: req.Params.Name, start: time.Now()}
		if tracer != nil {
			_, state.span = tracer.Start(ctx, "mcp.tool.call",
				trace.WithAttributes(attribute.String("mcp.tool", req.Params.Name)),
			)
		}
		calls.Store(id, state)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
		var callErr error
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			callErr = fmt.Errorf("tool %s returned error", req.Params.Name)
		}
		finish(ctx, id, callErr)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		if method != mcp.MethodToolsCall {
			return
		}
		finish(ctx, id, err)
	})

	return hooks
}
