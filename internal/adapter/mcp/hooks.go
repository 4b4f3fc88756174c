package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pavestack/sheetmatch/internal/core/port"
)

type callState struct {
	start time.Time
	span  trace.Span
}

// ToolCallHooks logs every tool call and, when given, records a span and the
// call duration. tracer and inst may be nil.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	hooks := &server.Hooks{}
	var calls sync.Map // request id -> *callState

	finish := func(ctx context.Context, id any, tool string, callErr error) {
		var state *callState
		if v, ok := calls.LoadAndDelete(id); ok {
			state = v.(*callState)
		}
		var duration time.Duration
		if state != nil {
			duration = time.Since(state.start)
		}

		level := slog.LevelInfo
		attrs := []slog.Attr{
			slog.String("rpc.method", string(mcp.MethodToolsCall)),
			slog.String("mcp.tool", tool),
			slog.Duration("duration", duration),
			slog.Bool("error", callErr != nil),
		}
		if callErr != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.String("error.message", callErr.Error()))
		}
		logger.LogAttrs(ctx, level, "tool call", attrs...)

		if inst != nil {
			inst.RecordToolDuration(ctx, float64(duration.Milliseconds()))
		}
		if state != nil && state.span != nil {
			if callErr != nil {
				state.span.RecordError(callErr)
				state.span.SetStatus(codes.Error, callErr.Error())
			}
			state.span.End()
		}
	}

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		state := &callState{start: time.Now()}
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
		finish(ctx, id, req.Params.Name, callErr)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		req, ok := message.(*mcp.CallToolRequest)
		if !ok {
			return
		}
		finish(ctx, id, req.Params.Name, err)
	})

	return hooks
}
