// Package mcp provides the stdio MCP server exposing sanitization tools for
// coding agents.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/go-ports/wordmask/internal/buildinfo"
	"github.com/go-ports/wordmask/internal/service"
)

const sanitizeDescription = `Mask sensitive words in a piece of text. Every configured sensitive word that appears as a whole word (case-insensitive) is replaced by asterisks of the same length. Call this before storing, logging or sending text that may contain confidential terms.` //nolint:lll

const sanitizeBatchDescription = `Mask sensitive words in several texts at once. Returns the sanitized texts in the same order as the input.`

const listWordsDescription = `List the configured sensitive words with their ids.`

// maxPreview bounds how much of a tool argument is echoed in logs.
const maxPreview = 40

// NewServer creates and registers all wordmask tools on a new MCP server.
// It is separate from Serve so that tests and other callers can obtain a
// fully configured server without committing to the stdio transport.
func NewServer(svc *service.Service, logger *zap.Logger) *mcpserver.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := mcpserver.NewMCPServer("wordmask", buildinfo.Version)
	registerTools(s, svc, logger.Named("mcp"))
	return s
}

// Serve starts the stdio MCP server over svc, blocking until stdin closes.
func Serve(ctx context.Context, svc *service.Service, logger *zap.Logger) error {
	svc.Listen(ctx)
	return mcpserver.ServeStdio(NewServer(svc, logger))
}

// registerTools wires all three MCP tools into the server.
func registerTools(s *mcpserver.MCPServer, svc *service.Service, logger *zap.Logger) {
	s.AddTool(mcp.NewTool("sanitize",
		mcp.WithDescription(sanitizeDescription),
		mcp.WithString("text",
			mcp.Description("Text to sanitize."),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSanitize(ctx, svc, logger, req)
	})

	s.AddTool(mcp.NewTool("sanitize_batch",
		mcp.WithDescription(sanitizeBatchDescription),
		mcp.WithArray("texts",
			mcp.Description("Texts to sanitize."),
			mcp.WithStringItems(),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSanitizeBatch(ctx, svc, logger, req)
	})

	s.AddTool(mcp.NewTool("list_words",
		mcp.WithDescription(listWordsDescription),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListWords(ctx, svc, logger)
	})
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func handleSanitize(ctx context.Context, svc *service.Service, logger *zap.Logger, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	out, err := svc.Sanitize(ctx, text)
	if err != nil {
		return toolError(logger, "sanitize", truncate(text, maxPreview), err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func handleSanitizeBatch(ctx context.Context, svc *service.Service, logger *zap.Logger, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	texts := req.GetStringSlice("texts", make([]string, 0))
	out, err := svc.SanitizeBatch(ctx, texts)
	if err != nil {
		return toolError(logger, "sanitize_batch", "", err), nil
	}
	return jsonResult(out)
}

func handleListWords(ctx context.Context, svc *service.Service, logger *zap.Logger) (*mcp.CallToolResult, error) {
	entries, err := svc.ListEntries(ctx)
	if err != nil {
		return toolError(logger, "list_words", "", err), nil
	}
	return jsonResult(map[string]any{
		"total": len(entries),
		"words": entries,
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// toolError converts err into an MCP error result. Internal failures are
// logged and reported without their details.
func toolError(logger *zap.Logger, tool, preview string, err error) *mcp.CallToolResult {
	if msg, ok := service.Message(err); ok {
		return mcp.NewToolResultError(msg)
	}
	logger.Error("tool call failed", zap.String("tool", tool), zap.String("input", preview), zap.Error(err))
	return mcp.NewToolResultError("internal error")
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return s
}
