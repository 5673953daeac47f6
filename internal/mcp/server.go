// Package mcp exposes the exercise catalog and completion progress to
// MCP clients.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("SpineCare", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("SpineCare back-pain exercise catalog. List exercise sets with completion progress, inspect a set's exercises in order, and read exercise instructions."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListExerciseSets, Handler: h.listExerciseSets},
		server.ServerTool{Tool: toolGetExerciseSet, Handler: h.getExerciseSet},
		server.ServerTool{Tool: toolGetExercise, Handler: h.getExercise},
	)

	s.AddResources(
		server.ServerResource{Resource: resCatalog, Handler: h.catalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

var resCatalog = mcp.NewResource(
	"spinecare://catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("Every exercise with its completion flag and every exercise set with its ordered exercise ids"),
	mcp.WithMIMEType("application/json"),
)
