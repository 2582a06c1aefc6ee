// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mcpserver exposes the idea pipeline as MCP tools over stdio.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pdiddy/idea-engine/internal/pipeline"
	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// Pipeline is the orchestrator surface the tools drive.
type Pipeline interface {
	SubmitIdea(ctx context.Context, draft types.IdeaDraft) (types.Idea, error)
	ListIdeas(ctx context.Context, opts store.ListOptions) ([]types.Idea, error)
	RunStage(ctx context.Context, ideaID string, stage int) (*types.Evaluation, error)
	RunPipeline(ctx context.Context, ideaID string) ([]types.Evaluation, error)
	Status(ctx context.Context, ideaID string, activityLimit int) (pipeline.StatusView, error)
	ResetForReEvaluation(ctx context.Context, ideaID string) (pipeline.ResetResult, error)
	Reconcile(ctx context.Context, ideaID string) (bool, error)
}

var _ Pipeline = (*pipeline.Orchestrator)(nil)

// tool is one registered MCP tool.
type tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tools returns every tool bound to p.
func Tools(p Pipeline) []tool {
	return []tool{
		NewSubmitTool(p),
		NewListTool(p),
		NewRunStageTool(p),
		NewRunPipelineTool(p),
		NewStatusTool(p),
		NewResetTool(p),
		NewReconcileTool(p),
	}
}

// New creates the MCP server with all idea tools registered.
func New(p Pipeline, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"idea-engine",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, t := range Tools(p) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// Serve runs s on stdin and stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `Idea Engine evaluates business ideas through five automated stages:
2 problem validation, 3 market sizing, 4 impact assessment, 5 feasibility, 6 pitch deck.
Submit an idea with idea_submit, then run idea_run_pipeline or idea_run_stage.
A held stage (iterate, pivot, decline) stops the idea until it is edited or re-run.
Use idea_status to read the latest result of every stage.`
