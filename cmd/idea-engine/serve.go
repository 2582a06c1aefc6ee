// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/idea-engine/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the idea pipeline as MCP tools over stdio",
	Long: `Serve starts an MCP server on stdin/stdout exposing idea submission,
stage runs, status, reset and reconcile as tools. Logs go to stderr.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	o, cleanup, err := newOrchestrator(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer cleanup()

	log.WithField("version", version).Info("mcp.serve.start")
	return mcpserver.Serve(mcpserver.New(o, version))
}
