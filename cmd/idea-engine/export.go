// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/idea-engine/internal/export"
	"github.com/pdiddy/idea-engine/internal/store"
	"github.com/pdiddy/idea-engine/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ideas ready for voting with their stage results",
	Long: `Export writes every idea with the given status (default
ready_for_voting) together with its latest stage scores and pitch deck.

Formats: yaml (default), json and xlsx. Without --output the result is
written to stdout; xlsx requires --output. When --format is omitted the
output file extension selects it.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", "", "output format: yaml, json, xlsx")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().String("status", string(types.StatusReadyForVoting), "status of the ideas to export")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatName, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	status, _ := cmd.Flags().GetString("status")

	if formatName == "" {
		formatName = string(export.FormatYAML)
		if ext := filepath.Ext(output); ext != "" {
			formatName = ext
		}
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	if format == export.FormatXLSX && output == "" {
		return fmt.Errorf("xlsx export requires --output")
	}

	opts := store.ListOptions{Status: types.IdeaStatus(status)}
	if !opts.Status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := export.New(st, log).Entries(ctx, opts)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		if dir := filepath.Dir(output); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
		}
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	if err := export.Write(w, format, entries); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d idea(s) to %s\n", len(entries), output)
	}
	return nil
}
