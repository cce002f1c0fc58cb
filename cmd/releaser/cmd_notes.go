package main

import (
	"fmt"
	"io"

	"github.com/human-glitch/github-releaser/internal/trace"

	"github.com/spf13/cobra"
)

var notesCmd = &cobra.Command{
	Use:   "notes <tag> [previous-tag]",
	Short: "Preview formatted notes for a tag without publishing",
	Long: `notes asks GitHub to generate the release notes for <tag> (which does not
have to exist yet) against [previous-tag] and prints them grouped by ticket.
Nothing in the repository is changed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runNotes,
}

func runNotes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// previews are deterministic
	cfg.LLM.Enabled = false

	ctx, cancel := signalContext(cmd.Context(), timeout)
	defer cancel()
	ctx = trace.NewContext(ctx, trace.NewTraceID(trace.ReleasePrefix))

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var previous string
	if len(args) > 1 {
		previous = args[1]
	}
	body, err := a.releaser.Preview(ctx, args[0], previous)
	if err != nil {
		return fmt.Errorf("preview %s failed: %w", args[0], err)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), body)
	return err
}
