package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/human-glitch/github-releaser/internal/release"
	"github.com/human-glitch/github-releaser/internal/trace"

	"github.com/spf13/cobra"
)

var (
	releaseDryRun        bool
	releaseAutoIncrement bool
	releaseNoLLM         bool
	releaseBranch        string
)

var releaseCmd = &cobra.Command{
	Use:   "release <tag>",
	Short: "Create or replace the release for a tag and format its notes",
	Long: `release deletes the existing release and tag (unless --auto-increment finds a
published release and bumps the patch version instead), tags the head of the
matching release/vX.Y.x branch, creates the release with GitHub-generated notes
and rewrites them grouped by ticket.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelease,
}

func init() {
	releaseCmd.Flags().BoolVar(&releaseDryRun, "dry-run", false, "Resolve tag and branch without changing anything")
	releaseCmd.Flags().BoolVar(&releaseAutoIncrement, "auto-increment", false, "Bump the patch version while a published release exists")
	releaseCmd.Flags().BoolVar(&releaseNoLLM, "no-llm", false, "Skip the LLM pass")
	releaseCmd.Flags().StringVar(&releaseBranch, "default-branch", "", "Branch used when no release branch matches the tag")
}

func runRelease(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("auto-increment") {
		cfg.Release.AutoIncrement = releaseAutoIncrement
	}
	if releaseBranch != "" {
		cfg.Release.DefaultBranch = releaseBranch
	}
	if releaseNoLLM {
		cfg.LLM.Enabled = false
	}

	ctx, cancel := signalContext(cmd.Context(), timeout)
	defer cancel()
	ctx = trace.NewContext(ctx, trace.NewTraceID(trace.ReleasePrefix))

	a, err := newApp(ctx, cfg, releaseDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.releaser.Run(ctx, args[0])
	if err != nil {
		return fmt.Errorf("release %s failed: %w", args[0], err)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res *release.Result) {
	if res.DryRun {
		fmt.Fprintf(w, "Dry run: would release %s from %s@%s\n", res.Tag, res.Branch, shortSHA(res.CommitSHA))
		if res.Incremented {
			fmt.Fprintf(w, "  %s is already published, bumped to %s\n", res.RequestedTag, res.Tag)
		}
		return
	}

	fmt.Fprintf(w, "Released %s from %s@%s\n", res.Tag, res.Branch, shortSHA(res.CommitSHA))
	if res.Incremented {
		fmt.Fprintf(w, "  %s is already published, bumped to %s\n", res.RequestedTag, res.Tag)
	}
	if res.Polished {
		fmt.Fprintln(w, "  notes polished by LLM")
	}
	if res.ReleaseURL != "" {
		fmt.Fprintf(w, "  %s\n", res.ReleaseURL)
	}
	fmt.Fprintf(w, "\n%s", res.Body)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// signalContext is cancelled on SIGINT/SIGTERM or after d.
func signalContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}
