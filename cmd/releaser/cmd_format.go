package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/human-glitch/github-releaser/internal/llm"
	"github.com/human-glitch/github-releaser/internal/notes"
	"github.com/human-glitch/github-releaser/internal/trace"

	"github.com/spf13/cobra"
)

var (
	formatTag        string
	formatTrackerURL string
	formatPrefixes   []string
	formatBody       bool
	formatPolish     bool
)

var formatCmd = &cobra.Command{
	Use:   "format [file...]",
	Short: "Group release note lines by ticket",
	Long: `format reads note lines from the given files (or stdin) and prints them
grouped by ticket prefix. With --body the input is treated as a GitHub-generated
release body: headings are dropped and the New Contributors / Full Changelog
trailer is kept.`,
	RunE: runFormat,
}

func init() {
	formatCmd.Flags().StringVarP(&formatTag, "tag", "t", "", "Release tag shown in the heading")
	formatCmd.Flags().StringVar(&formatTrackerURL, "tracker-url", "", "Issue tracker base URL (overrides config)")
	formatCmd.Flags().StringSliceVar(&formatPrefixes, "prefix", nil, "Ticket prefixes to group by (overrides config)")
	formatCmd.Flags().BoolVar(&formatBody, "body", false, "Input is a full release body")
	formatCmd.Flags().BoolVar(&formatPolish, "llm", false, "Run the configured LLM pass over the result")
}

func runFormat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if formatTrackerURL != "" {
		cfg.Notes.TrackerURL = formatTrackerURL
	}
	if len(formatPrefixes) > 0 {
		cfg.Notes.Prefixes = formatPrefixes
	}
	formatter := newFormatter(cfg)

	lines, err := readLines(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	var out string
	if formatBody {
		out = formatter.FormatBody(formatTag, notes.ParseBody(joinLines(lines)))
	} else {
		out = formatter.Format(formatTag, lines)
	}

	if formatPolish {
		ctx, cancel := signalContext(cmd.Context(), timeout)
		defer cancel()
		ctx = trace.NewContext(ctx, trace.NewTraceID(trace.ReformatPrefix))

		cfg.LLM.Enabled = true
		completer, err := newCompleter(ctx, cfg)
		if err != nil {
			return err
		}
		out, _ = llm.Polish(ctx, completer, formatter, out)
	}

	_, err = io.WriteString(cmd.OutOrStdout(), out)
	return err
}

// readLines reads every line of the named files, or of stdin when none are given.
func readLines(stdin io.Reader, files []string) ([]string, error) {
	if len(files) == 0 {
		return scanLines(stdin)
	}

	var lines []string
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		fileLines, err := scanLines(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		lines = append(lines, fileLines...)
	}
	return lines, nil
}

func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
