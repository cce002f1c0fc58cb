package main

import (
	"fmt"
	"io"

	gh "github.com/human-glitch/github-releaser/internal/github"
	"github.com/human-glitch/github-releaser/internal/gitlog"
	"github.com/human-glitch/github-releaser/internal/trace"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var (
	gitlogRepoPath string
	gitlogFrom     string
	gitlogTo       string
	gitlogTag      string
	gitlogGitHub   bool
)

var gitlogCmd = &cobra.Command{
	Use:   "gitlog",
	Short: "Build formatted notes from a local git range",
	Long: `gitlog reads the commits in --from..--to of a local clone and formats one
note line per change. With --github each commit is resolved to the pull request
it was merged through, so lines carry the PR author and number.`,
	Args: cobra.NoArgs,
	RunE: runGitlog,
}

func init() {
	gitlogCmd.Flags().StringVar(&gitlogRepoPath, "repo-path", ".", "Path of the local clone")
	gitlogCmd.Flags().StringVar(&gitlogFrom, "from", "", "Exclusive start of the range (previous tag); empty lists all history")
	gitlogCmd.Flags().StringVar(&gitlogTo, "to", "HEAD", "Inclusive end of the range")
	gitlogCmd.Flags().StringVarP(&gitlogTag, "tag", "t", "", "Release tag shown in the heading")
	gitlogCmd.Flags().BoolVar(&gitlogGitHub, "github", false, "Look up pull requests through the GitHub GraphQL API")
}

func runGitlog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context(), timeout)
	defer cancel()
	ctx = trace.NewContext(ctx, trace.NewTraceID(trace.ReleasePrefix))

	var finder gitlog.PullRequestFinder
	if gitlogGitHub {
		cfg.LLM.Enabled = false
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		clients, err := gh.NewClientManager(cfg)
		if err != nil {
			return err
		}
		defer clients.Close()

		graphql, err := clients.GetGraphQLClient(ctx, clients.DefaultRepository())
		if err != nil {
			return err
		}
		finder = graphql
	} else {
		log.Debugf("Pull request lookup disabled, using commit subjects")
	}

	lines, err := gitlog.NewCollector(gitlogRepoPath, finder).Lines(ctx, gitlogFrom, gitlogTo)
	if err != nil {
		return err
	}

	_, err = io.WriteString(cmd.OutOrStdout(), newFormatter(cfg).Format(gitlogTag, lines))
	return err
}
