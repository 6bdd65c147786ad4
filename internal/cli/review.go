package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/agents"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/config"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/github"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
)

type prFlags struct {
	repo   string
	number int
}

func (f *prFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.repo, "repo", "", "Repository in owner/name form (overrides github.repo)")
	cmd.Flags().IntVar(&f.number, "pr", 0, "Pull request number (overrides github.pull_request)")
}

// prSession bundles what the review and chat commands share.
type prSession struct {
	cfg    *config.Config
	logger *zap.Logger
	prs    *github.Client
	llm    *llm.Client
	ref    agents.PullRequestRef
}

func openPRSession(opts *Options, flags *prFlags) (*prSession, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if flags.repo != "" {
		cfg.GitHub.Repo = flags.repo
	}
	if flags.number > 0 {
		cfg.GitHub.PullRequest = flags.number
	}
	if err := cfg.GitHub.ValidatePullRequest(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	prs, err := github.NewClient(cfg.GitHub, github.WithLogger(logger.Named("github")))
	if err != nil {
		return nil, err
	}
	client, err := newCompleter(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	return &prSession{
		cfg:    cfg,
		logger: logger,
		prs:    prs,
		llm:    client,
		ref:    agents.PullRequestRef{Repo: cfg.GitHub.Repo, Number: cfg.GitHub.PullRequest},
	}, nil
}

// NewReviewCmd reviews the changed files of a pull request and comments on it.
func NewReviewCmd(opts *Options) *cobra.Command {
	flags := &prFlags{}
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review a pull request and post one comment per file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openPRSession(opts, flags)
			if err != nil {
				return err
			}
			defer func() { _ = s.logger.Sync() }()

			agent := agents.NewCodeReviewAgent(s.prs, s.llm, s.cfg.Models.Resolve(config.RoleReview, ""),
				s.ref, s.cfg.GitHub.ReviewExtensions, s.logger.Named("review"))

			var feedback []agents.FileFeedback
			if dryRun {
				feedback = agent.Review(cmd.Context())
			} else {
				feedback, err = agent.Run(cmd.Context())
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reviewed %s: %d file(s)\n", s.ref, len(feedback))
			for _, f := range feedback {
				if f.Error != "" {
					fmt.Fprintf(out, "  %-40s error: %s\n", f.File, f.Error)
					continue
				}
				fmt.Fprintf(out, "  %-40s %s, %d issue(s)\n", f.File, f.OverallQuality, len(f.Issues))
			}
			if dryRun {
				for _, f := range feedback {
					fmt.Fprintf(out, "\n%s\n", f.Comment())
				}
			}
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the comments instead of posting them")
	return cmd
}
