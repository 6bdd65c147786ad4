package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/observability"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/pipeline"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/tools"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/vcs"
)

// ErrStagesFailed is returned by run --strict when at least one stage failed.
var ErrStagesFailed = errors.New("pipeline finished with failed stages")

type runFlags struct {
	root            string
	skipBuild       bool
	strict          bool
	metricsTextfile string
}

// NewRunCmd runs the full DevOps pipeline against the configured project.
func NewRunCmd(opts *Options) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Detect the stack, generate CI and Dockerfile, build, predict and document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if flags.root != "" {
				cfg.Project.Root = flags.root
			}
			if flags.skipBuild {
				cfg.Build.Enabled = false
			}
			if flags.metricsTextfile != "" {
				cfg.Metrics.Textfile = flags.metricsTextfile
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			sandbox, err := tools.NewSandbox(cfg.Project.Root, cfg.Build, logger)
			if err != nil {
				return err
			}

			metrics := observability.NewMetrics()
			client, err := newCompleter(cfg, logger, metrics)
			if err != nil {
				return err
			}

			revision := ""
			if rev, err := vcs.Describe(sandbox.FS.Root()); err == nil {
				revision = rev.String()
			} else if !errors.Is(err, vcs.ErrNotRepository) {
				logger.Warn("read workspace revision", zap.Error(err))
			}

			p, err := pipeline.New(cfg, pipeline.Deps{
				FS:       sandbox.FS,
				LLM:      client,
				Docker:   sandbox.Terminal,
				Builder:  sandbox.Builder,
				Logger:   logger,
				Metrics:  metrics,
				Revision: revision,
			})
			if err != nil {
				return err
			}

			res := p.Run(cmd.Context())
			printResult(cmd.OutOrStdout(), res)

			if cfg.Metrics.Textfile != "" {
				if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
					logger.Warn("write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
				}
			}

			if flags.strict && len(res.Failed()) > 0 {
				return fmt.Errorf("%w: %d of %d", ErrStagesFailed, len(res.Failed()), len(res.Stages))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.root, "root", "", "Override project.root")
	cmd.Flags().BoolVar(&flags.skipBuild, "skip-build", false, "Do not run docker; the build stage reports skipped")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Exit non-zero when any stage fails")
	cmd.Flags().StringVar(&flags.metricsTextfile, "metrics-textfile", "", "Override metrics.textfile")

	return cmd
}

func printResult(out io.Writer, res pipeline.Result) {
	fmt.Fprintf(out, "Run %s\n", res.RunID)
	for _, s := range res.Stages {
		if s.OK() {
			fmt.Fprintf(out, "  ok      %-24s %s\n", s.Stage, s.Duration.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(out, "  FAILED  %-24s %v\n", s.Stage, s.Err)
	}

	st := res.State
	fmt.Fprintf(out, "Tech stack: %s with %s\n", st.TechStack.Framework, st.TechStack.BuildTool)
	if st.BuildStatus != "" {
		fmt.Fprintf(out, "Build status: %s\n", st.BuildStatus)
	}
	fmt.Fprintf(out, "Changes recorded: %d\n", len(res.Records))
	if st.Documentation.Path != "" {
		fmt.Fprintf(out, "Documentation: %s (%s)\n", st.Documentation.Path, st.Documentation.Source)
	}
}
