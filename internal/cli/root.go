package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/config"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/logging"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/observability"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/version"
)

// Options holds global CLI options.
type Options struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCmd constructs the base CLI command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:           "devgenius",
		Short:         "DevGenius – LLM agents for frontend CI/CD, Docker and pull-request review",
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Path to config file (default: devgenius.yaml in . or configs/)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	cmd.AddCommand(NewRunCmd(opts))
	cmd.AddCommand(NewReviewCmd(opts))
	cmd.AddCommand(NewChatCmd(opts))
	cmd.AddCommand(NewDoctorCmd(opts))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command until it finishes or ctx is cancelled.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig wraps config loading with shared options.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// newCompleter builds the chat-completion client. metrics may be nil.
func newCompleter(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (*llm.Client, error) {
	opts := []llm.Option{llm.WithLogger(logger.Named("llm"))}
	if metrics != nil {
		opts = append(opts, llm.WithMetrics(metrics))
	}
	client, err := llm.NewClient(llm.ClientConfig{
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		Timeout:     cfg.LLM.Timeout,
		ServiceName: cfg.LLM.ServiceName,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("build completion client: %w", err)
	}
	return client, nil
}
