package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/agents"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/config"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
)

// NewChatCmd asks the assistant a question about a pull request and posts the answer.
func NewChatCmd(opts *Options) *cobra.Command {
	flags := &prFlags{}

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the assistant about a pull request and post the reply",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openPRSession(opts, flags)
			if err != nil {
				return err
			}
			defer func() { _ = s.logger.Sync() }()

			agent := agents.NewChatAgent(s.prs, s.llm, s.cfg.Models.Resolve(config.RoleChat, ""), s.ref, s.logger.Named("chat"))
			outcome := agent.Run(cmd.Context(), strings.Join(args, " "))

			out := cmd.OutOrStdout()
			if outcome.Status == llm.StatusSuccess && outcome.BotResponse != "" {
				fmt.Fprintln(out, outcome.BotResponse)
			}
			if outcome.Error != "" {
				return errors.New(outcome.Error)
			}
			fmt.Fprintf(out, "Posted reply to %s\n", s.ref)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
