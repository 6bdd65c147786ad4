package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/config"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/tools"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/vcs"
)

var doctorRoles = []string{
	config.RoleTechStack,
	config.RolePredictor,
	config.RoleDocumentation,
	config.RoleReview,
	config.RoleChat,
}

// NewDoctorCmd returns a health-check command validating config and environment.
func NewDoctorCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config OK. Endpoint: %s\n", llm.ResolveEndpoint(cfg.LLM.Endpoint))
			for _, role := range doctorRoles {
				fmt.Fprintf(out, "  model %-16s %s\n", role, cfg.Models.Resolve(role, ""))
			}
			fmt.Fprintf(out, "Project: %s (frontend: %s)\n", cfg.Project.Root, cfg.Project.FrontendDir)

			switch rev, err := vcs.Describe(cfg.Project.Root); {
			case err == nil:
				fmt.Fprintf(out, "Revision: %s\n", rev)
			case errors.Is(err, vcs.ErrNotRepository):
				fmt.Fprintln(out, "Revision: not a git repository")
			default:
				fmt.Fprintf(out, "Revision: %v\n", err)
			}

			sandbox, err := tools.NewSandbox(cfg.Project.Root, cfg.Build, nil)
			switch {
			case err != nil:
				fmt.Fprintf(out, "Project root unusable: %v\n", err)
			case !cfg.Build.Enabled:
				fmt.Fprintln(out, "Docker: disabled")
			default:
				if path, err := sandbox.Terminal.LookPath("docker"); err != nil {
					fmt.Fprintln(out, "Docker: not found on PATH; the build stage will fail")
				} else {
					fmt.Fprintf(out, "Docker: %s\n", path)
				}
			}

			if err := cfg.GitHub.ValidatePullRequest(); err != nil {
				fmt.Fprintf(out, "GitHub: review/chat unavailable (%v)\n", err)
			} else {
				fmt.Fprintf(out, "GitHub: %s#%d\n", cfg.GitHub.Repo, cfg.GitHub.PullRequest)
			}
			return nil
		},
	}
}
