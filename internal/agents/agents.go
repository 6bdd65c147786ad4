// Package agents holds the LLM-backed and collaborator-backed workers that the
// pipeline and the pull-request commands drive.
package agents

import (
	"errors"
	"fmt"
	"strings"
)

// Agent names as they appear in change records and documentation.
const (
	TechStackAgentName      = "TechStackAgent"
	GitHubActionsAgentName  = "GitHubActionsAgent"
	DockerfileAgentName     = "DockerfileAgent"
	BuildStatusAgentName    = "BuildStatusAgent"
	BuildPredictorAgentName = "BuildPredictorAgent"
	CodeReviewAgentName     = "CodeReviewAgent"
	ChatAgentName           = "ChatAgent"
)

// ErrCollaborator marks failures of external collaborators (docker, GitHub).
var ErrCollaborator = errors.New("collaborator failure")

func collaboratorError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrCollaborator, err)
}

// ProjectFS is the slice of the project filesystem agents read and write.
type ProjectFS interface {
	ReadFile(path string) (string, error)
	WriteFile(path string, content string) error
	Exists(path string) bool
	Glob(pattern string) ([]string, error)
	ListFiles(dir, ext string, limit int) ([]string, error)
}

func truncateForPrompt(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit] + "... [truncated]"
}

// firstLines keeps at most n lines of text.
func firstLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
