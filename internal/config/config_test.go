package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "devgenius.yaml")
	configYAML := `
llm:
  endpoint: https://api.groq.com
  api_key: dummy
  timeout: 45s
models:
  default: llama3-8b-8192
  overrides:
    build_predictor: llama3-70b-8192
project:
  frontend_dir: web
docker:
  expose_port: 8080
`

	require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "https://api.groq.com", cfg.LLM.Endpoint)
	require.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	require.Equal(t, "web", cfg.Project.FrontendDir)
	require.Equal(t, 8080, cfg.Docker.ExposePort)
	require.Equal(t, "node:18-alpine", cfg.Docker.BaseImage)
	require.Equal(t, ".github/workflows/frontend-ci.yml", cfg.Project.WorkflowPath)
	require.Equal(t, 500, cfg.Docs.DiffBudget)
	require.Equal(t, "llama3-70b-8192", cfg.Models.Resolve(RolePredictor, ""))
	require.Equal(t, "llama3-8b-8192", cfg.Models.Resolve(RoleTechStack, ""))
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "devgenius.yaml")
	configYAML := `
llm:
  endpoint: https://file.example.com
  api_key: from-file
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0o644))

	t.Setenv("DEVGENIUS_DOCKER_EXPOSE_PORT", "3000")
	t.Setenv("GROQ_API_KEY", "from-env")
	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, 3000, cfg.Docker.ExposePort)
	require.Equal(t, "from-env", cfg.LLM.APIKey)
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "devgenius.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("docs:\n  output_dir: out\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("GROQ_API_ENDPOINT=https://dotenv.example.com\nGROQ_API_KEY=dotenv-key\n"), 0o644))

	t.Setenv("GROQ_API_ENDPOINT", "")
	t.Setenv("GROQ_API_KEY", "")
	os.Unsetenv("GROQ_API_ENDPOINT")
	os.Unsetenv("GROQ_API_KEY")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "https://dotenv.example.com", cfg.LLM.Endpoint)
	require.Equal(t, "dotenv-key", cfg.LLM.APIKey)
	require.Equal(t, "out", cfg.Docs.OutputDir)
}

func TestValidateRequiresEndpointAndKey(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Endpoint = ""
	err := cfg.Validate()
	require.Error(t, err)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "llm.endpoint", vErr.Field)

	cfg = validConfig()
	cfg.LLM.APIKey = " "
	err = cfg.Validate()
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "llm.api_key", vErr.Field)
}

func TestValidateRejectsRelativeEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Endpoint = "api.groq.com"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Docker.ExposePort = 70000
	require.Error(t, cfg.Validate())
}

func TestValidatePullRequest(t *testing.T) {
	gh := GitHubConfig{Token: "t", Repo: "octo/site", PullRequest: 7}
	require.NoError(t, gh.ValidatePullRequest())

	gh.Repo = "octo"
	require.Error(t, gh.ValidatePullRequest())

	gh = GitHubConfig{Repo: "octo/site", PullRequest: 7}
	require.Error(t, gh.ValidatePullRequest())
}

func TestModelResolvePrecedence(t *testing.T) {
	m := ModelsConfig{
		Default:   "base",
		Overrides: map[string]string{RoleChat: "chatty"},
	}
	require.Equal(t, "chatty", m.Resolve(RoleChat, ""))
	require.Equal(t, "base", m.Resolve(RoleReview, ""))

	m.Force = "pinned"
	require.Equal(t, "pinned", m.Resolve(RoleChat, ""))
	require.Equal(t, "caller", m.Resolve(RoleChat, "caller"))
}

func validConfig() Config {
	return Config{
		LLM:     LLMConfig{Endpoint: "https://api.groq.com", APIKey: "k"},
		Models:  ModelsConfig{Default: "m"},
		Project: ProjectConfig{WorkflowPath: "ci.yml", DockerfilePath: "Dockerfile"},
		Docker:  DockerConfig{BaseImage: "node:18-alpine", ExposePort: 4173, ImageTag: "x:latest"},
		Build:   BuildConfig{BuildTimeout: time.Minute, CommandTimeout: time.Second},
		Docs:    DocsConfig{OutputDir: "docs"},
	}
}
