package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func clearEndpointEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GROQ_API_ENDPOINT", "DEVGENIUS_LLM_ENDPOINT", "GROQ_API_KEY", "DEVGENIUS_LLM_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "devgenius")
}

func TestDoctorWithExampleConfig(t *testing.T) {
	clearEndpointEnv(t)
	configPath, err := filepath.Abs(filepath.Join("..", "..", "configs", "devgenius.example.yaml"))
	require.NoError(t, err)
	require.FileExists(t, configPath)

	out, err := execute(t, "doctor", "--config", configPath)
	require.NoError(t, err)
	require.Contains(t, out, "Config OK. Endpoint: https://api.groq.com/openai/v1/chat/completions")
	require.Contains(t, out, "code_review")
	require.Contains(t, out, "llama3-70b-8192")
	require.Contains(t, out, "GitHub: review/chat unavailable")
}

func TestDoctorRejectsInvalidConfig(t *testing.T) {
	clearEndpointEnv(t)
	path := filepath.Join(t.TempDir(), "devgenius.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  endpoint: not-a-url\n  api_key: k\n"), 0o644))

	_, err := execute(t, "doctor", "--config", path)
	require.ErrorContains(t, err, "llm.endpoint")
}

func TestReviewRequiresPullRequest(t *testing.T) {
	clearEndpointEnv(t)
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")
	t.Setenv("DEVGENIUS_GITHUB_TOKEN", "")
	path := filepath.Join(t.TempDir(), "devgenius.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  endpoint: https://api.example.com\n  api_key: k\n"), 0o644))

	_, err := execute(t, "review", "--config", path, "--repo", "acme/web", "--pr", "3")
	require.ErrorContains(t, err, "github.token")
}

// fakeCompletions answers each agent based on its system prompt.
func fakeCompletions(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		content := "# Change summary"
		switch system := body.Messages[0].Content; {
		case strings.Contains(system, "tech stack analyzer"):
			content = `{"framework":"React","build_tool":"Vite","css_framework":"Tailwind CSS","typescript":true}`
		case strings.Contains(system, "build prediction expert"):
			content = "PREDICTION: SUCCESS\nCONFIDENCE: 80%"
		}
		raw, _ := json.Marshal(content)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%s}}]}`, raw)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunCommandEndToEnd(t *testing.T) {
	clearEndpointEnv(t)
	srv := fakeCompletions(t)

	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, "frontend", "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "frontend", "package.json"),
		[]byte(`{"dependencies":{"react":"^18.2.0"},"devDependencies":{"vite":"^5.0.0","typescript":"^5.2.0"}}`), 0o644))

	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "metrics", "devgenius.prom")
	cfgPath := filepath.Join(dir, "devgenius.yaml")
	cfg := fmt.Sprintf(`llm:
  endpoint: %s
  api_key: test-key
project:
  root: %s
build:
  enabled: true
logging:
  level: error
`, srv.URL, project)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	out, err := execute(t, "run", "--config", cfgPath, "--skip-build", "--strict", "--metrics-textfile", metricsPath)
	require.NoError(t, err, out)

	require.Contains(t, out, "ok      detect_tech_stack")
	require.Contains(t, out, "ok      generate_documentation")
	require.Contains(t, out, "Tech stack: React with Vite")
	require.Contains(t, out, "Build status: skipped")
	require.Contains(t, out, "Changes recorded: 5")

	require.FileExists(t, filepath.Join(project, ".github", "workflows", "frontend-ci.yml"))
	dockerfile, err := os.ReadFile(filepath.Join(project, "Dockerfile"))
	require.NoError(t, err)
	require.Contains(t, string(dockerfile), "FROM node:18-alpine")

	docs, err := filepath.Glob(filepath.Join(project, "docs", "changes-*.md"))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	require.Contains(t, string(metrics), `devgenius_stage_runs_total{outcome="ok",stage="predict_build"} 1`)
}
