package agents

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/config"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/tools"
)

type fakeReply struct {
	stdout string
	stderr string
	err    error
}

// fakeDocker answers docker invocations keyed by their space-joined arguments.
type fakeDocker struct {
	replies map[string]fakeReply
	calls   []string
}

func (f *fakeDocker) Exec(_ context.Context, command string, args ...string) (tools.ExecResult, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, command+" "+key)
	r, ok := f.replies[key]
	if !ok {
		return tools.ExecResult{ExitCode: 1}, errors.New("unexpected command: " + key)
	}
	code := 0
	if r.err != nil {
		code = 1
	}
	return tools.ExecResult{Stdout: r.stdout, Stderr: r.stderr, ExitCode: code}, r.err
}

const testTag = "app:latest"

func healthyDocker() *fakeDocker {
	return &fakeDocker{replies: map[string]fakeReply{
		"images -q " + testTag:                             {stdout: "sha256abc\n"},
		"ps -q --filter ancestor=" + testTag:               {stdout: "c0ffee\n"},
		"inspect --format {{.State.Health.Status}} c0ffee": {stdout: "healthy\n"},
		"build -t " + testTag + " .":                       {stdout: "done"},
		"run -d -p 4173:4173 " + testTag:                   {stdout: "c0ffee1234567890\n"},
		"logs c0ffee":                                      {stdout: "vite v5 building for production...\nlistening\nwarning: chunk size\n"},
	}}
}

func servingAgent(t *testing.T, docker *fakeDocker, status int) *BuildStatusAgent {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	agent := NewBuildStatusAgent(docker, nil, config.BuildConfig{}, testTag, port, nil)
	agent.host = host
	return agent
}

func TestCheckSuccess(t *testing.T) {
	agent := servingAgent(t, healthyDocker(), http.StatusOK)
	require.Equal(t, StatusSuccess, agent.Check(context.Background()))
	require.True(t, Succeeded(StatusSuccess))
}

func TestCheckShortCircuits(t *testing.T) {
	docker := healthyDocker()
	docker.replies["images -q "+testTag] = fakeReply{stdout: ""}
	agent := servingAgent(t, docker, http.StatusOK)

	require.Equal(t, "failure: Docker image not found", agent.Check(context.Background()))
	require.Len(t, docker.calls, 1)
}

func TestCheckNoContainer(t *testing.T) {
	docker := healthyDocker()
	docker.replies["ps -q --filter ancestor="+testTag] = fakeReply{}
	agent := servingAgent(t, docker, http.StatusOK)
	require.Equal(t, "failure: No running container found", agent.Check(context.Background()))
}

func TestCheckHealthFallsBackToState(t *testing.T) {
	docker := healthyDocker()
	docker.replies["inspect --format {{.State.Health.Status}} c0ffee"] = fakeReply{err: errors.New("map has no entry for key Health")}
	docker.replies["inspect --format {{.State.Status}} c0ffee"] = fakeReply{stdout: "running\n"}
	agent := servingAgent(t, docker, http.StatusOK)

	require.Equal(t, "failure: Container health check failed - running", agent.Check(context.Background()))
}

func TestCheckHealthNotConfigured(t *testing.T) {
	docker := healthyDocker()
	docker.replies["inspect --format {{.State.Health.Status}} c0ffee"] = fakeReply{stdout: "\n"}
	agent := servingAgent(t, docker, http.StatusOK)

	require.Equal(t, "failure: Container health check failed - health check not configured", agent.Check(context.Background()))
}

func TestCheckPortNotResponding(t *testing.T) {
	agent := servingAgent(t, healthyDocker(), http.StatusServiceUnavailable)
	require.Equal(t, "failure: Application not responding on port "+strconv.Itoa(agent.port), agent.Check(context.Background()))
}

func TestBuildStartsContainer(t *testing.T) {
	docker := healthyDocker()
	docker.replies["ps -q --filter ancestor="+testTag] = fakeReply{}
	agent := NewBuildStatusAgent(docker, nil, config.BuildConfig{StartContainer: true}, testTag, 4173, nil)

	require.NoError(t, agent.Build(context.Background()))
	require.Equal(t, []string{
		"docker build -t " + testTag + " .",
		"docker ps -q --filter ancestor=" + testTag,
		"docker run -d -p 4173:4173 " + testTag,
	}, docker.calls)
}

func TestBuildFailureIsCollaboratorError(t *testing.T) {
	docker := healthyDocker()
	docker.replies["build -t "+testTag+" ."] = fakeReply{stderr: "npm ERR! missing script: build", err: errors.New("exit status 1")}
	agent := NewBuildStatusAgent(docker, nil, config.BuildConfig{StartContainer: true}, testTag, 4173, nil)

	err := agent.Build(context.Background())
	require.ErrorIs(t, err, ErrCollaborator)
	require.ErrorContains(t, err, "missing script: build")
	require.Len(t, docker.calls, 1)
}

func TestWaitHealthyRetries(t *testing.T) {
	docker := healthyDocker()
	docker.replies["inspect --format {{.State.Health.Status}} c0ffee"] = fakeReply{stdout: "starting\n"}
	agent := servingAgent(t, docker, http.StatusOK)
	agent.cfg = config.BuildConfig{HealthAttempts: 3, HealthInterval: time.Millisecond}
	var sleeps int
	agent.sleep = func(context.Context, time.Duration) error {
		sleeps++
		if sleeps == 2 {
			docker.replies["inspect --format {{.State.Health.Status}} c0ffee"] = fakeReply{stdout: "healthy\n"}
		}
		return nil
	}

	require.Equal(t, StatusSuccess, agent.WaitHealthy(context.Background()))
	require.Equal(t, 2, sleeps)
}

func TestBuildLogs(t *testing.T) {
	agent := NewBuildStatusAgent(healthyDocker(), nil, config.BuildConfig{}, testTag, 4173, nil)
	require.Equal(t, []string{"vite v5 building for production...", "warning: chunk size"}, agent.BuildLogs(context.Background()))

	docker := healthyDocker()
	docker.replies["logs c0ffee"] = fakeReply{stdout: "listening on 4173\n"}
	agent = NewBuildStatusAgent(docker, nil, config.BuildConfig{}, testTag, 4173, nil)
	require.Equal(t, []string{"No Vite build logs found"}, agent.BuildLogs(context.Background()))

	docker.replies["ps -q --filter ancestor="+testTag] = fakeReply{}
	require.Equal(t, []string{"No running container found"}, agent.BuildLogs(context.Background()))
}
