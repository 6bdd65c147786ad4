package agents

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/config"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/tools"
)

// Build status strings. Failures carry a reason after the prefix.
const (
	StatusSuccess       = "success: Build and container running properly"
	statusNoImage       = "failure: Docker image not found"
	statusNoContainer   = "failure: No running container found"
	healthNotConfigured = "health check not configured"
	noBuildLogs         = "No Vite build logs found"
)

const defaultPortProbeLimit = 5 * time.Second

var buildLogTerms = []string{"vite", "typescript", "tsx", "build", "error", "warning", "bundle"}

// CommandRunner executes a CLI command. tools.Terminal satisfies it.
type CommandRunner interface {
	Exec(ctx context.Context, command string, args ...string) (tools.ExecResult, error)
}

// BuildStatusAgent builds the frontend image and checks the resulting container.
type BuildStatusAgent struct {
	docker   CommandRunner
	builder  CommandRunner
	http     *http.Client
	cfg      config.BuildConfig
	imageTag string
	port     int
	host     string
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration) error
}

// NewBuildStatusAgent wires the agent. docker runs short inspection commands;
// builder runs docker build and may carry a longer timeout. logger may be nil.
func NewBuildStatusAgent(docker, builder CommandRunner, build config.BuildConfig, imageTag string, port int, logger *zap.Logger) *BuildStatusAgent {
	if builder == nil {
		builder = docker
	}
	if port == 0 {
		port = 4173
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BuildStatusAgent{
		docker:   docker,
		builder:  builder,
		http:     &http.Client{Timeout: defaultPortProbeLimit},
		cfg:      build,
		imageTag: imageTag,
		port:     port,
		host:     "localhost",
		logger:   logger,
		sleep:    sleepContext,
	}
}

// ImageTag is the tag built and inspected.
func (a *BuildStatusAgent) ImageTag() string {
	return a.imageTag
}

// Succeeded reports whether status is a success string.
func Succeeded(status string) bool {
	return strings.HasPrefix(status, "success")
}

// Build runs docker build for the project root and, when configured, starts
// a container publishing the application port. A container already running
// the image is reused.
func (a *BuildStatusAgent) Build(ctx context.Context) error {
	res, err := a.builder.Exec(ctx, "docker", "build", "-t", a.imageTag, ".")
	if err != nil {
		return collaboratorError("docker build", withStderr(err, res))
	}
	a.logger.Info("docker image built", zap.String("image", a.imageTag))

	if !a.cfg.StartContainer {
		return nil
	}
	if id, err := a.runningContainer(ctx); err == nil && id != "" {
		a.logger.Info("container already running", zap.String("container", id))
		return nil
	}
	publish := fmt.Sprintf("%d:%d", a.port, a.port)
	res, err = a.docker.Exec(ctx, "docker", "run", "-d", "-p", publish, a.imageTag)
	if err != nil {
		return collaboratorError("docker run", withStderr(err, res))
	}
	a.logger.Info("container started", zap.String("container", shortID(strings.TrimSpace(res.Stdout))))
	return nil
}

// Check inspects image, container, health and port in that order and stops at
// the first failing signal.
func (a *BuildStatusAgent) Check(ctx context.Context) string {
	res, err := a.docker.Exec(ctx, "docker", "images", "-q", a.imageTag)
	if err != nil || strings.TrimSpace(res.Stdout) == "" {
		return statusNoImage
	}

	id, err := a.runningContainer(ctx)
	if err != nil || id == "" {
		return statusNoContainer
	}

	if health := a.containerHealth(ctx, id); health != "healthy" {
		return "failure: Container health check failed - " + health
	}

	if !a.portResponding(ctx) {
		return fmt.Sprintf("failure: Application not responding on port %d", a.port)
	}
	return StatusSuccess
}

// WaitHealthy repeats Check until it succeeds, the attempts configured in
// BuildConfig are used up or ctx ends. The last status is returned.
func (a *BuildStatusAgent) WaitHealthy(ctx context.Context) string {
	attempts := a.cfg.HealthAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var status string
	for i := 1; i <= attempts; i++ {
		status = a.Check(ctx)
		if Succeeded(status) || i == attempts {
			break
		}
		a.logger.Debug("container not ready", zap.Int("attempt", i), zap.String("status", status))
		if err := a.sleep(ctx, a.cfg.HealthInterval); err != nil {
			break
		}
	}
	return status
}

// BuildLogs returns the build related lines of the running container's log.
func (a *BuildStatusAgent) BuildLogs(ctx context.Context) []string {
	id, err := a.runningContainer(ctx)
	if err != nil || id == "" {
		return []string{"No running container found"}
	}
	res, err := a.docker.Exec(ctx, "docker", "logs", id)
	if err != nil {
		a.logger.Warn("docker logs failed", zap.String("container", id), zap.Error(err))
	}
	var out []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		lower := strings.ToLower(line)
		for _, term := range buildLogTerms {
			if strings.Contains(lower, term) {
				out = append(out, line)
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{noBuildLogs}
	}
	return out
}

func (a *BuildStatusAgent) runningContainer(ctx context.Context) (string, error) {
	res, err := a.docker.Exec(ctx, "docker", "ps", "-q", "--filter", "ancestor="+a.imageTag)
	if err != nil {
		return "", err
	}
	ids := strings.Fields(res.Stdout)
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

func (a *BuildStatusAgent) containerHealth(ctx context.Context, id string) string {
	res, err := a.docker.Exec(ctx, "docker", "inspect", "--format", "{{.State.Health.Status}}", id)
	if err != nil {
		// No HEALTHCHECK in the image: fall back to the plain container state.
		res, err = a.docker.Exec(ctx, "docker", "inspect", "--format", "{{.State.Status}}", id)
		if err != nil {
			return "inspect failed"
		}
	}
	health := strings.TrimSpace(res.Stdout)
	if health == "" || health == "<no value>" {
		return healthNotConfigured
	}
	return health
}

func (a *BuildStatusAgent) portResponding(ctx context.Context) bool {
	url := "http://" + net.JoinHostPort(a.host, strconv.Itoa(a.port))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := a.http.Do(req)
	if err != nil {
		a.logger.Debug("port probe failed", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func withStderr(err error, res tools.ExecResult) error {
	if msg := strings.TrimSpace(res.Stderr); msg != "" {
		return fmt.Errorf("%w: %s", err, truncateForPrompt(msg, 500))
	}
	return err
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
