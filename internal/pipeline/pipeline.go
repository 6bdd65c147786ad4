// Package pipeline runs the fixed sequence of DevOps stages over a frontend
// project and keeps an audit log of what each stage changed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/agents"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/changes"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/config"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/docs"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/logging"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/observability"
)

// Stage names a pipeline step.
type Stage string

const (
	StageDetectTechStack       Stage = "detect_tech_stack"
	StageGenerateCI            Stage = "generate_ci"
	StageGenerateDockerfile    Stage = "generate_dockerfile"
	StageBuildAndCheck         Stage = "build_and_check"
	StagePredictBuild          Stage = "predict_build"
	StageGenerateDocumentation Stage = "generate_documentation"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageDetectTechStack,
	StageGenerateCI,
	StageGenerateDockerfile,
	StageBuildAndCheck,
	StagePredictBuild,
	StageGenerateDocumentation,
}

// Record paths for stages that do not touch a file.
const (
	DockerImagePath   = "Docker Image"
	BuildAnalysisPath = "Build Analysis"
)

// BuildSkipped is the build status when docker builds are disabled.
const BuildSkipped = "skipped: docker build disabled by configuration"

// ProjectFS is everything the pipeline needs from the project filesystem.
type ProjectFS interface {
	agents.ProjectFS
	CreateExclusive(path string, content string) error
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	FS      ProjectFS
	LLM     llm.Completer
	Docker  agents.CommandRunner // short docker commands
	Builder agents.CommandRunner // docker build; falls back to Docker
	Logger  *zap.Logger
	Metrics *observability.Metrics
	// Revision describes the workspace, e.g. "main@abc1234"; optional.
	Revision string
	// RunID overrides the generated run identifier.
	RunID string
	// Clock overrides time.Now for change records.
	Clock func() time.Time
}

// State carries the artifacts produced so far.
type State struct {
	TechStack     agents.TechStack
	CIConfig      string
	Dockerfile    string
	BuildStatus   string
	BuildData     agents.BuildData
	Prediction    string
	Documentation docs.Summary
}

// StageOutcome reports how one stage ended.
type StageOutcome struct {
	Stage    Stage
	Duration time.Duration
	Err      error
}

// OK reports whether the stage finished without error.
func (o StageOutcome) OK() bool { return o.Err == nil }

// Result is the outcome of a full run.
type Result struct {
	RunID   string
	State   State
	Stages  []StageOutcome
	Records []changes.Record
}

// Failed returns the outcomes of stages that ended with an error.
func (r Result) Failed() []StageOutcome {
	var out []StageOutcome
	for _, s := range r.Stages {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// Pipeline runs the stages in order. A Pipeline is meant for a single Run.
type Pipeline struct {
	cfg     *config.Config
	fs      ProjectFS
	runID   string
	logger  *zap.Logger
	metrics *observability.Metrics

	tracker    *changes.Tracker
	techStack  *agents.TechStackAgent
	ci         *agents.GitHubActionsAgent
	dockerfile *agents.DockerfileAgent
	build      *agents.BuildStatusAgent
	predictor  *agents.BuildPredictorAgent
	summarizer *docs.Summarizer

	state State
}

// New wires a Pipeline from a validated config.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.FS == nil {
		return nil, errors.New("project filesystem is required")
	}
	if deps.LLM == nil {
		return nil, errors.New("completion client is required")
	}
	runID := deps.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := logging.WithRun(logging.OrNop(deps.Logger), runID)

	trackerOpts := []changes.Option{changes.WithLogger(logger.Named("changes"))}
	if deps.Metrics != nil {
		trackerOpts = append(trackerOpts, changes.WithObserver(deps.Metrics))
	}
	if deps.Clock != nil {
		trackerOpts = append(trackerOpts, changes.WithClock(deps.Clock))
	}
	tracker := changes.NewTracker(deps.FS, trackerOpts...)

	models := cfg.Models
	p := &Pipeline{
		cfg:     cfg,
		fs:      deps.FS,
		runID:   runID,
		logger:  logger,
		metrics: deps.Metrics,
		tracker: tracker,
		techStack: agents.NewTechStackAgent(deps.FS, deps.LLM, models.Resolve(config.RoleTechStack, ""),
			cfg.Project.FrontendDir, logger.Named("tech_stack")),
		ci:         agents.NewGitHubActionsAgent(cfg.CI, cfg.Project, cfg.Docker, logger.Named("ci")),
		dockerfile: agents.NewDockerfileAgent(cfg.Docker, logger.Named("dockerfile")),
		build: agents.NewBuildStatusAgent(deps.Docker, deps.Builder, cfg.Build, cfg.Docker.ImageTag,
			cfg.Docker.ExposePort, logger.Named("build")),
		predictor: agents.NewBuildPredictorAgent(deps.LLM, models.Resolve(config.RolePredictor, ""), logger.Named("predictor")),
		summarizer: docs.NewSummarizer(docs.Config{
			Model:      models.Resolve(config.RoleDocumentation, ""),
			OutputDir:  cfg.Docs.OutputDir,
			DiffBudget: cfg.Docs.DiffBudget,
			RunID:      runID,
			Revision:   deps.Revision,
		}, tracker, deps.LLM, deps.FS, logger.Named("docs")),
	}
	return p, nil
}

// RunID identifies this run in logs and documentation file names.
func (p *Pipeline) RunID() string { return p.runID }

// Run executes all six stages. A failing stage is recorded and the run moves on.
func (p *Pipeline) Run(ctx context.Context) Result {
	p.logger.Info("pipeline started", zap.String("project_root", p.cfg.Project.Root))
	start := time.Now()

	steps := []struct {
		stage Stage
		run   func(context.Context) error
	}{
		{StageDetectTechStack, p.detectTechStack},
		{StageGenerateCI, p.generateCI},
		{StageGenerateDockerfile, p.generateDockerfile},
		{StageBuildAndCheck, p.buildAndCheck},
		{StagePredictBuild, p.predictBuild},
		{StageGenerateDocumentation, p.generateDocumentation},
	}

	outcomes := make([]StageOutcome, 0, len(steps))
	for _, s := range steps {
		outcomes = append(outcomes, p.runStage(ctx, s.stage, s.run))
	}

	res := Result{RunID: p.runID, State: p.state, Stages: outcomes, Records: p.tracker.Records()}
	p.logger.Info("pipeline finished",
		zap.Duration("duration", time.Since(start)),
		zap.Int("records", len(res.Records)),
		zap.Int("failed_stages", len(res.Failed())),
	)
	return res
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, fn func(context.Context) error) (out StageOutcome) {
	out.Stage = stage
	start := time.Now()
	logger := p.logger.With(zap.String("stage", string(stage)))
	logger.Info("stage started")

	defer func() {
		out.Duration = time.Since(start)
		outcome := "ok"
		if out.Err != nil {
			outcome = "error"
			logger.Warn("stage failed", zap.Error(out.Err), zap.Duration("duration", out.Duration))
		} else {
			logger.Info("stage finished", zap.Duration("duration", out.Duration))
		}
		p.metrics.RecordStage(string(stage), outcome, out.Duration)
	}()

	out.Err = p.protect(stage, func() error { return fn(ctx) })
	return out
}

// protect converts a panic in fn into an error.
func (p *Pipeline) protect(stage Stage, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("stage panicked",
				zap.String("stage", string(stage)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("stage %s panicked: %v", stage, r)
		}
	}()
	return fn()
}

// record appends the stage's change record. Any error is folded into details.
func (p *Pipeline) record(agent, filePath, description string, details map[string]interface{}, err error) {
	if details == nil {
		details = make(map[string]interface{})
	}
	if err != nil {
		if _, ok := details["error"]; !ok {
			details["error"] = err.Error()
		}
	}
	p.tracker.Record(agent, filePath, description, details)
}

// stack is the descriptor used for generation. Failed detection falls back
// to the defaults; undetected fields are defaulted one by one.
func (p *Pipeline) stack() agents.TechStack {
	return p.state.TechStack.ForGeneration()
}

func (p *Pipeline) detectTechStack(ctx context.Context) (err error) {
	details := map[string]interface{}{}
	defer func() {
		p.record(agents.TechStackAgentName, strings.TrimSuffix(p.cfg.Project.FrontendDir, "/")+"/",
			"Analyzed frontend tech stack", details, err)
	}()
	err = p.protect(StageDetectTechStack, func() error {
		stack := p.techStack.Detect(ctx)
		p.state.TechStack = stack
		details = stack.Details()
		if stack.Error != "" {
			return collaboratorFailure("tech stack detection", stack.Error)
		}
		return nil
	})
	return err
}

func (p *Pipeline) generateCI(context.Context) (err error) {
	stack := p.stack()
	target := p.cfg.Project.WorkflowPath
	details := map[string]interface{}{"framework": stack.Framework, "build_tool": stack.BuildTool}
	defer func() {
		p.record(agents.GitHubActionsAgentName, target,
			fmt.Sprintf("Created CI/CD pipeline for %s with %s", stack.Framework, stack.BuildTool), details, err)
	}()
	err = p.protect(StageGenerateCI, func() error {
		p.tracker.Snapshot(target)
		workflow, err := p.ci.Generate(stack)
		if err != nil {
			return err
		}
		if err := p.ci.Validate(workflow); err != nil {
			return fmt.Errorf("generated workflow is invalid: %w", err)
		}
		if err := p.fs.WriteFile(target, workflow); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		p.state.CIConfig = workflow
		return nil
	})
	return err
}

func (p *Pipeline) generateDockerfile(context.Context) (err error) {
	stack := p.stack()
	target := p.cfg.Project.DockerfilePath
	dc := p.dockerfile.Config()
	details := map[string]interface{}{
		"framework":   stack.Framework,
		"build_tool":  stack.BuildTool,
		"base_image":  dc.BaseImage,
		"expose_port": dc.ExposePort,
	}
	defer func() {
		p.record(agents.DockerfileAgentName, target,
			fmt.Sprintf("Created Dockerfile for %s application with %s", stack.Framework, stack.BuildTool), details, err)
	}()
	err = p.protect(StageGenerateDockerfile, func() error {
		p.tracker.Snapshot(target)
		dockerfile := p.dockerfile.Generate(stack)
		if err := p.dockerfile.Validate(dockerfile); err != nil {
			return fmt.Errorf("generated dockerfile is invalid: %w", err)
		}
		if err := p.fs.WriteFile(target, dockerfile); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		p.state.Dockerfile = dockerfile
		return nil
	})
	return err
}

func (p *Pipeline) buildAndCheck(ctx context.Context) (err error) {
	stack := p.stack()
	details := map[string]interface{}{"image_tag": p.build.ImageTag(), "framework": stack.Framework}
	defer func() {
		details["status"] = p.state.BuildStatus
		p.record(agents.BuildStatusAgentName, DockerImagePath,
			fmt.Sprintf("Built and verified Docker image for %s", stack.Framework), details, err)
	}()
	err = p.protect(StageBuildAndCheck, func() error {
		if !p.cfg.Build.Enabled {
			p.state.BuildStatus = BuildSkipped
			return nil
		}
		if err := p.build.Build(ctx); err != nil {
			p.state.BuildStatus = "failure: Docker build failed"
			return err
		}
		p.state.BuildStatus = p.build.WaitHealthy(ctx)
		if !agents.Succeeded(p.state.BuildStatus) {
			details["build_logs"] = strings.Join(p.build.BuildLogs(ctx), "\n")
		}
		return nil
	})
	if err != nil && p.state.BuildStatus == "" {
		p.state.BuildStatus = "failure: " + err.Error()
	}
	return err
}

func (p *Pipeline) predictBuild(ctx context.Context) (err error) {
	stack := p.stack()
	data := agents.BuildData{
		DockerfileExists:    p.fs.Exists(p.cfg.Project.DockerfilePath),
		CIPipelineExists:    p.fs.Exists(p.cfg.Project.WorkflowPath),
		LastBuildStatus:     p.state.BuildStatus,
		NodeVersion:         stack.NodeVersion,
		TypeScriptVersion:   stack.TypeScriptVersion,
		DependenciesUpdated: p.fs.Exists(path.Join(p.cfg.Project.FrontendDir, "package-lock.json")),
	}
	p.state.BuildData = data
	details := map[string]interface{}{"build_data": data.Details(), "tech_stack": stack.Details()}
	defer func() {
		details["prediction"] = p.state.Prediction
		p.record(agents.BuildPredictorAgentName, BuildAnalysisPath,
			fmt.Sprintf("Predicted build outcome for %s with %s", stack.Framework, stack.BuildTool), details, err)
	}()
	err = p.protect(StagePredictBuild, func() error {
		res := p.predictor.Predict(ctx, data, stack)
		p.state.Prediction = res.Content
		if res.Failed() {
			return collaboratorFailure("build prediction", res.Content)
		}
		return nil
	})
	return err
}

func (p *Pipeline) generateDocumentation(ctx context.Context) error {
	summary := p.summarizer.Generate(ctx)
	p.state.Documentation = summary
	if summary.Path == "" {
		return errors.New("documentation was generated but could not be written")
	}
	return nil
}

// collaboratorFailure turns an error string reported by an agent into an error.
func collaboratorFailure(op, msg string) error {
	return fmt.Errorf("%s: %s", op, strings.TrimPrefix(msg, "Error: "))
}
