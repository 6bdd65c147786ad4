package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
)

// BuildData is the environment summary the predictor reasons about.
type BuildData struct {
	DockerfileExists    bool
	CIPipelineExists    bool
	LastBuildStatus     string
	NodeVersion         string
	TypeScriptVersion   string
	DependenciesUpdated bool
}

// Details flattens the build data for change records.
func (d BuildData) Details() map[string]interface{} {
	return map[string]interface{}{
		"dockerfile_exists":    d.DockerfileExists,
		"ci_pipeline_exists":   d.CIPipelineExists,
		"last_build_status":    d.LastBuildStatus,
		"node_version":         d.NodeVersion,
		"typescript_version":   d.TypeScriptVersion,
		"dependencies_updated": d.DependenciesUpdated,
	}
}

func (d BuildData) lines() []string {
	return []string{
		fmt.Sprintf("- dockerfile_exists: %t", d.DockerfileExists),
		fmt.Sprintf("- ci_pipeline_exists: %t", d.CIPipelineExists),
		"- last_build_status: " + d.LastBuildStatus,
		"- node_version: " + d.NodeVersion,
		"- typescript_version: " + d.TypeScriptVersion,
		fmt.Sprintf("- dependencies_updated: %t", d.DependenciesUpdated),
	}
}

var frameworkQuestions = map[string]string{
	"react": "3. Are there potential issues with React component rendering or hooks?\n" +
		"4. Could there be problems with JSX syntax or React-specific patterns?\n",
	"vue": "3. Are there potential issues with Vue component structure or lifecycle hooks?\n" +
		"4. Could there be problems with Vue templates or directives?\n",
	"angular": "3. Are there potential issues with Angular modules, components, or services?\n" +
		"4. Could there be problems with dependency injection or Angular decorators?\n",
	"svelte": "3. Are there potential issues with Svelte component structure or reactivity?\n" +
		"4. Could there be problems with Svelte's compile-time framework approach?\n",
}

var buildToolQuestions = map[string]string{
	"vite": "5. Are there potential issues with Vite's configuration or plugin system?\n" +
		"6. Could there be problems with Vite's ES modules approach?\n",
	"webpack": "5. Are there potential issues with Webpack's configuration or loaders?\n" +
		"6. Could there be problems with code splitting or bundle optimization?\n",
	"next.js": "5. Are there potential issues with Next.js routing or server-side rendering?\n" +
		"6. Could there be problems with Next.js API routes or data fetching methods?\n",
}

var scssQuestions = "7. Are there potential issues with SCSS/SASS compilation or variables?\n" +
	"8. Could there be problems with SCSS/SASS import structure or mixins?\n"

var cssQuestions = map[string]string{
	"tailwind css": "7. Are there potential issues with Tailwind CSS configuration or plugin system?\n" +
		"8. Could there be problems with PurgeCSS or Tailwind's utility-first approach?\n",
	"bootstrap": "7. Are there potential issues with Bootstrap components or grid system?\n" +
		"8. Could there be problems with Bootstrap's JavaScript dependencies?\n",
	"scss": scssQuestions,
	"sass": scssQuestions,
}

const typeScriptQuestions = "9. Are there TypeScript compilation errors or type definition issues?\n" +
	"10. Could there be problems with TypeScript configuration or strict mode settings?\n"

const predictionFormat = `Format your response as follows:
PREDICTION: [SUCCESS/FAILURE]
CONFIDENCE: [percentage]
REASONING: [detailed explanation of your prediction]
RECOMMENDATIONS: [suggestions to prevent build failure if applicable]
`

// BuildPredictorAgent asks the model whether the next build will succeed.
type BuildPredictorAgent struct {
	llm    llm.Completer
	model  string
	logger *zap.Logger
}

// NewBuildPredictorAgent builds the predictor. logger may be nil.
func NewBuildPredictorAgent(completer llm.Completer, model string, logger *zap.Logger) *BuildPredictorAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BuildPredictorAgent{llm: completer, model: model, logger: logger}
}

// Predict issues one completion and returns its text unparsed.
func (a *BuildPredictorAgent) Predict(ctx context.Context, data BuildData, stack TechStack) llm.TextResult {
	framework := firstNonEmpty(stack.Framework, DefaultTechStack().Framework)
	buildTool := firstNonEmpty(stack.BuildTool, DefaultTechStack().BuildTool)

	system := fmt.Sprintf("You are an AI build prediction expert specialized in %s projects with %s. "+
		"You analyze build data and predict outcomes.", framework, buildTool)
	res := a.llm.Infer(ctx, a.model, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: predictionPrompt(data, stack)},
	})
	if res.Failed() {
		a.logger.Warn("build prediction failed", zap.String("error", res.Content))
	}
	return res
}

func predictionPrompt(data BuildData, stack TechStack) string {
	var b strings.Builder
	b.WriteString("As an AI build prediction expert, analyze the following data about a frontend project " +
		"and predict whether the next build will succeed or fail.\n\n")
	b.WriteString("Frontend Tech Stack:\n")
	fmt.Fprintf(&b, "- framework: %s\n- build_tool: %s\n- css_framework: %s\n- typescript: %t\n",
		stack.Framework, stack.BuildTool, stack.CSSFramework, stack.TypeScript)
	b.WriteString("\nBuild Environment Data:\n")
	b.WriteString(strings.Join(data.lines(), "\n"))
	b.WriteString("\n\nConsider the following factors in your analysis:\n")
	b.WriteString("1. Are there any incompatibilities between the Node.js version and the detected framework/libraries?\n")
	b.WriteString("2. Are there version compatibility issues between the frontend framework and its dependencies?\n")
	b.WriteString(frameworkQuestions[strings.ToLower(stack.Framework)])
	b.WriteString(buildToolQuestions[strings.ToLower(stack.BuildTool)])
	b.WriteString(cssQuestions[strings.ToLower(stack.CSSFramework)])
	if stack.TypeScript {
		b.WriteString(typeScriptQuestions)
	}
	b.WriteString("\n" + predictionFormat)
	return b.String()
}
