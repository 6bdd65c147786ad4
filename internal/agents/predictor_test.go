package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
	llmmock "github.com/PhongLee1210/ai-agents-devop-team/internal/llm/mock"
)

func TestPredictReturnsTextVerbatim(t *testing.T) {
	answer := "PREDICTION: SUCCESS\nCONFIDENCE: 80%\nREASONING: fine\nRECOMMENDATIONS: none"
	mock := &llmmock.Completer{
		InferFn: func(context.Context, string, []llm.Message) llm.TextResult {
			return llm.TextResult{Content: answer, Status: llm.StatusSuccess}
		},
	}
	data := BuildData{DockerfileExists: true, CIPipelineExists: true, LastBuildStatus: StatusSuccess, NodeVersion: "18.x", TypeScriptVersion: "^5.0.0"}

	res := NewBuildPredictorAgent(mock, "p", nil).Predict(context.Background(), data, DefaultTechStack())
	require.Equal(t, answer, res.Content)
	require.False(t, res.Failed())

	calls := mock.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "p", calls[0].Model)
	require.Equal(t, "You are an AI build prediction expert specialized in React projects with Vite. "+
		"You analyze build data and predict outcomes.", calls[0].Messages[0].Content)

	prompt := calls[0].Messages[1].Content
	require.Contains(t, prompt, "- framework: React\n- build_tool: Vite")
	require.Contains(t, prompt, "- dockerfile_exists: true\n- ci_pipeline_exists: true\n- last_build_status: success")
	require.Contains(t, prompt, "React component rendering or hooks")
	require.Contains(t, prompt, "Vite's ES modules approach")
	require.Contains(t, prompt, "PurgeCSS")
	require.Contains(t, prompt, "9. Are there TypeScript compilation errors")
	require.Contains(t, prompt, "PREDICTION: [SUCCESS/FAILURE]")
}

func TestPredictionPromptConditionsOnStack(t *testing.T) {
	prompt := predictionPrompt(BuildData{}, TechStack{Framework: "Vue", BuildTool: "Webpack", CSSFramework: "SCSS"})
	require.Contains(t, prompt, "Vue templates or directives")
	require.Contains(t, prompt, "Webpack's configuration or loaders")
	require.Contains(t, prompt, "SCSS/SASS import structure")
	require.NotContains(t, prompt, "TypeScript compilation")
	require.NotContains(t, prompt, "React")
}

func TestPredictPassesErrorsThrough(t *testing.T) {
	mock := &llmmock.Completer{
		InferFn: func(context.Context, string, []llm.Message) llm.TextResult {
			return llm.TextResult{Content: "Error: upstream returned HTTP 500: boom", Status: llm.StatusError}
		},
	}
	res := NewBuildPredictorAgent(mock, "p", nil).Predict(context.Background(), BuildData{}, DefaultTechStack())
	require.True(t, res.Failed())
	require.Contains(t, res.Content, "HTTP 500")
}

func TestBuildDataDetails(t *testing.T) {
	d := BuildData{NodeVersion: "20.x", DependenciesUpdated: true}.Details()
	require.Equal(t, "20.x", d["node_version"])
	require.Equal(t, true, d["dependencies_updated"])
	require.Len(t, d, 6)
}
