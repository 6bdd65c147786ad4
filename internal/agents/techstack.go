package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
)

// Unknown marks a tech-stack field that could not be determined.
const Unknown = "unknown"

// TechStack describes the detected frontend toolchain.
type TechStack struct {
	Framework           string
	BuildTool           string
	CSSFramework        string
	TypeScript          bool
	NodeVersion         string
	TypeScriptVersion   string
	StateManagement     string
	AdditionalLibraries []string
	Error               string // set when detection failed
}

// DefaultTechStack is assumed for any field the analysis leaves out.
func DefaultTechStack() TechStack {
	return TechStack{
		Framework:         "React",
		BuildTool:         "Vite",
		CSSFramework:      "Tailwind CSS",
		TypeScript:        true,
		NodeVersion:       "18.x",
		TypeScriptVersion: "^5.0.0",
	}
}

// Details flattens the descriptor for change records and prompts.
func (t TechStack) Details() map[string]interface{} {
	d := map[string]interface{}{
		"framework":          t.Framework,
		"build_tool":         t.BuildTool,
		"css_framework":      t.CSSFramework,
		"typescript":         t.TypeScript,
		"node_version":       t.NodeVersion,
		"typescript_version": t.TypeScriptVersion,
	}
	if t.StateManagement != "" {
		d["state_management"] = t.StateManagement
	}
	if len(t.AdditionalLibraries) > 0 {
		d["additional_libraries"] = strings.Join(t.AdditionalLibraries, ", ")
	}
	if t.Error != "" {
		d["error"] = t.Error
	}
	return d
}

var configPatterns = []string{
	"vite.config.*",
	"tailwind.config.*",
	"webpack.config.*",
	"next.config.*",
	"astro.config.*",
	"svelte.config.*",
	"tsconfig.json",
	".eslintrc.*",
}

var sampleExtensions = []string{"js", "ts", "jsx", "tsx", "vue", "svelte", "astro"}

const techStackSystemPrompt = "You are an AI tech stack analyzer specialized in frontend technologies. " +
	"Analyze the provided code and configuration files to identify the tech stack."

type namedFile struct {
	name    string
	content string
}

// TechStackAgent inspects the frontend directory and asks the model to name its stack.
type TechStackAgent struct {
	fs          ProjectFS
	llm         llm.Completer
	model       string
	frontendDir string
	logger      *zap.Logger
}

// NewTechStackAgent builds a TechStackAgent. logger may be nil.
func NewTechStackAgent(fs ProjectFS, completer llm.Completer, model, frontendDir string, logger *zap.Logger) *TechStackAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechStackAgent{fs: fs, llm: completer, model: model, frontendDir: frontendDir, logger: logger}
}

// Detect analyzes the project. A failed model call yields a descriptor with
// unknown fields and Error set; it never panics on odd project contents.
func (a *TechStackAgent) Detect(ctx context.Context) TechStack {
	pkg := a.packageJSON()
	configs := a.configFiles()
	samples := a.codeSamples()

	res := a.llm.Infer(ctx, a.model, []llm.Message{
		{Role: llm.RoleSystem, Content: techStackSystemPrompt},
		{Role: llm.RoleUser, Content: analysisPrompt(pkg, configs, samples)},
	})
	if res.Failed() {
		a.logger.Warn("tech stack analysis failed", zap.String("error", res.Content))
		return TechStack{Framework: Unknown, BuildTool: Unknown, CSSFramework: Unknown, Error: res.Content}
	}

	stack := ExtractTechStack(res.Content)
	if stack.TypeScriptVersion == "" && pkg.Exists() {
		stack.TypeScriptVersion = pkg.Get(`devDependencies.typescript`).String()
	}
	if stack.NodeVersion == "" && pkg.Exists() {
		stack.NodeVersion = pkg.Get(`engines.node`).String()
	}
	stack = withDefaults(stack)
	a.logger.Info("tech stack detected",
		zap.String("framework", stack.Framework),
		zap.String("build_tool", stack.BuildTool),
		zap.String("css_framework", stack.CSSFramework),
		zap.Bool("typescript", stack.TypeScript),
	)
	return stack
}

func (a *TechStackAgent) packageJSON() gjson.Result {
	p := path.Join(a.frontendDir, "package.json")
	raw, err := a.fs.ReadFile(p)
	if err != nil {
		return gjson.Result{}
	}
	if !gjson.Valid(raw) {
		a.logger.Warn("package.json is not valid JSON", zap.String("path", p))
		return gjson.Result{}
	}
	return gjson.Parse(raw)
}

func (a *TechStackAgent) configFiles() []namedFile {
	var files []namedFile
	seen := make(map[string]bool)
	for _, pattern := range configPatterns {
		matches, err := a.fs.Glob(path.Join(a.frontendDir, pattern))
		if err != nil {
			a.logger.Debug("config glob failed", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		for _, m := range matches {
			name := path.Base(m)
			if seen[name] {
				continue
			}
			content, err := a.fs.ReadFile(m)
			if err != nil {
				continue
			}
			seen[name] = true
			files = append(files, namedFile{name: name, content: content})
		}
	}
	return files
}

func (a *TechStackAgent) codeSamples() []namedFile {
	var files []namedFile
	seen := make(map[string]bool)
	for _, ext := range sampleExtensions {
		var candidates []string
		for _, dir := range []string{path.Join(a.frontendDir, "src"), path.Join(a.frontendDir, "src", "components")} {
			found, err := a.fs.ListFiles(dir, ext, 0)
			if err != nil {
				continue
			}
			candidates = append(candidates, found...)
		}
		if len(candidates) > 3 {
			candidates = candidates[:3]
		}
		for _, c := range candidates {
			name := path.Base(c)
			if seen[name] {
				continue
			}
			content, err := a.fs.ReadFile(c)
			if err != nil {
				continue
			}
			seen[name] = true
			files = append(files, namedFile{name: name, content: content})
		}
	}
	return files
}

func analysisPrompt(pkg gjson.Result, configs, samples []namedFile) string {
	var b strings.Builder
	b.WriteString("Please analyze these frontend project files to determine the tech stack:\n\n")

	if pkg.Exists() {
		b.WriteString("PACKAGE.JSON DEPENDENCIES:\n")
		if deps := pkg.Get("dependencies"); deps.Exists() {
			b.WriteString(indentJSON(deps.Raw) + "\n\n")
		}
		if dev := pkg.Get("devDependencies"); dev.Exists() {
			b.WriteString("DEV DEPENDENCIES:\n")
			b.WriteString(indentJSON(dev.Raw) + "\n\n")
		}
	}

	fmt.Fprintf(&b, "CONFIG FILES PRESENT: %s\n\n", strings.Join(names(configs), ", "))
	writeExcerpts(&b, configs, 3)

	fmt.Fprintf(&b, "CODE FILES PRESENT: %s\n\n", strings.Join(names(samples), ", "))
	writeExcerpts(&b, samples, 2)

	b.WriteString(`Based on these files, please identify:
1. Main frontend framework (React, Vue, Angular, Svelte, etc.)
2. Build tool (Vite, Webpack, Next.js, Astro, etc.)
3. CSS framework or approach (Tailwind, Bootstrap, SCSS, styled-components, etc.)
4. TypeScript usage
5. State management libraries
6. Additional significant libraries/frameworks

Format your response as a JSON object with the keys framework, build_tool, css_framework, typescript, state_management and additional_libraries.
`)
	return b.String()
}

func writeExcerpts(b *strings.Builder, files []namedFile, limit int) {
	for i, f := range files {
		if i >= limit {
			break
		}
		fmt.Fprintf(b, "%s (truncated):\n%s\n...\n\n", f.name, firstLines(f.content, 20))
	}
}

func names(files []namedFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.name)
	}
	return out
}

func indentJSON(raw string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}

// ExtractTechStack reads the descriptor from a model answer. An embedded JSON
// object wins; otherwise keywords in the prose are used.
func ExtractTechStack(content string) TechStack {
	if obj, ok := llm.ExtractJSONObject(content); ok {
		return techStackFromJSON(gjson.Parse(obj))
	}

	lower := strings.ToLower(content)
	stack := TechStack{Framework: Unknown, BuildTool: Unknown, CSSFramework: Unknown, StateManagement: Unknown}
	switch {
	case strings.Contains(lower, "react"):
		stack.Framework = "React"
	case strings.Contains(lower, "vue"):
		stack.Framework = "Vue"
	case strings.Contains(lower, "svelte"):
		stack.Framework = "Svelte"
	}
	switch {
	case strings.Contains(lower, "vite"):
		stack.BuildTool = "Vite"
	case strings.Contains(lower, "webpack"):
		stack.BuildTool = "Webpack"
	case strings.Contains(lower, "next.js"), strings.Contains(lower, "nextjs"):
		stack.BuildTool = "Next.js"
	}
	switch {
	case strings.Contains(lower, "tailwind"):
		stack.CSSFramework = "Tailwind CSS"
	case strings.Contains(lower, "bootstrap"):
		stack.CSSFramework = "Bootstrap"
	}
	stack.TypeScript = strings.Contains(lower, "typescript")
	return stack
}

func techStackFromJSON(doc gjson.Result) TechStack {
	if nested := doc.Get("tech_stack"); nested.IsObject() {
		doc = nested
	}
	stack := TechStack{
		Framework:         lookupString(doc, "framework", "main_frontend_framework", "frontend_framework"),
		BuildTool:         lookupString(doc, "build_tool", "buildTool"),
		CSSFramework:      lookupString(doc, "css_framework", "cssFramework", "css"),
		NodeVersion:       lookupString(doc, "node_version", "nodeVersion"),
		TypeScriptVersion: lookupString(doc, "typescript_version", "typescriptVersion"),
		StateManagement:   lookupString(doc, "state_management", "stateManagement"),
	}

	ts := lookupValue(doc, "typescript", "typescript_usage", "uses_typescript")
	switch ts.Type {
	case gjson.True, gjson.False, gjson.Number:
		stack.TypeScript = ts.Bool()
	case gjson.String:
		v := strings.ToLower(strings.TrimSpace(ts.Str))
		stack.TypeScript = v == "true" || v == "yes" || strings.HasPrefix(v, "yes")
	case gjson.Null:
		stack.TypeScript = true
	}

	libs := lookupValue(doc, "additional_libraries", "additionalLibraries")
	if libs.IsArray() {
		for _, l := range libs.Array() {
			if s := strings.TrimSpace(l.String()); s != "" {
				stack.AdditionalLibraries = append(stack.AdditionalLibraries, s)
			}
		}
	}
	return stack
}

func lookupValue(doc gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := doc.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// lookupString returns the first present key as text. Lists collapse to
// their first element.
func lookupString(doc gjson.Result, keys ...string) string {
	v := lookupValue(doc, keys...)
	if v.IsArray() {
		items := v.Array()
		if len(items) == 0 {
			return ""
		}
		v = items[0]
	}
	if v.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(v.String())
}

func withDefaults(s TechStack) TechStack {
	return fillFields(s, func(v string) bool { return v == "" })
}

// ForGeneration is the descriptor the generators work from. A failed
// detection yields the defaults; otherwise only empty or unknown fields are
// defaulted and everything detected is kept.
func (t TechStack) ForGeneration() TechStack {
	if t.Error != "" {
		return DefaultTechStack()
	}
	return fillFields(t, func(v string) bool {
		v = strings.TrimSpace(v)
		return v == "" || strings.EqualFold(v, Unknown)
	})
}

func fillFields(s TechStack, missing func(string) bool) TechStack {
	d := DefaultTechStack()
	if missing(s.Framework) {
		s.Framework = d.Framework
	}
	if missing(s.BuildTool) {
		s.BuildTool = d.BuildTool
	}
	if missing(s.CSSFramework) {
		s.CSSFramework = d.CSSFramework
	}
	if missing(s.NodeVersion) {
		s.NodeVersion = d.NodeVersion
	}
	if missing(s.TypeScriptVersion) {
		s.TypeScriptVersion = d.TypeScriptVersion
	}
	return s
}
