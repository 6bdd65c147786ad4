package agents

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/config"
)

var requiredInstructions = []string{"FROM", "WORKDIR", "COPY", "RUN", "EXPOSE", "CMD"}

// DockerfileAgent renders a multi-stage Dockerfile for the frontend.
type DockerfileAgent struct {
	cfg    config.DockerConfig
	logger *zap.Logger
}

// NewDockerfileAgent builds the Dockerfile generator. logger may be nil.
func NewDockerfileAgent(cfg config.DockerConfig, logger *zap.Logger) *DockerfileAgent {
	if cfg.BaseImage == "" {
		cfg.BaseImage = "node:18-alpine"
	}
	if cfg.BuildCommand == "" {
		cfg.BuildCommand = "npm run build"
	}
	if cfg.ExposePort == 0 {
		cfg.ExposePort = 4173
	}
	if cfg.CopySource == "" {
		cfg.CopySource = "./frontend"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "/app"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DockerfileAgent{cfg: cfg, logger: logger}
}

// Config returns the effective docker settings.
func (a *DockerfileAgent) Config() config.DockerConfig {
	return a.cfg
}

// Generate renders the Dockerfile for stack.
func (a *DockerfileAgent) Generate(stack TechStack) string {
	framework := firstNonEmpty(stack.Framework, DefaultTechStack().Framework)
	buildTool := firstNonEmpty(stack.BuildTool, DefaultTechStack().BuildTool)
	outDir := buildOutputDir(buildTool)
	serveTool, serveCmd := serveCommand(buildTool, outDir, a.cfg.ExposePort)
	if a.cfg.ServeCommand != "" {
		serveCmd = a.cfg.ServeCommand
	}
	c := a.cfg

	var b strings.Builder
	fmt.Fprintf(&b, "# Stage 1: Build the %s application with %s\n", framework, buildTool)
	fmt.Fprintf(&b, "FROM %s as build\n\n", c.BaseImage)
	fmt.Fprintf(&b, "# Set working directory\nWORKDIR %s\n\n", c.WorkDir)
	fmt.Fprintf(&b, "# Copy package.json and package-lock.json\nCOPY %s/package*.json ./\n\n", c.CopySource)
	b.WriteString("# Install dependencies\nRUN npm ci\n\n")
	fmt.Fprintf(&b, "# Copy all frontend files\nCOPY %s/ ./\n\n", c.CopySource)
	fmt.Fprintf(&b, "# Build the app\nRUN %s\n\n", c.BuildCommand)
	b.WriteString("# Stage 2: Setup production environment\n")
	fmt.Fprintf(&b, "FROM %s\n\n", c.BaseImage)
	fmt.Fprintf(&b, "WORKDIR %s\n\n", c.WorkDir)
	fmt.Fprintf(&b, "# Install %s for a production server\nRUN npm install -g %s\n\n", serveTool, serveTool)
	fmt.Fprintf(&b, "# Copy build files from the previous stage\nCOPY --from=build %s/%s ./%s\n\n", c.WorkDir, outDir, outDir)
	b.WriteString("# Set environment variables\nENV NODE_ENV=production\n\n")
	fmt.Fprintf(&b, "# Expose the port\nEXPOSE %d\n\n", c.ExposePort)
	fmt.Fprintf(&b, "HEALTHCHECK --interval=10s --timeout=3s --start-period=5s --retries=3 \\\n  CMD wget -q -O /dev/null http://localhost:%d/ || exit 1\n\n", c.ExposePort)
	fmt.Fprintf(&b, "# Set the command to serve the app\nCMD %s\n", serveCmd)

	a.logger.Debug("dockerfile rendered",
		zap.String("framework", framework),
		zap.String("build_tool", buildTool),
		zap.String("output_dir", outDir),
	)
	return b.String()
}

func buildOutputDir(buildTool string) string {
	switch strings.ToLower(buildTool) {
	case "next.js":
		return ".next"
	case "angular":
		return "dist/frontend"
	default:
		return "dist"
	}
}

func serveCommand(buildTool, outDir string, port int) (tool, cmd string) {
	switch strings.ToLower(buildTool) {
	case "next.js":
		return "next", fmt.Sprintf("next start -p ${PORT:-%d}", port)
	case "angular":
		return "angular-http-server", fmt.Sprintf("angular-http-server --path %s -p %d", outDir, port)
	default:
		return "serve", fmt.Sprintf("serve -s %s -l %d", outDir, port)
	}
}

// Validate checks that every required instruction appears and that the first
// instruction (ignoring comments and blank lines) is FROM.
func (a *DockerfileAgent) Validate(dockerfile string) error {
	seen := make(map[string]bool)
	first := ""
	for _, line := range strings.Split(dockerfile, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.Fields(trimmed)
		instr := strings.ToUpper(fields[0])
		if first == "" {
			first = instr
		}
		seen[instr] = true
	}
	if first != "FROM" {
		return fmt.Errorf("dockerfile must start with FROM, found %q", first)
	}
	var missing []string
	for _, instr := range requiredInstructions {
		if !seen[instr] {
			missing = append(missing, instr)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("dockerfile is missing %s", strings.Join(missing, ", "))
	}
	return nil
}
