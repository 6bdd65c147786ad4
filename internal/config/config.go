package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config describes the top-level application configuration loaded from YAML, .env and ENV.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Models  ModelsConfig  `mapstructure:"models"`
	Project ProjectConfig `mapstructure:"project"`
	CI      CIConfig      `mapstructure:"ci"`
	Docker  DockerConfig  `mapstructure:"docker"`
	Build   BuildConfig   `mapstructure:"build"`
	Docs    DocsConfig    `mapstructure:"docs"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LLMConfig points at the chat-completion service.
type LLMConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`     // base host or full completion URL
	APIKey      string        `mapstructure:"api_key"`      // bearer token
	Timeout     time.Duration `mapstructure:"timeout"`      // per-request timeout
	ServiceName string        `mapstructure:"service_name"` // used in "No response from <service>"
}

// ProjectConfig locates the inspected project and the generated artifacts.
type ProjectConfig struct {
	Root           string `mapstructure:"root"`
	FrontendDir    string `mapstructure:"frontend_dir"`
	WorkflowPath   string `mapstructure:"workflow_path"`
	DockerfilePath string `mapstructure:"dockerfile_path"`
}

// CIConfig controls the generated GitHub Actions workflow.
type CIConfig struct {
	WorkflowName  string `mapstructure:"workflow_name"` // empty: "<framework> <build tool> CI Pipeline"
	NodeVersion   string `mapstructure:"node_version"`
	PythonVersion string `mapstructure:"python_version"`
	RunTests      bool   `mapstructure:"run_tests"`
	RunLinting    bool   `mapstructure:"run_linting"`
	BuildFrontend bool   `mapstructure:"build_frontend"`
}

// DockerConfig controls the generated Dockerfile and the image tag.
type DockerConfig struct {
	BaseImage    string `mapstructure:"base_image"`
	BuildCommand string `mapstructure:"build_command"`
	ServeCommand string `mapstructure:"serve_command"` // empty: derived from the build tool
	ExposePort   int    `mapstructure:"expose_port"`
	CopySource   string `mapstructure:"copy_source"`
	WorkDir      string `mapstructure:"work_dir"`
	ImageTag     string `mapstructure:"image_tag"`
}

// BuildConfig controls the docker build/check stage.
type BuildConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	StartContainer bool          `mapstructure:"start_container"`
	BuildTimeout   time.Duration `mapstructure:"build_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	HealthAttempts int           `mapstructure:"health_attempts"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
}

// DocsConfig controls change documentation output.
type DocsConfig struct {
	OutputDir  string `mapstructure:"output_dir"`
	DiffBudget int    `mapstructure:"diff_budget"` // max diff characters per record in the LLM prompt
}

// GitHubConfig configures the pull-request collaborator used by review/chat.
type GitHubConfig struct {
	APIURL           string        `mapstructure:"api_url"`
	Token            string        `mapstructure:"token"`
	Repo             string        `mapstructure:"repo"`
	PullRequest      int           `mapstructure:"pull_request"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ReviewExtensions []string      `mapstructure:"review_extensions"`
}

// LoggingConfig controls logger behaviour.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// MetricsConfig controls where run metrics are persisted.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty disables
}

// ValidationError reports a misconfigured deployment. It is the only error class treated as fatal.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Load reads configuration from the provided path or from devgenius.yaml in . or configs/.
// A .env file next to the config (or in the working directory) is loaded first; it never
// overrides variables already present in the environment.
// Environment variables override file values (prefix: DEVGENIUS_, dots replaced with underscores).
// GROQ_API_ENDPOINT, GROQ_API_KEY and GITHUB_TOKEN are honoured as aliases.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DEVGENIUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindAliases(v)

	if path == "" {
		v.SetConfigName("devgenius")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(cfgPath string) error {
	dir := "."
	if cfgPath != "" {
		dir = filepath.Dir(cfgPath)
	}
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

func bindAliases(v *viper.Viper) {
	_ = v.BindEnv("llm.endpoint", "DEVGENIUS_LLM_ENDPOINT", "GROQ_API_ENDPOINT")
	_ = v.BindEnv("llm.api_key", "DEVGENIUS_LLM_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("github.token", "DEVGENIUS_GITHUB_TOKEN", "GITHUB_TOKEN", "GH_TOKEN")
}

// setDefaults populates defaults mirroring the values the pipeline was designed around.
func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.service_name", "GROQ API")

	v.SetDefault("models.default", "llama3-8b-8192")
	v.SetDefault("models.force", "")
	v.SetDefault("models.overrides", map[string]string{})

	v.SetDefault("project.root", ".")
	v.SetDefault("project.frontend_dir", "frontend")
	v.SetDefault("project.workflow_path", ".github/workflows/frontend-ci.yml")
	v.SetDefault("project.dockerfile_path", "Dockerfile")

	v.SetDefault("ci.workflow_name", "")
	v.SetDefault("ci.node_version", "18.x")
	v.SetDefault("ci.python_version", "3.13.0")
	v.SetDefault("ci.run_tests", true)
	v.SetDefault("ci.run_linting", true)
	v.SetDefault("ci.build_frontend", true)

	v.SetDefault("docker.base_image", "node:18-alpine")
	v.SetDefault("docker.build_command", "npm run build")
	v.SetDefault("docker.serve_command", "")
	v.SetDefault("docker.expose_port", 4173)
	v.SetDefault("docker.copy_source", "./frontend")
	v.SetDefault("docker.work_dir", "/app")
	v.SetDefault("docker.image_tag", "devgenius-frontend:latest")

	v.SetDefault("build.enabled", true)
	v.SetDefault("build.start_container", true)
	v.SetDefault("build.build_timeout", 10*time.Minute)
	v.SetDefault("build.command_timeout", 30*time.Second)
	v.SetDefault("build.health_attempts", 6)
	v.SetDefault("build.health_interval", 5*time.Second)

	v.SetDefault("docs.output_dir", "docs")
	v.SetDefault("docs.diff_budget", 500)

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.token", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.pull_request", 0)
	v.SetDefault("github.timeout", 30*time.Second)
	v.SetDefault("github.review_extensions", []string{".py", ".js", ".jsx", ".ts", ".tsx", ".vue", ".svelte"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.textfile", "")
}

// Validate performs sanity checks; every failure is a *ValidationError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.Endpoint) == "" {
		return invalid("llm.endpoint", "is required (set GROQ_API_ENDPOINT or DEVGENIUS_LLM_ENDPOINT)")
	}
	u, err := url.Parse(strings.TrimSpace(c.LLM.Endpoint))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("llm.endpoint", "must be an absolute http(s) URL, got %q", c.LLM.Endpoint)
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return invalid("llm.api_key", "is required (set GROQ_API_KEY or DEVGENIUS_LLM_API_KEY)")
	}
	if c.LLM.Timeout < 0 {
		return invalid("llm.timeout", "must be >= 0")
	}

	if strings.TrimSpace(c.Models.Default) == "" && strings.TrimSpace(c.Models.Force) == "" {
		return invalid("models.default", "is required")
	}

	if strings.TrimSpace(c.Project.WorkflowPath) == "" {
		return invalid("project.workflow_path", "is required")
	}
	if strings.TrimSpace(c.Project.DockerfilePath) == "" {
		return invalid("project.dockerfile_path", "is required")
	}

	if c.Docker.ExposePort <= 0 || c.Docker.ExposePort > 65535 {
		return invalid("docker.expose_port", "must be within [1,65535]")
	}
	if strings.TrimSpace(c.Docker.BaseImage) == "" {
		return invalid("docker.base_image", "is required")
	}
	if strings.TrimSpace(c.Docker.ImageTag) == "" {
		return invalid("docker.image_tag", "is required")
	}

	if c.Build.BuildTimeout <= 0 {
		return invalid("build.build_timeout", "must be > 0")
	}
	if c.Build.CommandTimeout <= 0 {
		return invalid("build.command_timeout", "must be > 0")
	}
	if c.Build.HealthAttempts < 0 {
		return invalid("build.health_attempts", "must be >= 0")
	}

	if strings.TrimSpace(c.Docs.OutputDir) == "" {
		return invalid("docs.output_dir", "is required")
	}
	if c.Docs.DiffBudget < 0 {
		return invalid("docs.diff_budget", "must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return invalid("logging.format", "must be one of console or json, got %q", c.Logging.Format)
	}

	return nil
}

// ValidatePullRequest checks the fields needed by the review and chat agents.
func (g GitHubConfig) ValidatePullRequest() error {
	if strings.TrimSpace(g.Token) == "" {
		return invalid("github.token", "is required (set GITHUB_TOKEN)")
	}
	owner, name, ok := strings.Cut(g.Repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return invalid("github.repo", "must be in owner/name form, got %q", g.Repo)
	}
	if g.PullRequest <= 0 {
		return invalid("github.pull_request", "must be > 0")
	}
	return nil
}
