package config

import "strings"

// Agent roles used as keys in models.overrides.
const (
	RoleTechStack     = "tech_stack"
	RolePredictor     = "build_predictor"
	RoleDocumentation = "documentation"
	RoleReview        = "code_review"
	RoleChat          = "chat"
)

// ModelsConfig defines per-agent model selection.
type ModelsConfig struct {
	Default   string            `mapstructure:"default"`
	Overrides map[string]string `mapstructure:"overrides"` // role -> model id
	// Force pins every agent to one model. It is meant for test runs and only
	// applies when set; a model passed explicitly by the caller still wins.
	Force string `mapstructure:"force"`
}

// Resolve picks the model for a role. Precedence: explicit > force > override > default.
func (m ModelsConfig) Resolve(role, explicit string) string {
	return firstNonEmpty(
		explicit,
		m.Force,
		m.Overrides[strings.ToLower(strings.TrimSpace(role))],
		m.Default,
	)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
