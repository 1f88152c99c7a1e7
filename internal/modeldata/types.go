// Package modeldata provides the static catalog of simulated models: their
// identifiers, aliases, token ceilings, pricing and usage recommendations.
package modeldata

import "aiagents/internal/core"

// ModelList represents the top-level structure of models.yaml.
type ModelList struct {
	Version         int               `yaml:"version"`
	Defaults        Defaults          `yaml:"defaults"`
	Recommendations map[string]string `yaml:"recommendations"`
	Models          []ModelEntry      `yaml:"models"`
}

// Defaults apply to models that leave a field unset.
type Defaults struct {
	MaxTokens      int          `yaml:"max_tokens"`
	Pricing        core.Pricing `yaml:"pricing"`
	Recommendation string       `yaml:"recommendation"`
}

// ModelEntry is a single supported model.
type ModelEntry struct {
	ID          string        `yaml:"id"`
	Family      string        `yaml:"family"`
	Aliases     []string      `yaml:"aliases"`
	DisplayName string        `yaml:"display_name"`
	Description string        `yaml:"description"`
	MaxTokens   int           `yaml:"max_tokens"`
	Pricing     *core.Pricing `yaml:"pricing"`
}
