package modeldata

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"aiagents/internal/core"
)

//go:embed models.yaml
var embeddedModels []byte

const (
	fallbackMaxTokens      = 4000
	fallbackRecommendation = "general use"
	statusAvailable        = "available"
)

// Catalog is the read-only table of supported models. It is safe for
// concurrent use once built.
type Catalog struct {
	list ModelList
	// byName maps canonical IDs and aliases to an index in list.Models
	byName map[string]int
}

// Embedded parses the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	return Parse(embeddedModels)
}

// Parse builds a Catalog from YAML data.
func Parse(data []byte) (*Catalog, error) {
	var list ModelList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	if len(list.Models) == 0 {
		return nil, errors.New("model catalog has no models")
	}
	if list.Defaults.MaxTokens <= 0 {
		list.Defaults.MaxTokens = fallbackMaxTokens
	}
	if list.Defaults.Recommendation == "" {
		list.Defaults.Recommendation = fallbackRecommendation
	}

	c := &Catalog{list: list, byName: make(map[string]int)}
	for i, m := range list.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("model catalog entry %d has no id", i)
		}
		if m.MaxTokens < 0 {
			return nil, fmt.Errorf("model %q has negative max_tokens", m.ID)
		}
		if err := c.register(m.ID, i); err != nil {
			return nil, err
		}
	}
	for i, m := range list.Models {
		for _, alias := range m.Aliases {
			if err := c.register(alias, i); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Catalog) register(name string, index int) error {
	if existing, ok := c.byName[name]; ok {
		return fmt.Errorf("model name %q is used by both %q and %q",
			name, c.list.Models[existing].ID, c.list.Models[index].ID)
	}
	c.byName[name] = index
	return nil
}

// Resolve returns the entry for a canonical ID or alias.
func (c *Catalog) Resolve(name string) (ModelEntry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return ModelEntry{}, false
	}
	return c.list.Models[i], true
}

// Supports reports whether name is a canonical ID or alias of a model.
func (c *Catalog) Supports(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// IDs returns the canonical model identifiers in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.list.Models))
	for i, m := range c.list.Models {
		ids[i] = m.ID
	}
	return ids
}

// MaxTokens returns the token ceiling for name, or the default ceiling for
// models without one.
func (c *Catalog) MaxTokens(name string) int {
	if m, ok := c.Resolve(name); ok && m.MaxTokens > 0 {
		return m.MaxTokens
	}
	return c.list.Defaults.MaxTokens
}

// Pricing returns the pricing entry for name, or the default pricing.
func (c *Catalog) Pricing(name string) core.Pricing {
	if m, ok := c.Resolve(name); ok && m.Pricing != nil {
		return *m.Pricing
	}
	return c.list.Defaults.Pricing
}

// Recommendation returns the usage recommendation for a model family.
func (c *Catalog) Recommendation(family string) string {
	if r, ok := c.list.Recommendations[family]; ok && r != "" {
		return r
	}
	return c.list.Defaults.Recommendation
}

// Info returns the descriptive metadata for name.
func (c *Catalog) Info(name string) (core.ModelInfo, bool) {
	m, ok := c.Resolve(name)
	if !ok {
		return core.ModelInfo{}, false
	}
	description := m.Description
	if description == "" {
		description = fmt.Sprintf("Model %s for generative AI", m.ID)
	}
	return core.ModelInfo{
		Name:        m.ID,
		MaxTokens:   c.MaxTokens(m.ID),
		Description: description,
		Status:      statusAvailable,
		Pricing:     c.Pricing(m.ID),
	}, true
}

// Summaries returns the listing entries for every model in catalog order.
func (c *Catalog) Summaries() []core.ModelSummary {
	summaries := make([]core.ModelSummary, 0, len(c.list.Models))
	for _, m := range c.list.Models {
		summaries = append(summaries, core.ModelSummary{
			Name:           m.ID,
			DisplayName:    displayName(m),
			RecommendedFor: c.Recommendation(m.Family),
		})
	}
	return summaries
}

func displayName(m ModelEntry) string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	// Casers are stateful, so one is built per call.
	return cases.Title(language.Und).String(strings.ReplaceAll(m.ID, "-", " "))
}
