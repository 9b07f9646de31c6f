package domain

// DefaultServiceKey is the reserved pseudo-service name used to point at
// another configured service; it never hosts models of its own and is
// excluded from bare-reference scans.
const DefaultServiceKey = "default"

// ModelPrice is a per-million-token price pair for one model.
type ModelPrice struct {
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million" mapstructure:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million" mapstructure:"output_per_million"`
}

// ServiceConfig represents the configuration for a single AI service.
type ServiceConfig struct {
	// Type selects the provider adapter; defaults to the service name.
	Type    string                `json:"type" yaml:"type" mapstructure:"type"`
	APIKey  string                `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	BaseURL string                `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Models  []string              `json:"models" yaml:"models" mapstructure:"models"`
	Prices  map[string]ModelPrice `json:"prices" yaml:"prices" mapstructure:"prices"`
}

// HasModel reports membership of a bare model name in the configured list.
func (s ServiceConfig) HasModel(model string) bool {
	for _, m := range s.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Config is the configuration snapshot the core operates over. The
// registry and the consult engine hold one snapshot for their lifetime;
// callers that mutate configuration mid-flight must serialize against
// active consultations.
type Config struct {
	Services map[string]ServiceConfig `json:"services" yaml:"services" mapstructure:"services"`

	// Per-plugin config blocks, keyed by plugin name. Used when a plugin
	// has no matching service block.
	Plugins map[string]map[string]string `json:"plugins" yaml:"plugins" mapstructure:"plugins"`

	DefaultService string   `json:"default_service" yaml:"default_service" mapstructure:"default_service"`
	DefaultModel   string   `json:"default_model" yaml:"default_model" mapstructure:"default_model"`
	DefaultModels  []string `json:"default_models" yaml:"default_models" mapstructure:"default_models"`

	MaxRetries     int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// Service returns the config block for a service name.
func (c *Config) Service(name string) (ServiceConfig, bool) {
	svc, ok := c.Services[name]
	return svc, ok
}

// PriceFor returns the price entry for an exact (service, model) pair.
func (c *Config) PriceFor(service, model string) (ModelPrice, bool) {
	svc, ok := c.Services[service]
	if !ok {
		return ModelPrice{}, false
	}
	price, ok := svc.Prices[model]
	return price, ok
}

// PluginConfig returns the plugin-specific configuration slice: the
// explicit per-plugin block when present, otherwise the matching
// service's credential and endpoint fields flattened to a map.
func (c *Config) PluginConfig(name string) map[string]string {
	if block, ok := c.Plugins[name]; ok {
		return block
	}
	svc, ok := c.Services[name]
	if !ok {
		return nil
	}
	out := map[string]string{}
	if svc.APIKey != "" {
		out["api_key"] = svc.APIKey
	}
	if svc.BaseURL != "" {
		out["base_url"] = svc.BaseURL
	}
	return out
}
