package ports

import "context"

// PluginRegistry is the lookup surface the consult engine depends on.
type PluginRegistry interface {
	// GetAIProvider resolves a bare model name or "service/model"
	// reference to an enabled provider. Lenient: a bare reference is
	// matched against every enabled plugin in registration order.
	GetAIProvider(ctx context.Context, reference string) (AIProvider, error)

	// EnabledProviders returns the enabled plugins in registration order.
	EnabledProviders() []AIProvider
}
