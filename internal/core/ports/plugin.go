package ports

import (
	"context"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"go.uber.org/zap"
)

// RuntimeDependency declares something a plugin needs at load time, such
// as a credential. Hint tells the user how to satisfy it.
type RuntimeDependency struct {
	Required bool
	Hint     string
}

// Manifest describes a provider plugin to the registry.
type Manifest struct {
	Name        string
	Version     string
	Description string

	// Dependencies are names of other plugins that must be enabled first.
	Dependencies []string

	// Runtime maps a config key to its requirement. A required key must
	// resolve to a non-empty value in the plugin's config slice or the
	// corresponding upper-cased environment variable.
	Runtime map[string]RuntimeDependency
}

// LoadContext is handed to a plugin exactly once when the registry
// enables it.
type LoadContext struct {
	Logger      *zap.Logger
	Attachments AttachmentResolver
	Config      *domain.Config
	// PluginConfig is this plugin's configuration slice: the matching
	// service's block, or an explicit per-plugin block.
	PluginConfig map[string]string
}

// ProviderPlugin is the full plugin capability: an AIProvider plus the
// registry lifecycle. Instances are owned by the registry once
// registered; other components only borrow AIProvider references.
type ProviderPlugin interface {
	AIProvider

	Manifest() Manifest
	OnLoad(ctx context.Context, lc LoadContext) error
	OnUnload(ctx context.Context) error
}
