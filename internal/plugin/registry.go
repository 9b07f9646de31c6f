package plugin

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"go.uber.org/zap"
)

// Registry owns the universe of known provider plugins and decides, per
// call, which are usable. The enabled set is the only mutable shared
// state in the core; it belongs to this instance alone, never to a
// package-level singleton.
type Registry struct {
	logger      *zap.Logger
	cfg         *domain.Config
	attachments ports.AttachmentResolver

	mu      sync.RWMutex
	plugins map[string]ports.ProviderPlugin
	order   []string // registration order, drives bare-reference scans
	enabled map[string]bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithAttachmentResolver makes a shared attachment resolver available to
// plugin load hooks.
func WithAttachmentResolver(r ports.AttachmentResolver) Option {
	return func(reg *Registry) {
		reg.attachments = r
	}
}

// NewRegistry creates a registry over one configuration snapshot.
func NewRegistry(cfg *domain.Config, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:  logger,
		cfg:     cfg,
		plugins: make(map[string]ports.ProviderPlugin),
		enabled: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.PluginRegistry = (*Registry)(nil)

// Register adds a plugin to the known set. The plugin's declared
// dependencies must already be registered.
func (r *Registry) Register(p ports.ProviderPlugin) error {
	m := p.Manifest()
	if m.Name == "" || m.Version == "" {
		return domain.BadRequestError("plugin manifest must include name and version")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, dep := range m.Dependencies {
		if _, ok := r.plugins[dep]; !ok {
			return domain.DependencyError(fmt.Sprintf(
				"plugin %q depends on %q, which is not registered", m.Name, dep))
		}
	}

	if _, exists := r.plugins[m.Name]; !exists {
		r.order = append(r.order, m.Name)
	}
	r.plugins[m.Name] = p

	r.logger.Info("registered plugin",
		zap.String("plugin", m.Name),
		zap.String("version", m.Version),
	)
	return nil
}

// Enable loads a plugin and marks it usable. Declared dependencies are
// enabled first; a dependency cycle fails fast instead of recursing.
// Enabling an unknown name is a warning, not an error.
func (r *Registry) Enable(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enableLocked(ctx, name, map[string]bool{})
}

func (r *Registry) enableLocked(ctx context.Context, name string, visiting map[string]bool) error {
	if r.enabled[name] {
		return nil
	}
	if visiting[name] {
		return domain.DependencyError(fmt.Sprintf(
			"circular plugin dependency detected at %q", name))
	}

	p, ok := r.plugins[name]
	if !ok {
		r.logger.Warn("cannot enable unknown plugin", zap.String("plugin", name))
		return nil
	}

	visiting[name] = true
	defer delete(visiting, name)

	m := p.Manifest()
	for _, dep := range m.Dependencies {
		if err := r.enableLocked(ctx, dep, visiting); err != nil {
			return err
		}
	}

	pluginCfg := r.cfg.PluginConfig(name)
	if err := checkRuntimeDeps(m, pluginCfg); err != nil {
		return err
	}

	lc := ports.LoadContext{
		Logger:       r.logger.With(zap.String("plugin", name)),
		Attachments:  r.attachments,
		Config:       r.cfg,
		PluginConfig: pluginCfg,
	}
	if err := p.OnLoad(ctx, lc); err != nil {
		return domain.WrapError(err, 500, fmt.Sprintf("plugin %q failed to load", name))
	}

	r.enabled[name] = true
	r.logger.Info("enabled plugin", zap.String("plugin", name))
	return nil
}

// checkRuntimeDeps verifies required runtime dependencies against the
// plugin's config slice, falling back to the upper-cased env var.
func checkRuntimeDeps(m ports.Manifest, pluginCfg map[string]string) error {
	for key, dep := range m.Runtime {
		if !dep.Required {
			continue
		}
		if pluginCfg[key] != "" {
			continue
		}
		envKey := strings.ToUpper(strings.ReplaceAll(m.Name+"_"+key, "-", "_"))
		if os.Getenv(envKey) != "" {
			continue
		}
		return domain.DependencyError(fmt.Sprintf(
			"plugin %q is missing required runtime dependency %q (%s)", m.Name, key, dep.Hint))
	}
	return nil
}

// Disable unloads a plugin. It fails if any other enabled plugin still
// depends on it, leaving all enablement state unchanged.
func (r *Registry) Disable(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled[name] {
		return nil
	}

	for other, p := range r.plugins {
		if other == name || !r.enabled[other] {
			continue
		}
		for _, dep := range p.Manifest().Dependencies {
			if dep == name {
				return domain.DependencyError(fmt.Sprintf(
					"cannot disable %q: enabled plugin %q depends on it", name, other))
			}
		}
	}

	if err := r.plugins[name].OnUnload(ctx); err != nil {
		return domain.WrapError(err, 500, fmt.Sprintf("plugin %q failed to unload", name))
	}

	delete(r.enabled, name)
	r.logger.Info("disabled plugin", zap.String("plugin", name))
	return nil
}

// IsEnabled reports whether a plugin is currently enabled.
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[name]
}

// EnabledProviders returns enabled plugins in registration order.
func (r *Registry) EnabledProviders() []ports.AIProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.AIProvider, 0, len(r.enabled))
	for _, name := range r.order {
		if r.enabled[name] {
			out = append(out, r.plugins[name])
		}
	}
	return out
}

// GetAIProvider resolves a model reference to an enabled provider.
//
// A "service/model" reference splits on the first slash only, so model
// names that themselves contain slashes survive as the model component.
// If the prefix names a registered plugin, the service must be enabled
// and the model must be in the service's configured list or self-reported
// by the plugin. Any other reference is treated as bare and matched
// against every enabled plugin in registration order, first match wins.
// This is deliberately permissive; strict disambiguation lives in the
// resolver package.
func (r *Registry) GetAIProvider(ctx context.Context, reference string) (ports.AIProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if idx := strings.Index(reference, "/"); idx > 0 {
		service, model := reference[:idx], reference[idx+1:]
		if p, registered := r.plugins[service]; registered {
			if !r.enabled[service] {
				return nil, domain.NotFoundError(fmt.Sprintf(
					"service %q is registered but not enabled", service))
			}
			if r.providerHasModel(ctx, service, p, model) {
				return p, nil
			}
			return nil, domain.NotFoundError(fmt.Sprintf(
				"model %q is not available on service %q", model, service))
		}
		// Prefix is not a registered service; the whole reference may be
		// a model name that contains a slash.
	}

	for _, name := range r.order {
		if !r.enabled[name] {
			continue
		}
		if r.providerHasModel(ctx, name, r.plugins[name], reference) {
			return r.plugins[name], nil
		}
	}

	return nil, domain.NotFoundError(fmt.Sprintf("no enabled provider serves model %q", reference))
}

func (r *Registry) providerHasModel(ctx context.Context, service string, p ports.ProviderPlugin, model string) bool {
	if svc, ok := r.cfg.Service(service); ok && svc.HasModel(model) {
		return true
	}
	if sr, ok := ports.AIProvider(p).(ports.ModelSelfReporter); ok && sr.SupportsModel(model) {
		return true
	}
	for _, m := range p.Models(ctx) {
		if m == model {
			return true
		}
	}
	return false
}
