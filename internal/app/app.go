package app

import (
	"context"
	"sort"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/plugin"
	"github.com/light-merlin-dark/aia/internal/providers"
	"go.uber.org/zap"

	// Import providers to trigger init() registration
	_ "github.com/light-merlin-dark/aia/internal/providers/anthropic"
	_ "github.com/light-merlin-dark/aia/internal/providers/google"
	_ "github.com/light-merlin-dark/aia/internal/providers/ollama"
	_ "github.com/light-merlin-dark/aia/internal/providers/openai"
	_ "github.com/light-merlin-dark/aia/internal/providers/openrouter"
)

// BuildRegistry constructs a plugin per configured service, registers
// it, and enables it. A service that cannot be built or enabled (for
// example, a missing credential) is skipped with a warning; it must not
// take down the services that are healthy.
func BuildRegistry(ctx context.Context, cfg *domain.Config, logger *zap.Logger, attachments ports.AttachmentResolver) (*plugin.Registry, error) {
	registry := plugin.NewRegistry(cfg, logger, plugin.WithAttachmentResolver(attachments))

	names := make([]string, 0, len(cfg.Services))
	for name := range cfg.Services {
		if name == domain.DefaultServiceKey {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p, err := providers.Build(name, cfg.Services[name])
		if err != nil {
			logger.Warn("skipping service with no matching adapter",
				zap.String("service", name),
				zap.Error(err))
			continue
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
		if err := registry.Enable(ctx, name); err != nil {
			logger.Warn("service registered but not enabled",
				zap.String("service", name),
				zap.Error(err))
		}
	}

	return registry, nil
}
