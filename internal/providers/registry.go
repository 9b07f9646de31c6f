package providers

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/core/ports"
)

// Factory creates a provider plugin for one configured service. The name
// is the service's configured name; the same adapter type can back
// several differently-named services.
type Factory func(name string, cfg domain.ServiceConfig) (ports.ProviderPlugin, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a provider factory available to the system.
// 'type' is the key (e.g., "openai", "ollama").
func Register(providerType string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[providerType]; exists {
		panic(fmt.Sprintf("provider factory %s already registered", providerType))
	}
	factories[providerType] = f
}

// Get retrieves a factory to create a provider of a specific type.
func Get(providerType string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[providerType]
	if !ok {
		return nil, fmt.Errorf("provider factory not found for type: %s", providerType)
	}
	return f, nil
}

// Build instantiates the plugin for a named service. The service's Type
// field selects the adapter; it defaults to the service name itself.
func Build(name string, cfg domain.ServiceConfig) (ports.ProviderPlugin, error) {
	providerType := cfg.Type
	if providerType == "" {
		providerType = name
	}
	f, err := Get(providerType)
	if err != nil {
		return nil, fmt.Errorf("factory lookup failed for service %s: %w", name, err)
	}
	return f(name, cfg)
}

// Credential resolves a plugin's config key with the conventional env
// fallback: "my-svc" + "api_key" falls back to MY_SVC_API_KEY.
func Credential(pluginName string, pluginCfg map[string]string, key string) string {
	if v := pluginCfg[key]; v != "" {
		return v
	}
	return os.Getenv(EnvKey(pluginName, key))
}

// EnvKey names the environment variable backing a plugin config key.
func EnvKey(pluginName, key string) string {
	return strings.ToUpper(strings.ReplaceAll(pluginName+"_"+key, "-", "_"))
}
