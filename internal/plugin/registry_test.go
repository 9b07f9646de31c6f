package plugin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/plugin"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePlugin struct {
	manifest ports.Manifest
	models   []string
	loadErr  error

	loaded   bool
	unloaded bool
	onLoad   func()
}

func newFakePlugin(name string, deps ...string) *fakePlugin {
	return &fakePlugin{
		manifest: ports.Manifest{
			Name:         name,
			Version:      "1.0.0",
			Dependencies: deps,
		},
	}
}

func (f *fakePlugin) Name() string                          { return f.manifest.Name }
func (f *fakePlugin) Manifest() ports.Manifest              { return f.manifest }
func (f *fakePlugin) Models(ctx context.Context) []string   { return f.models }
func (f *fakePlugin) OnUnload(ctx context.Context) error    { f.unloaded = true; return nil }

func (f *fakePlugin) OnLoad(ctx context.Context, lc ports.LoadContext) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = true
	if f.onLoad != nil {
		f.onLoad()
	}
	return nil
}

func (f *fakePlugin) Execute(ctx context.Context, req *schema.ExecutionRequest) (*schema.ExecutionResponse, error) {
	return &schema.ExecutionResponse{Model: req.Model, Provider: f.Name(), Content: "ok"}, nil
}

// openEndedPlugin self-reports support for any slash-qualified model.
type openEndedPlugin struct {
	fakePlugin
}

func (o *openEndedPlugin) SupportsModel(model string) bool {
	for _, r := range model {
		if r == '/' {
			return true
		}
	}
	return false
}

func testConfig() *domain.Config {
	return &domain.Config{
		Services: map[string]domain.ServiceConfig{
			"openai":    {APIKey: "sk-test", Models: []string{"gpt-4o", "gpt-4-turbo"}},
			"anthropic": {APIKey: "sk-test", Models: []string{"claude-3-opus"}},
		},
	}
}

func newTestRegistry(t *testing.T) *plugin.Registry {
	t.Helper()
	return plugin.NewRegistry(testConfig(), zap.NewNop())
}

func TestRegisterRequiresNameAndVersion(t *testing.T) {
	reg := newTestRegistry(t)

	err := reg.Register(&fakePlugin{manifest: ports.Manifest{Version: "1.0.0"}})
	assert.Error(t, err)

	err = reg.Register(&fakePlugin{manifest: ports.Manifest{Name: "openai"}})
	assert.Error(t, err)
}

func TestRegisterRejectsUnknownDependency(t *testing.T) {
	reg := newTestRegistry(t)

	err := reg.Register(newFakePlugin("openai", "missing"))
	require.Error(t, err)

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 409, domainErr.Code)
}

func TestEnableLoadsDependenciesFirst(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	var order []string
	base := newFakePlugin("openai")
	base.onLoad = func() { order = append(order, "openai") }
	dependent := newFakePlugin("anthropic", "openai")
	dependent.onLoad = func() { order = append(order, "anthropic") }

	require.NoError(t, reg.Register(base))
	require.NoError(t, reg.Register(dependent))

	require.NoError(t, reg.Enable(ctx, "anthropic"))

	assert.Equal(t, []string{"openai", "anthropic"}, order)
	assert.True(t, reg.IsEnabled("openai"))
	assert.True(t, reg.IsEnabled("anthropic"))
}

func TestEnableIsIdempotent(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	loads := 0
	p := newFakePlugin("openai")
	p.onLoad = func() { loads++ }

	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Enable(ctx, "openai"))
	require.NoError(t, reg.Enable(ctx, "openai"))

	assert.Equal(t, 1, loads)
}

func TestEnableCycleFailsFast(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	a := newFakePlugin("openai")
	b := newFakePlugin("anthropic", "openai")
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))

	// Close the cycle after registration.
	a.manifest.Dependencies = []string{"anthropic"}

	err := reg.Enable(ctx, "openai")
	require.Error(t, err)

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 409, domainErr.Code)

	assert.False(t, reg.IsEnabled("openai"))
	assert.False(t, reg.IsEnabled("anthropic"))
}

func TestEnableFailsWhenLoadFails(t *testing.T) {
	reg := newTestRegistry(t)

	p := newFakePlugin("openai")
	p.loadErr = errors.New("boom")
	require.NoError(t, reg.Register(p))

	err := reg.Enable(context.Background(), "openai")
	require.Error(t, err)
	assert.False(t, reg.IsEnabled("openai"))
}

func TestEnableUnknownPluginIsNotAnError(t *testing.T) {
	reg := newTestRegistry(t)
	assert.NoError(t, reg.Enable(context.Background(), "nope"))
	assert.False(t, reg.IsEnabled("nope"))
}

func TestEnableFailsOnMissingRuntimeDependency(t *testing.T) {
	reg := plugin.NewRegistry(&domain.Config{}, zap.NewNop())

	p := newFakePlugin("bare-svc")
	p.manifest.Runtime = map[string]ports.RuntimeDependency{
		"api_key": {Required: true, Hint: "set BARE_SVC_API_KEY"},
	}
	require.NoError(t, reg.Register(p))

	err := reg.Enable(context.Background(), "bare-svc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.False(t, reg.IsEnabled("bare-svc"))
	assert.False(t, p.loaded)
}

func TestEnableRuntimeDependencyFromEnv(t *testing.T) {
	t.Setenv("BARE_SVC_API_KEY", "sk-from-env")

	reg := plugin.NewRegistry(&domain.Config{}, zap.NewNop())

	p := newFakePlugin("bare-svc")
	p.manifest.Runtime = map[string]ports.RuntimeDependency{
		"api_key": {Required: true, Hint: "set BARE_SVC_API_KEY"},
	}
	require.NoError(t, reg.Register(p))

	assert.NoError(t, reg.Enable(context.Background(), "bare-svc"))
	assert.True(t, reg.IsEnabled("bare-svc"))
}

func TestDisableRefusedWhileDependentsEnabled(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	base := newFakePlugin("openai")
	dependent := newFakePlugin("anthropic", "openai")
	require.NoError(t, reg.Register(base))
	require.NoError(t, reg.Register(dependent))
	require.NoError(t, reg.Enable(ctx, "anthropic"))

	err := reg.Disable(ctx, "openai")
	require.Error(t, err)

	// State is unchanged on refusal.
	assert.True(t, reg.IsEnabled("openai"))
	assert.True(t, reg.IsEnabled("anthropic"))
	assert.False(t, base.unloaded)

	// Disabling in dependency order works.
	require.NoError(t, reg.Disable(ctx, "anthropic"))
	require.NoError(t, reg.Disable(ctx, "openai"))
	assert.True(t, base.unloaded)
	assert.True(t, dependent.unloaded)
}

func TestGetAIProviderQualifiedReference(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	p := newFakePlugin("openai")
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Enable(ctx, "openai"))

	got, err := reg.GetAIProvider(ctx, "openai/gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openai", got.Name())

	_, err = reg.GetAIProvider(ctx, "openai/no-such-model")
	assert.Error(t, err)
}

func TestGetAIProviderRequiresEnabledService(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Register(newFakePlugin("openai")))

	_, err := reg.GetAIProvider(context.Background(), "openai/gpt-4o")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enabled")
}

func TestGetAIProviderBareScanInRegistrationOrder(t *testing.T) {
	cfg := &domain.Config{
		Services: map[string]domain.ServiceConfig{
			"first":  {APIKey: "k", Models: []string{"shared-model"}},
			"second": {APIKey: "k", Models: []string{"shared-model"}},
		},
	}
	reg := plugin.NewRegistry(cfg, zap.NewNop())
	ctx := context.Background()

	// Register "second" before "first": registration order wins, not
	// lexical order.
	require.NoError(t, reg.Register(newFakePlugin("second")))
	require.NoError(t, reg.Register(newFakePlugin("first")))
	require.NoError(t, reg.Enable(ctx, "second"))
	require.NoError(t, reg.Enable(ctx, "first"))

	got, err := reg.GetAIProvider(ctx, "shared-model")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name())
}

func TestGetAIProviderMultiSegmentModelName(t *testing.T) {
	cfg := &domain.Config{
		Services: map[string]domain.ServiceConfig{
			"openrouter": {APIKey: "k"},
		},
	}
	reg := plugin.NewRegistry(cfg, zap.NewNop())
	ctx := context.Background()

	p := &openEndedPlugin{}
	p.manifest = ports.Manifest{Name: "openrouter", Version: "1.0.0"}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Enable(ctx, "openrouter"))

	// Only the first slash separates service from model.
	got, err := reg.GetAIProvider(ctx, "openrouter/google/gemini-2.5-pro")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", got.Name())

	// An unregistered prefix falls through to a bare scan, where the
	// aggregator self-reports the slash-qualified name.
	got, err = reg.GetAIProvider(ctx, "google/gemini-2.5-pro")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", got.Name())
}

func TestEnabledProvidersPreservesRegistrationOrder(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Register(newFakePlugin("openai")))
	require.NoError(t, reg.Register(newFakePlugin("anthropic")))
	require.NoError(t, reg.Enable(ctx, "openai"))
	require.NoError(t, reg.Enable(ctx, "anthropic"))

	providers := reg.EnabledProviders()
	require.Len(t, providers, 2)
	assert.Equal(t, "openai", providers[0].Name())
	assert.Equal(t, "anthropic", providers[1].Name())
}
