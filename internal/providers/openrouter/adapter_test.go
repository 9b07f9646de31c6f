package openrouter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/providers/openrouter"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenRouterSupportsVendorQualifiedModels(t *testing.T) {
	p, err := openrouter.New("openrouter", domain.ServiceConfig{})
	require.NoError(t, err)

	sr, ok := p.(ports.ModelSelfReporter)
	require.True(t, ok)

	assert.True(t, sr.SupportsModel("google/gemini-2.5-pro"))
	assert.True(t, sr.SupportsModel("meta-llama/llama-3.1-70b-instruct"))
	assert.False(t, sr.SupportsModel("gpt-4o"))
}

func TestOpenRouterExecutePassesModelThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// The vendor-qualified name goes upstream intact.
		assert.Equal(t, "google/gemini-2.5-pro", body["model"])

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"model": "google/gemini-2.5-pro",
			"choices": [{"message": {"role": "assistant", "content": "routed"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
		}`))
	}))
	defer server.Close()

	p, err := openrouter.New("openrouter", domain.ServiceConfig{BaseURL: server.URL})
	require.NoError(t, err)
	require.NoError(t, p.OnLoad(context.Background(), ports.LoadContext{
		Logger:       zap.NewNop(),
		PluginConfig: map[string]string{"api_key": "test-key"},
	}))

	resp, err := p.Execute(context.Background(), &schema.ExecutionRequest{
		Model:  "google/gemini-2.5-pro",
		Prompt: "Hi",
	})

	require.NoError(t, err)
	assert.Equal(t, "routed", resp.Content)
	assert.Equal(t, "openrouter", resp.Provider)
}
