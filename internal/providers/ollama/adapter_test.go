package ollama_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/providers/ollama"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOllamaExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"model": "llama3.1",
			"message": {"role": "assistant", "content": "Hi from llama"},
			"done": true,
			"prompt_eval_count": 12,
			"eval_count": 5
		}`))
	}))
	defer server.Close()

	p, err := ollama.New("ollama", domain.ServiceConfig{BaseURL: server.URL})
	require.NoError(t, err)
	require.NoError(t, p.OnLoad(context.Background(), ports.LoadContext{Logger: zap.NewNop()}))

	resp, err := p.Execute(context.Background(), &schema.ExecutionRequest{
		Model:  "llama3.1",
		Prompt: "Hi",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hi from llama", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 17, resp.Usage.TotalTokens)
}

func TestOllamaModelsFromDaemonTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"models": [{"name": "llama3.1:latest"}, {"name": "mistral:7b"}]}`))
	}))
	defer server.Close()

	p, err := ollama.New("ollama", domain.ServiceConfig{BaseURL: server.URL})
	require.NoError(t, err)

	models := p.Models(context.Background())
	assert.Contains(t, models, "llama3.1:latest")
	assert.Contains(t, models, "llama3.1")
	assert.Contains(t, models, "mistral")
}

func TestOllamaModelsFallsBackToConfiguredList(t *testing.T) {
	// Point at a closed server to simulate an unreachable daemon.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	p, err := ollama.New("ollama", domain.ServiceConfig{
		BaseURL: server.URL,
		Models:  []string{"llama3.1"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"llama3.1"}, p.Models(context.Background()))
}
