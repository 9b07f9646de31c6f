package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/httpclient"
	"github.com/light-merlin-dark/aia/internal/providers"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"go.uber.org/zap"
)

func init() {
	providers.Register("ollama", New)
}

const defaultBaseURL = "http://localhost:11434"

// Plugin talks to a local Ollama daemon. No credential is required; the
// daemon either answers or it doesn't.
type Plugin struct {
	name   string
	cfg    domain.ServiceConfig
	client *http.Client
	logger *zap.Logger
}

func New(name string, cfg domain.ServiceConfig) (ports.ProviderPlugin, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Plugin{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: 300 * time.Second},
	}, nil
}

func (p *Plugin) Name() string { return p.name }

func (p *Plugin) Manifest() ports.Manifest {
	return ports.Manifest{
		Name:        p.name,
		Version:     "1.0.0",
		Description: "Local Ollama backend",
	}
}

func (p *Plugin) OnLoad(ctx context.Context, lc ports.LoadContext) error {
	p.logger = lc.Logger
	if u := lc.PluginConfig["base_url"]; u != "" {
		p.cfg.BaseURL = u
	}
	return nil
}

func (p *Plugin) OnUnload(ctx context.Context) error { return nil }

// Models asks the daemon for its installed tags, falling back to the
// configured list when the daemon is unreachable.
func (p *Plugin) Models(ctx context.Context) []string {
	var list struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/api/tags"
	if err := httpclient.SendRequest(ctx, p.client, http.MethodGet, url, nil, nil, &list); err != nil {
		if p.logger != nil {
			p.logger.Debug("ollama tag listing failed", zap.Error(err))
		}
		return p.cfg.Models
	}

	out := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, m.Name)
		// Tags answer "llama3.1:latest" while callers usually say "llama3.1".
		if base, _, found := strings.Cut(m.Name, ":"); found {
			out = append(out, base)
		}
	}
	return out
}

// --- Ollama wire schemas ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

func (p *Plugin) Execute(ctx context.Context, req *schema.ExecutionRequest) (*schema.ExecutionResponse, error) {
	body := chatRequest{
		Model:  req.Model,
		Stream: false,
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.Temperature != 0 || req.MaxTokens != 0 {
		body.Options = &chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		}
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/api/chat"

	var resp chatResponse
	if err := httpclient.SendRequest(ctx, p.client, http.MethodPost, url, nil, body, &resp); err != nil {
		return nil, err
	}

	return &schema.ExecutionResponse{
		Model:    req.Model,
		Provider: p.name,
		Content:  resp.Message.Content,
		Usage: &schema.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}
