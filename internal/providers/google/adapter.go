package google

import (
	"context"
	"fmt"
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
	providers.Register("google", New)
}

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type Plugin struct {
	name   string
	cfg    domain.ServiceConfig
	client *http.Client
	logger *zap.Logger
	apiKey string
}

func New(name string, cfg domain.ServiceConfig) (ports.ProviderPlugin, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Plugin{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: 90 * time.Second},
	}, nil
}

func (p *Plugin) Name() string { return p.name }

func (p *Plugin) Manifest() ports.Manifest {
	return ports.Manifest{
		Name:        p.name,
		Version:     "1.0.0",
		Description: "Google Gemini generateContent backend",
		Runtime: map[string]ports.RuntimeDependency{
			"api_key": {
				Required: true,
				Hint:     "set " + providers.EnvKey(p.name, "api_key") + " or services." + p.name + ".api_key",
			},
		},
	}
}

func (p *Plugin) OnLoad(ctx context.Context, lc ports.LoadContext) error {
	p.logger = lc.Logger
	p.apiKey = providers.Credential(p.name, lc.PluginConfig, "api_key")
	if p.apiKey == "" {
		return domain.DependencyError(fmt.Sprintf("service %q has no API key", p.name))
	}
	if u := lc.PluginConfig["base_url"]; u != "" {
		p.cfg.BaseURL = u
	}
	return nil
}

func (p *Plugin) OnUnload(ctx context.Context) error { return nil }

func (p *Plugin) Models(ctx context.Context) []string {
	return p.cfg.Models
}

// --- Gemini wire schemas ---

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (p *Plugin) Execute(ctx context.Context, req *schema.ExecutionRequest) (*schema.ExecutionResponse, error) {
	gr := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
	}
	if req.SystemPrompt != "" {
		gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	if req.Temperature != 0 || req.MaxTokens != 0 {
		gr.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"),
		req.Model,
		p.apiKey,
	)

	var resp geminiResponse
	if err := httpclient.SendRequest(ctx, p.client, http.MethodPost, url, nil, gr, &resp); err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates from gemini for model %s", req.Model)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	out := &schema.ExecutionResponse{
		Model:    req.Model,
		Provider: p.name,
		Content:  sb.String(),
		Metadata: map[string]any{"finish_reason": resp.Candidates[0].FinishReason},
	}
	if resp.UsageMetadata != nil {
		out.Usage = &schema.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}
