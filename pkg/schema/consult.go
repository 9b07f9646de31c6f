package schema

import "time"

// ExecutionRequest is a single prompt sent to one provider model.
// Constructed fresh per attempt; never mutated after dispatch.
type ExecutionRequest struct {
	Model        string        `json:"model"`
	Prompt       string        `json:"prompt"`
	SystemPrompt string        `json:"system_prompt,omitempty"`
	Temperature  float64       `json:"temperature,omitempty"`
	MaxTokens    int           `json:"max_tokens,omitempty"`
	Timeout      time.Duration `json:"-"`
}

// Usage carries token counts as measured by the upstream provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExecutionResponse is the outcome of one model task. It is a tagged
// success/failure variant: IsError and ErrorMessage are set instead of
// Content, never alongside a successful answer.
type ExecutionResponse struct {
	Model        string         `json:"model"`
	Provider     string         `json:"provider"`
	Content      string         `json:"content,omitempty"`
	Usage        *Usage         `json:"usage,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	IsError      bool           `json:"is_error,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// ErrorResponse constructs a failed ExecutionResponse for a model.
func ErrorResponse(model, provider, msg string) ExecutionResponse {
	return ExecutionResponse{
		Model:        model,
		Provider:     provider,
		IsError:      true,
		ErrorMessage: msg,
	}
}

// ConsultResult is the aggregate outcome of one orchestration run.
// Responses is aligned to the caller's input model order and contains
// both successes and recorded failures.
type ConsultResult struct {
	ID         string              `json:"id"`
	Responses  []ExecutionResponse `json:"responses"`
	Failed     []string            `json:"failed"`
	DurationMS int64               `json:"duration_ms"`
	BestIndex  *int                `json:"best_index,omitempty"`
	Costs      []CostEstimate      `json:"costs,omitempty"`
	TotalCost  *CostEstimate       `json:"total_cost,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// ResolvedModel is the output of model-reference disambiguation.
type ResolvedModel struct {
	Service  string `json:"service"`
	Model    string `json:"model"`
	FullName string `json:"full_name"` // "service/model"
}
