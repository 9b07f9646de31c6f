package schema

// CostEstimate attributes a dollar cost to one response. Cost fields are
// zero unless a per-million price exists for the exact (provider, model)
// pair; token counts are measured when the provider reported usage and
// estimated from text length otherwise.
type CostEstimate struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
}
