package costing

import (
	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/pkg/schema"
)

// TokenEstimator approximates a token count from raw text. Used when a
// provider did not report measured usage.
type TokenEstimator func(text string) int

// EstimateTokens is the default estimator: roughly four characters per
// token, rounded up.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// Calculator computes dollar costs from token counts and a price table.
// Pure: no I/O beyond the injected estimator.
type Calculator struct {
	estimator TokenEstimator
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithEstimator overrides the default token estimator.
func WithEstimator(e TokenEstimator) Option {
	return func(c *Calculator) {
		c.estimator = e
	}
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{estimator: EstimateTokens}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromUsage prices measured token counts.
func (c *Calculator) FromUsage(provider, model string, price domain.ModelPrice, usage schema.Usage) schema.CostEstimate {
	return c.fromTokens(provider, model, price, usage.PromptTokens, usage.CompletionTokens)
}

// FromText prices a prompt/completion pair by estimated token counts.
func (c *Calculator) FromText(provider, model string, price domain.ModelPrice, prompt, completion string) schema.CostEstimate {
	return c.fromTokens(provider, model, price, c.estimator(prompt), c.estimator(completion))
}

// Estimate prices one response against a config snapshot. Returns nil
// when no price entry exists for the exact (provider, model) pair; the
// caller skips costing for that response rather than erroring.
func (c *Calculator) Estimate(cfg *domain.Config, prompt string, resp *schema.ExecutionResponse) *schema.CostEstimate {
	price, ok := cfg.PriceFor(resp.Provider, resp.Model)
	if !ok {
		return nil
	}

	var est schema.CostEstimate
	if resp.Usage != nil {
		est = c.FromUsage(resp.Provider, resp.Model, price, *resp.Usage)
	} else {
		est = c.FromText(resp.Provider, resp.Model, price, prompt, resp.Content)
	}
	return &est
}

// Aggregate sums a set of estimates into one total. Returns nil for an
// empty set.
func Aggregate(estimates []schema.CostEstimate) *schema.CostEstimate {
	if len(estimates) == 0 {
		return nil
	}

	total := schema.CostEstimate{Provider: "total", Model: "total"}
	for _, e := range estimates {
		total.InputTokens += e.InputTokens
		total.OutputTokens += e.OutputTokens
		total.InputCost += e.InputCost
		total.OutputCost += e.OutputCost
		total.TotalCost += e.TotalCost
	}
	return &total
}

func (c *Calculator) fromTokens(provider, model string, price domain.ModelPrice, inputTokens, outputTokens int) schema.CostEstimate {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}

	inputCost := float64(inputTokens) * price.InputPerMillion / 1e6
	outputCost := float64(outputTokens) * price.OutputPerMillion / 1e6

	return schema.CostEstimate{
		Provider:     provider,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    inputCost + outputCost,
	}
}
