package costing_test

import (
	"testing"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/costing"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromUsagePerMillionPricing(t *testing.T) {
	calc := costing.NewCalculator()
	price := domain.ModelPrice{InputPerMillion: 10, OutputPerMillion: 30}

	est := calc.FromUsage("openai", "gpt-4o", price, schema.Usage{
		PromptTokens:     150,
		CompletionTokens: 75,
	})

	assert.InDelta(t, 0.0015, est.InputCost, 1e-9)
	assert.InDelta(t, 0.00225, est.OutputCost, 1e-9)
	assert.InDelta(t, 0.00375, est.TotalCost, 1e-9)
	assert.Equal(t, 150, est.InputTokens)
	assert.Equal(t, 75, est.OutputTokens)
}

func TestFromUsageClampsNegativeCounts(t *testing.T) {
	calc := costing.NewCalculator()
	price := domain.ModelPrice{InputPerMillion: 10, OutputPerMillion: 30}

	est := calc.FromUsage("openai", "gpt-4o", price, schema.Usage{
		PromptTokens:     -5,
		CompletionTokens: -1,
	})

	assert.Zero(t, est.TotalCost)
	assert.Zero(t, est.InputTokens)
	assert.Zero(t, est.OutputTokens)
}

func TestEstimateTokensRoundsUp(t *testing.T) {
	assert.Equal(t, 0, costing.EstimateTokens(""))
	assert.Equal(t, 1, costing.EstimateTokens("a"))
	assert.Equal(t, 1, costing.EstimateTokens("abcd"))
	assert.Equal(t, 2, costing.EstimateTokens("abcde"))
}

func TestFromTextUsesEstimator(t *testing.T) {
	// Fixed estimator makes the arithmetic exact.
	calc := costing.NewCalculator(costing.WithEstimator(func(text string) int {
		return len(text)
	}))
	price := domain.ModelPrice{InputPerMillion: 1, OutputPerMillion: 2}

	est := calc.FromText("openai", "gpt-4o", price, "12345", "123")
	assert.Equal(t, 5, est.InputTokens)
	assert.Equal(t, 3, est.OutputTokens)
	assert.InDelta(t, 5e-6+6e-6, est.TotalCost, 1e-12)
}

func TestEstimateSkipsUnpricedModels(t *testing.T) {
	calc := costing.NewCalculator()
	cfg := &domain.Config{
		Services: map[string]domain.ServiceConfig{
			"openai": {
				Models: []string{"gpt-4o"},
				Prices: map[string]domain.ModelPrice{
					"gpt-4o": {InputPerMillion: 10, OutputPerMillion: 30},
				},
			},
		},
	}

	priced := calc.Estimate(cfg, "hello", &schema.ExecutionResponse{
		Provider: "openai",
		Model:    "gpt-4o",
		Usage:    &schema.Usage{PromptTokens: 150, CompletionTokens: 75},
	})
	require.NotNil(t, priced)
	assert.InDelta(t, 0.00375, priced.TotalCost, 1e-9)

	unpriced := calc.Estimate(cfg, "hello", &schema.ExecutionResponse{
		Provider: "openai",
		Model:    "gpt-4-turbo",
	})
	assert.Nil(t, unpriced)
}

func TestEstimateFallsBackToTextEstimation(t *testing.T) {
	calc := costing.NewCalculator()
	cfg := &domain.Config{
		Services: map[string]domain.ServiceConfig{
			"openai": {
				Prices: map[string]domain.ModelPrice{
					"gpt-4o": {InputPerMillion: 10, OutputPerMillion: 30},
				},
			},
		},
	}

	// No measured usage on the response: token counts come from text.
	est := calc.Estimate(cfg, "abcdefgh", &schema.ExecutionResponse{
		Provider: "openai",
		Model:    "gpt-4o",
		Content:  "abcd",
	})
	require.NotNil(t, est)
	assert.Equal(t, 2, est.InputTokens)
	assert.Equal(t, 1, est.OutputTokens)
}

func TestAggregate(t *testing.T) {
	assert.Nil(t, costing.Aggregate(nil))

	total := costing.Aggregate([]schema.CostEstimate{
		{InputTokens: 10, OutputTokens: 5, InputCost: 0.001, OutputCost: 0.002, TotalCost: 0.003},
		{InputTokens: 20, OutputTokens: 10, InputCost: 0.002, OutputCost: 0.004, TotalCost: 0.006},
	})
	require.NotNil(t, total)
	assert.Equal(t, 30, total.InputTokens)
	assert.Equal(t, 15, total.OutputTokens)
	assert.InDelta(t, 0.009, total.TotalCost, 1e-9)
}
