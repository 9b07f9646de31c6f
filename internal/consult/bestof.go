package consult

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"go.uber.org/zap"
)

const (
	// candidatePreviewLimit truncates each answer embedded in the
	// evaluation prompt.
	candidatePreviewLimit = 2000

	evaluationTimeout = 30 * time.Second
)

// Evaluator ranks a set of successful responses and returns the 0-based
// index of the best one. Implementations that produce structured output
// can replace the default free-text judge without touching the engine.
type Evaluator interface {
	PickBest(ctx context.Context, judge ports.AIProvider, query string, candidates []schema.ExecutionResponse) (int, error)
}

// providerEvaluator asks one of the consulted providers to act as judge
// and parses the first integer out of its free-text reply.
type providerEvaluator struct {
	logger *zap.Logger
}

var _ Evaluator = (*providerEvaluator)(nil)

func (ev *providerEvaluator) PickBest(ctx context.Context, judge ports.AIProvider, query string, candidates []schema.ExecutionResponse) (int, error) {
	if judge == nil {
		return 0, errors.New("no judge provider available")
	}

	ctx, cancel := context.WithTimeout(ctx, evaluationTimeout)
	defer cancel()

	resp, err := judge.Execute(ctx, &schema.ExecutionRequest{
		Model:       candidates[0].Model,
		Prompt:      evaluationPrompt(query, candidates),
		Temperature: 0,
		MaxTokens:   10,
		Timeout:     evaluationTimeout,
	})
	if err != nil {
		return 0, fmt.Errorf("evaluation request failed: %w", err)
	}
	if resp.IsError {
		return 0, fmt.Errorf("evaluation request failed: %s", resp.ErrorMessage)
	}

	n, err := firstInteger(resp.Content)
	if err != nil {
		return 0, fmt.Errorf("unparseable evaluator reply %q: %w", resp.Content, err)
	}

	// The judge speaks in 1-based answer numbers.
	return n - 1, nil
}

func evaluationPrompt(query string, candidates []schema.ExecutionResponse) string {
	var sb strings.Builder
	sb.WriteString("You are judging answers to the following question:\n\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	for i, c := range candidates {
		content := c.Content
		if len(content) > candidatePreviewLimit {
			content = content[:candidatePreviewLimit] + "..."
		}
		sb.WriteString(fmt.Sprintf("Answer %d (from %s):\n%s\n\n", i+1, c.Model, content))
	}

	sb.WriteString(fmt.Sprintf(
		"Reply with only the number (1-%d) of the best answer. No explanation.",
		len(candidates)))
	return sb.String()
}

// firstInteger scans for the first run of digits in the reply. Judges
// rarely answer with a bare number even when told to.
func firstInteger(text string) (int, error) {
	start := -1
	for i, r := range text {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return strconv.Atoi(text[start:i])
		}
	}
	if start >= 0 {
		return strconv.Atoi(text[start:])
	}
	return 0, errors.New("no integer found")
}
