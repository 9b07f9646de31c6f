package consult

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/costing"
	"github.com/light-merlin-dark/aia/internal/httpclient"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries is the number of extra attempts after the first.
	DefaultMaxRetries = 2

	// DefaultTimeout bounds a single dispatch attempt.
	DefaultTimeout = 60 * time.Second

	// rateLimitDelay is added on top of backoff after a rate-limited attempt.
	rateLimitDelay = 2 * time.Second
)

// Request is one consultation: a prompt fanned out to a list of model
// references.
type Request struct {
	Prompt string
	Files  []string
	Models []string

	// BestOf asks a secondary pass to pick the best answer.
	BestOf bool

	// MaxRetries overrides the configured retry budget when non-nil.
	MaxRetries *int

	// Timeout overrides the per-attempt timeout when non-zero.
	Timeout time.Duration
}

// Engine executes consultations end-to-end: registry lookup, concurrent
// dispatch with retry, optional best-of selection, cost attribution.
type Engine struct {
	registry    ports.PluginRegistry
	cfg         *domain.Config
	costs       *costing.Calculator
	attachments ports.AttachmentResolver
	evaluator   Evaluator
	logger      *zap.Logger
	tracer      trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithAttachmentResolver sets the file-attachment collaborator.
func WithAttachmentResolver(r ports.AttachmentResolver) Option {
	return func(e *Engine) {
		e.attachments = r
	}
}

// WithEvaluator replaces the default best-of evaluator.
func WithEvaluator(ev Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// WithCalculator replaces the default cost calculator.
func WithCalculator(c *costing.Calculator) Option {
	return func(e *Engine) {
		e.costs = c
	}
}

func NewEngine(registry ports.PluginRegistry, cfg *domain.Config, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		cfg:      cfg,
		costs:    costing.NewCalculator(),
		logger:   logger,
		tracer:   otel.Tracer("github.com/light-merlin-dark/aia/internal/consult"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.evaluator == nil {
		e.evaluator = &providerEvaluator{logger: logger}
	}
	return e
}

// taskResult pairs a response slot with the provider that produced it,
// so the best-of pass can reuse the handle.
type taskResult struct {
	resp     schema.ExecutionResponse
	provider ports.AIProvider
}

// Consult runs one consultation. Every model task is dispatched
// concurrently; each task's success or failure is isolated, and the
// response list preserves the caller's input order. Partial success is
// the normal case, not an error.
func (e *Engine) Consult(ctx context.Context, req Request) *schema.ConsultResult {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "consult",
		trace.WithAttributes(attribute.Int("consult.models", len(req.Models))))
	defer span.End()

	result := &schema.ConsultResult{
		ID:        uuid.New().String(),
		Responses: []schema.ExecutionResponse{},
		Failed:    []string{},
	}

	// An empty model list is an empty result, not an error.
	if len(req.Models) == 0 {
		result.DurationMS = time.Since(start).Milliseconds()
		return result
	}

	prompt, err := e.foldAttachments(ctx, req)
	if err != nil {
		// Setup failed before any dispatch: the whole run aborts and
		// every requested model is reported failed.
		e.logger.Error("consultation aborted before dispatch", zap.Error(err))
		result.Error = err.Error()
		result.Failed = append(result.Failed, req.Models...)
		result.DurationMS = time.Since(start).Milliseconds()
		return result
	}

	maxRetries := e.maxRetries(req)
	timeout := e.timeout(req)

	results := make([]taskResult, len(req.Models))
	var wg sync.WaitGroup
	for i, modelRef := range req.Models {
		wg.Add(1)
		go func(idx int, ref string) {
			defer wg.Done()
			results[idx] = e.dispatch(ctx, ref, prompt, maxRetries, timeout)
		}(i, modelRef)
	}
	wg.Wait()

	for i, tr := range results {
		result.Responses = append(result.Responses, tr.resp)
		if tr.resp.IsError {
			result.Failed = append(result.Failed, req.Models[i])
		}
	}

	if req.BestOf {
		result.BestIndex = e.pickBest(ctx, req.Prompt, results)
	}

	e.attachCosts(prompt, result)

	result.DurationMS = time.Since(start).Milliseconds()
	return result
}

// foldAttachments resolves the request's file list and appends readable
// contents to the prompt. Per-file errors are skipped with a warning;
// only a failing resolver call aborts the run.
func (e *Engine) foldAttachments(ctx context.Context, req Request) (string, error) {
	if len(req.Files) == 0 || e.attachments == nil {
		return req.Prompt, nil
	}

	attachments, err := e.attachments.Resolve(ctx, req.Files)
	if err != nil {
		return "", fmt.Errorf("failed to resolve attachments: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(req.Prompt)
	for _, a := range attachments {
		if a.Err != nil {
			e.logger.Warn("skipping unreadable attachment",
				zap.String("path", a.Path),
				zap.Error(a.Err))
			continue
		}
		sb.WriteString(fmt.Sprintf("\n\n--- %s ---\n%s", a.Path, a.Content))
	}
	return sb.String(), nil
}

// dispatch runs the full retry loop for one model task. The returned
// response is terminal: either a success or the last failure after the
// retry budget is exhausted.
func (e *Engine) dispatch(ctx context.Context, modelRef, prompt string, maxRetries int, timeout time.Duration) taskResult {
	ctx, span := e.tracer.Start(ctx, "consult.dispatch",
		trace.WithAttributes(attribute.String("consult.model", modelRef)))
	defer span.End()

	provider, err := e.registry.GetAIProvider(ctx, modelRef)
	if err != nil {
		return taskResult{resp: schema.ErrorResponse(modelRef, "", buildModelHelp(e.cfg, modelRef, err))}
	}

	model := upstreamModel(modelRef, provider.Name())

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 8 * time.Second
	bo.Reset()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, attemptErr := e.attempt(ctx, provider, model, prompt, timeout)
		if attemptErr == nil {
			resp.Model = model
			resp.Provider = provider.Name()
			return taskResult{resp: *resp, provider: provider}
		}
		lastErr = attemptErr

		// Retries are silent to the caller; only exhaustion surfaces.
		e.logger.Debug("dispatch attempt failed",
			zap.String("model", modelRef),
			zap.Int("attempt", attempt+1),
			zap.Error(attemptErr),
		)

		if attempt == maxRetries {
			break
		}

		delay := bo.NextBackOff()
		if isRateLimited(attemptErr) {
			delay += rateLimitDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = maxRetries
		}
		if errors.Is(lastErr, context.Canceled) {
			break
		}
	}

	msg := fmt.Sprintf("%s failed after %d attempts: %v", modelRef, maxRetries+1, lastErr)
	return taskResult{resp: schema.ErrorResponse(model, provider.Name(), msg), provider: provider}
}

// attempt runs one dispatch with its own timeout. Expiry cancels only
// this attempt's in-flight call and is reported as an abort-class error,
// retryable like any other transient failure.
func (e *Engine) attempt(ctx context.Context, provider ports.AIProvider, model, prompt string, timeout time.Duration) (*schema.ExecutionResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := provider.Execute(attemptCtx, &schema.ExecutionRequest{
		Model:   model,
		Prompt:  prompt,
		Timeout: timeout,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("attempt aborted: timed out after %s", timeout)
		}
		return nil, err
	}
	if resp.IsError {
		return nil, errors.New(resp.ErrorMessage)
	}
	return resp, nil
}

// upstreamModel strips a service prefix from a qualified reference only
// when the prefix exactly equals the resolved provider's name. This
// keeps multi-segment model names intact: "openrouter/google/gemini-2.5-pro"
// sends "google/gemini-2.5-pro" to the openrouter provider.
func upstreamModel(reference, providerName string) string {
	if idx := strings.Index(reference, "/"); idx > 0 {
		if reference[:idx] == providerName {
			return reference[idx+1:]
		}
	}
	return reference
}

func (e *Engine) maxRetries(req Request) int {
	if req.MaxRetries != nil {
		return *req.MaxRetries
	}
	if e.cfg != nil && e.cfg.MaxRetries > 0 {
		return e.cfg.MaxRetries
	}
	return DefaultMaxRetries
}

func (e *Engine) timeout(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	if e.cfg != nil && e.cfg.TimeoutSeconds > 0 {
		return time.Duration(e.cfg.TimeoutSeconds) * time.Second
	}
	return DefaultTimeout
}

// pickBest runs the best-of pass. Evaluation errors are swallowed and
// replaced by the first successful response; they never fail the run.
func (e *Engine) pickBest(ctx context.Context, query string, results []taskResult) *int {
	var successes []schema.ExecutionResponse
	var slots []int
	var judge ports.AIProvider

	for i, tr := range results {
		if tr.resp.IsError {
			continue
		}
		if judge == nil {
			judge = tr.provider
		}
		successes = append(successes, tr.resp)
		slots = append(slots, i)
	}

	if len(successes) == 0 {
		return nil
	}
	if len(successes) == 1 {
		return &slots[0]
	}

	idx, err := e.evaluator.PickBest(ctx, judge, query, successes)
	if err != nil || idx < 0 || idx >= len(successes) {
		e.logger.Warn("best-of evaluation fell back to first success",
			zap.Int("index", idx),
			zap.Error(err))
		return &slots[0]
	}
	return &slots[idx]
}

// attachCosts prices every successful response that has a configured
// price entry; responses without one are skipped, never errored.
func (e *Engine) attachCosts(prompt string, result *schema.ConsultResult) {
	if e.cfg == nil {
		return
	}
	for i := range result.Responses {
		resp := &result.Responses[i]
		if resp.IsError {
			continue
		}
		if est := e.costs.Estimate(e.cfg, prompt, resp); est != nil {
			result.Costs = append(result.Costs, *est)
		}
	}
	result.TotalCost = costing.Aggregate(result.Costs)
}

// isRateLimited detects a quota rejection either structurally or from
// the error text.
func isRateLimited(err error) bool {
	var upstream *httpclient.UpstreamError
	if errors.As(err, &upstream) && upstream.IsRateLimited() {
		return true
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "rate limit") ||
		strings.Contains(text, "too many requests") ||
		strings.Contains(text, "429")
}
