package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/light-merlin-dark/aia/internal/consult"
	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/resolver"
	"github.com/light-merlin-dark/aia/internal/server/middleware"
	"github.com/light-merlin-dark/aia/internal/server/validator"
	v1 "github.com/light-merlin-dark/aia/internal/server/v1"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoProvider struct {
	name string
}

func (e *echoProvider) Name() string                        { return e.name }
func (e *echoProvider) Models(ctx context.Context) []string { return nil }

func (e *echoProvider) Execute(ctx context.Context, req *schema.ExecutionRequest) (*schema.ExecutionResponse, error) {
	return &schema.ExecutionResponse{Model: req.Model, Provider: e.name, Content: "echo"}, nil
}

type singleRegistry struct {
	provider ports.AIProvider
}

func (r *singleRegistry) GetAIProvider(ctx context.Context, reference string) (ports.AIProvider, error) {
	return r.provider, nil
}

func (r *singleRegistry) EnabledProviders() []ports.AIProvider {
	return []ports.AIProvider{r.provider}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.InitValidator()

	cfg := &domain.Config{
		DefaultService: "openai",
		Services: map[string]domain.ServiceConfig{
			"openai": {Models: []string{"gpt-4o"}},
		},
	}

	reg := &singleRegistry{provider: &echoProvider{name: "openai"}}
	engine := consult.NewEngine(reg, cfg, zap.NewNop())
	res := resolver.New(cfg, zap.NewNop())

	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop()))
	router.POST("/v1/consult", v1.NewConsultHandler(engine, res).Consult)
	return router
}

func TestConsultHandlerRejectsMissingPrompt(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/consult", strings.NewReader(`{"models": ["openai/gpt-4o"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "prompt")
}

func TestConsultHandlerRejectsBlankModelReference(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/consult",
		strings.NewReader(`{"prompt": "hi", "models": ["gpt-4o", "   "]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "models[1]")
	assert.Contains(t, rec.Body.String(), "service/model")
}

func TestConsultHandlerRejectsDanglingSlashReference(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/consult",
		strings.NewReader(`{"prompt": "hi", "models": ["openai/"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "models[0]")
}

func TestConsultHandlerReturnsResult(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/consult",
		strings.NewReader(`{"prompt": "hi", "models": ["openai/gpt-4o"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result schema.ConsultResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Responses, 1)
	assert.Equal(t, "echo", result.Responses[0].Content)
	assert.Empty(t, result.Failed)
}

func TestConsultHandlerFallsBackToDefaultModels(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/consult", strings.NewReader(`{"prompt": "hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result schema.ConsultResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Responses, 1)
	assert.Equal(t, "gpt-4o", result.Responses[0].Model)
}
