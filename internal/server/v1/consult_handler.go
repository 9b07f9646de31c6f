package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/light-merlin-dark/aia/internal/consult"
	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/resolver"
	"github.com/light-merlin-dark/aia/internal/server/validator"
)

// ConsultRequest is the HTTP shape of a consultation.
type ConsultRequest struct {
	Prompt         string   `json:"prompt" binding:"required"`
	Models         []string `json:"models" binding:"omitempty,dive,modelref"`
	Files          []string `json:"files"`
	BestOf         bool     `json:"best_of"`
	MaxRetries     *int     `json:"max_retries" binding:"omitempty,gte=0,lte=10"`
	TimeoutSeconds int      `json:"timeout_seconds" binding:"omitempty,gte=1,lte=600"`
}

type ConsultHandler struct {
	engine   *consult.Engine
	resolver *resolver.Resolver
}

func NewConsultHandler(engine *consult.Engine, res *resolver.Resolver) *ConsultHandler {
	return &ConsultHandler{
		engine:   engine,
		resolver: res,
	}
}

func (h *ConsultHandler) Consult(c *gin.Context) {
	var req ConsultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// returns RFC compliant error
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	models := req.Models
	if len(models) == 0 {
		models = h.resolver.DefaultModels()
	}

	result := h.engine.Consult(c.Request.Context(), consult.Request{
		Prompt:     req.Prompt,
		Files:      req.Files,
		Models:     models,
		BestOf:     req.BestOf,
		MaxRetries: req.MaxRetries,
		Timeout:    time.Duration(req.TimeoutSeconds) * time.Second,
	})

	c.JSON(http.StatusOK, result)
}
