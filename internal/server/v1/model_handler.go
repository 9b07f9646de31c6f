package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/light-merlin-dark/aia/internal/core/ports"
)

const (
	modelCatalogKey = "models:catalog"
	modelCatalogTTL = 5 * time.Minute
)

// ModelEntry is one row of the aggregated catalog.
type ModelEntry struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

type ModelHandler struct {
	registry ports.PluginRegistry
	cache    ports.CacheService
}

func NewModelHandler(registry ports.PluginRegistry, cache ports.CacheService) *ModelHandler {
	return &ModelHandler{
		registry: registry,
		cache:    cache,
	}
}

// ListModels aggregates the catalogs of all enabled providers. The
// aggregate is cached; local daemons make the live listing expensive.
func (h *ModelHandler) ListModels(c *gin.Context) {
	var entries []ModelEntry

	if h.cache != nil {
		if err := h.cache.Get(c.Request.Context(), modelCatalogKey, &entries); err == nil {
			c.JSON(http.StatusOK, gin.H{"object": "list", "data": entries})
			return
		}
	}

	entries = []ModelEntry{}
	for _, p := range h.registry.EnabledProviders() {
		for _, m := range p.Models(c.Request.Context()) {
			entries = append(entries, ModelEntry{
				ID:       p.Name() + "/" + m,
				Provider: p.Name(),
			})
		}
	}

	if h.cache != nil {
		_ = h.cache.Set(c.Request.Context(), modelCatalogKey, entries, modelCatalogTTL)
	}

	c.JSON(http.StatusOK, gin.H{"object": "list", "data": entries})
}
