package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/light-merlin-dark/aia/internal/config"
	"github.com/light-merlin-dark/aia/internal/consult"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/resolver"
	"github.com/light-merlin-dark/aia/internal/server/validator"
	"go.uber.org/zap"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *zap.Logger
	engine   *consult.Engine
	registry ports.PluginRegistry
	resolver *resolver.Resolver
	cache    ports.CacheService
}

func New(cfg *config.Config, logger *zap.Logger, engine *consult.Engine, registry ports.PluginRegistry, res *resolver.Resolver, cache ports.CacheService) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.InitValidator()

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	s := &Server{
		router:   router,
		config:   cfg,
		logger:   logger,
		engine:   engine,
		registry: registry,
		resolver: res,
		cache:    cache,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
