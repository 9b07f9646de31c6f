package server

import (
	"github.com/light-merlin-dark/aia/internal/server/middleware"
	v1 "github.com/light-merlin-dark/aia/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	// 1. Global Middleware
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Tracing("aia"))
	s.router.Use(middleware.ErrorHandler(s.logger))

	// 2. Health Check (Public)
	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	// 3. API V1 Group
	rl := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)

	api := s.router.Group("/v1")
	api.Use(middleware.Auth(s.config.APIKeys))
	api.Use(rl.Middleware())
	{
		consultHandler := v1.NewConsultHandler(s.engine, s.resolver)
		api.POST("/consult", consultHandler.Consult)

		modelsHandler := v1.NewModelHandler(s.registry, s.cache)
		api.GET("/models", modelsHandler.ListModels)
	}
}
