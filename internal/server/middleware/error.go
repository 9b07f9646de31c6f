package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/light-merlin-dark/aia/internal/core/domain"
	"go.uber.org/zap"
)

// ErrorHandler is a custom error handling middleware that handles all errors returned by handlers
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// first, we need to check if it's an RFC 9457 problem
		var problem *domain.Problem
		if errors.As(err, &problem) {
			if problem.Log != nil {
				logger.Error("request failed", zap.Error(problem.Log))
			}

			// RFC 9457 dictates the json is at the root
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		// then the engine's compact error shape
		var domainErr *domain.Error
		if errors.As(err, &domainErr) {
			if domainErr.Log != nil {
				logger.Error("request failed", zap.Error(domainErr.Log))
			}
			c.JSON(domainErr.Code, gin.H{"error": domainErr.Message})
			c.Abort()
			return
		}

		// at this point it's an unknown error; catch-all 500
		logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, domain.New(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}
