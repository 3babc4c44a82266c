package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"runsettings/internal/logging"
)

// Recovery answers panics with a 500 APIResponse.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, APIResponse{
			Success: false,
			Error:   "Internal server error",
		})
	})
}
