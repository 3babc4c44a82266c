package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the local response envelope, kept here to avoid importing
// the handlers package.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSONMiddleware rejects request bodies that are not JSON.
func JSONMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if contentType := c.GetHeader("Content-Type"); contentType != "" {
				mediaType, _, err := mime.ParseMediaType(contentType)
				if err != nil || mediaType != "application/json" {
					c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, APIResponse{
						Success: false,
						Error:   "Content-Type must be application/json",
					})
					return
				}
			}
		}
		c.Next()
	}
}
