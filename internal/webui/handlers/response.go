package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"runsettings/internal/jsonx"
	"runsettings/internal/session"
)

// APIResponse is the envelope every API endpoint answers with.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// requestError carries the status an edge failure maps to.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, err: fmt.Errorf(format, args...)}
}

func statusError(status int, err error) error {
	return &requestError{status: status, err: err}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		status = reqErr.status
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, APIResponse{Success: false, Error: err.Error()})
}

// bindJSON decodes the request body into dst, rejecting unknown fields.
func bindJSON(c *gin.Context, dst any) error {
	dec := jsonx.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest("invalid request: %v", err)
	}
	return nil
}

const sessionKey = "runsettings.session"

// SetSession attaches the resolved session to the request context.
func SetSession(c *gin.Context, s *session.Session) {
	c.Set(sessionKey, s)
}

// SessionFrom returns the session attached by SetSession.
func SessionFrom(c *gin.Context) (*session.Session, bool) {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	s, ok := value.(*session.Session)
	return s, ok && s != nil
}
