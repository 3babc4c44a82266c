package webui

import (
	"time"

	"runsettings/internal/webui/handlers"
)

// APIResponse - standard response envelope
type APIResponse = handlers.APIResponse

// HealthResponse - health check payload
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Sessions  int       `json:"sessions"`
}
