package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// Checker is satisfied by staging.Dirs and allows tests to inject a mock.
type Checker interface {
	Check() error
}

// HealthResponse is the JSON body returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Staging string `json:"staging"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /healthz.
// It reports 503 when the staging directories are unusable. The underlying
// error is logged server-side only.
func NewHealthHandler(c Checker, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Check(); err != nil {
			logger.Warn("health check: staging unavailable", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "error", Staging: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Staging: "ready"})
	}
}
