package handlers

import (
	"context"
	"net/http"
	"time"

	"expense-api/internal/logger"
	"expense-api/internal/middleware"
)

const healthTimeout = 5 * time.Second

// HealthResponse is the body of the health check.
type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Health reports database connectivity. It always answers 200; the state is
// in the body.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Service: h.info.Name, Database: "connected"}
	if err := h.db.Ping(ctx); err != nil {
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Msg("Health check failed")
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
		resp.Error = err.Error()
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}
