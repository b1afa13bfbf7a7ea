package handlers

import (
	"context"
	"net/http"
	"time"

	"TODOLIST_BACK-END/internal/dto"
	"TODOLIST_BACK-END/internal/utils"
)

const readinessTimeout = 3 * time.Second

// Pinger is the part of the store readiness checks need
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and store health. driver names the store
// backend ("postgres" or "memory") so /readyz shows what it actually checked.
type HealthHandler struct {
	db     Pinger
	driver string
}

func NewHealthHandler(db Pinger, driver string) *HealthHandler {
	return &HealthHandler{db: db, driver: driver}
}

// HealthCheck handles basic health check (no database)
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// LivenessCheck handles process liveness check
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, dto.HealthResponse{Status: "alive"})
}

// ReadinessCheck pings the store and reports which backend answered and how fast
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	details := map[string]any{
		"store":   h.driver,
		"ping_ms": time.Since(start).Milliseconds(),
	}

	if err != nil {
		details["db"] = err.Error()
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, dto.HealthResponse{
			Status:  "degraded",
			Details: details,
		})
		return
	}

	details["db"] = "ok"
	utils.WriteJSONResponse(w, http.StatusOK, dto.HealthResponse{
		Status:  "ready",
		Details: details,
	})
}
