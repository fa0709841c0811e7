package http

import (
	"net/http"
	"time"
)

// HealthHandler reports basic liveness: uptime and the frozen engine
// version/config hash, so an operator can confirm which config a
// running instance loaded.
type HealthHandler struct {
	startTime     time.Time
	engineVersion string
}

func NewHealthHandler(engineVersion string) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), engineVersion: engineVersion}
}

type healthResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	EngineVersion string `json:"engineVersion"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		Uptime:        time.Since(h.startTime).String(),
		EngineVersion: h.engineVersion,
	})
}
