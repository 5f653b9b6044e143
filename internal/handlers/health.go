package handlers

import (
	"net/http"
)

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health reports storage and, when configured, Redis connectivity
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "healthy", Services: map[string]string{}}

	check := func(name string, err error) {
		if err != nil {
			response.Status = "unhealthy"
			response.Services[name] = err.Error()
			return
		}
		response.Services[name] = "ok"
	}

	check("database", h.storage.Health())
	if h.redis != nil {
		check("redis", h.redis.Health())
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
