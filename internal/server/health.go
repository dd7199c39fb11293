package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	history HistoryStore
	backend string
	version string
}

func NewHealthController(store HistoryStore, backend, version string) *HealthController {
	return &HealthController{
		history: store,
		backend: backend,
		version: version,
	}
}

// Status handles GET /health. The remote target is not probed.
func (h *HealthController) Status(c *gin.Context) {
	checks := map[string]string{
		"backend": h.backend,
	}
	status := "healthy"

	if h.history != nil {
		if err := h.history.Ping(c.Request.Context()); err != nil {
			checks["history"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["history"] = "ok"
		}
	} else {
		checks["history"] = "not configured"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
