package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// OwnerCounter reports how many per-owner caches are live.
type OwnerCounter interface {
	ActiveOwners() int
}

type HealthController struct {
	db      *database.Database
	owners  OwnerCounter
	version string
}

func NewHealthController(db *database.Database, owners OwnerCounter, version string) *HealthController {
	return &HealthController{
		db:      db,
		owners:  owners,
		version: version,
	}
}

// GET /health
func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.owners != nil {
		checks["cached_owners"] = strconv.Itoa(h.owners.ActiveOwners())
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
