package ingress

import (
	"net/http"

	"github.com/jmoiron/sqlx"
)

type healthHandlers struct {
	appName string
	version string
	db      *sqlx.DB
}

func (h *healthHandlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": h.appName, "version": h.version})
}

func (h *healthHandlers) live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "alive"})
}

func (h *healthHandlers) ready(w http.ResponseWriter, r *http.Request) {
	dbHealthy := h.db != nil && h.db.PingContext(r.Context()) == nil
	status := "ready"
	dbStatus := "healthy"
	code := http.StatusOK
	if !dbHealthy {
		status = "not_ready"
		dbStatus = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"service": h.appName,
		"version": h.version,
		"checks":  map[string]string{"database": dbStatus},
	})
}
