package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"driftroom/repositories"
	"driftroom/runtime"
)

type healthReport struct {
	Status            string `json:"status"`
	UptimeSeconds     int64  `json:"uptimeSeconds"`
	ConnectionCount   int64  `json:"connectionCount"`
	DurabilityBackend string `json:"durabilityBackend"`
	Timestamp         string `json:"timestamp"`
}

// HealthHandler reports process liveness plus a durability ping. It never
// returns non-200: an unavailable store degrades the report, not the
// server.
func HealthHandler(log *slog.Logger, coord *runtime.Coordinator, store repositories.Store) http.HandlerFunc {
	started := time.Now()

	return func(w http.ResponseWriter, r *http.Request) {
		backend := "connected"
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			backend = "unavailable"
		}

		report := healthReport{
			Status:            "ok",
			UptimeSeconds:     int64(time.Since(started).Seconds()),
			ConnectionCount:   coord.ConnectionCount(),
			DurabilityBackend: backend,
			Timestamp:         time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			log.Debug("health response write failed", "error", err)
		}
	}
}
