package httpapi

import (
	"context"
	"net/http"
	"time"

	"jobsync-engine/internal/store"
)

type HealthHandler struct {
	DB *store.DB
}

// Health reports store reachability and table sizes.
func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)}
	if h.DB == nil {
		WriteJSON(w, http.StatusOK, out)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.Pool.PingContext(ctx); err != nil {
		WriteError(w, r, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}

	counts := map[string]int{}
	for _, table := range []string{"companies", "jobs", "tags", "job_tags"} {
		n, err := h.DB.Count(ctx, table)
		if err != nil {
			WriteError(w, r, http.StatusServiceUnavailable, "store_unavailable", err.Error())
			return
		}
		counts[table] = n
	}
	out["driver"] = string(h.DB.Driver)
	out["counts"] = counts
	WriteJSON(w, http.StatusOK, out)
}
