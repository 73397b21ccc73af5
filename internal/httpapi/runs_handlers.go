package httpapi

import (
	"context"
	"errors"
	"net/http"

	"jobsync-engine/internal/ingest"
	"jobsync-engine/internal/logger"
)

type RunsHandler struct {
	Runner  Runner
	Log     logger.Logger
	BaseCtx context.Context
}

func (h RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Runner.Status())
}

// Run starts an ingest run. By default it returns 202 at once; with
// ?wait=1 it blocks and returns the run report.
func (h RunsHandler) Run(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFrom(r.Context())
	if h.Runner.Status().Running {
		WriteError(w, r, http.StatusConflict, "run_in_progress", ingest.ErrRunInProgress.Error())
		return
	}

	if r.URL.Query().Get("wait") == "1" {
		rep, err := h.Runner.RunOnce(r.Context(), reqID)
		if errors.Is(err, ingest.ErrRunInProgress) {
			WriteError(w, r, http.StatusConflict, "run_in_progress", err.Error())
			return
		}
		// per-source failures are part of the report
		WriteJSON(w, http.StatusOK, rep)
		return
	}

	base := h.BaseCtx
	if base == nil {
		base = context.Background()
	}
	log := orNop(h.Log).With("component", "http")
	go func() {
		if _, err := h.Runner.RunOnce(base, reqID); err != nil {
			log.Warn("run finished with errors", "request_id", reqID, "err", err)
		}
	}()
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true, "request_id": reqID})
}
