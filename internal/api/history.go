package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ha-discovery/internal/history"
)

// handleDeviceHistory returns recent change history for a device.
//
// Query parameters:
//   - limit: maximum entries (default 50, max 200)
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history is disabled")
		return
	}

	id := strings.Trim(chi.URLParam(r, "*"), "/")
	if id == "" {
		writeBadRequest(w, "device id is required")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), id, limit)
	if errors.Is(err, history.ErrDeviceIDRequired) {
		writeBadRequest(w, "device id is required")
		return
	}
	if err != nil {
		s.logger.Error("listing device history", "device_id", id, "error", err)
		writeInternalError(w, "listing device history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"entries":   entries,
		"count":     len(entries),
	})
}
