package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fundra-network/fundra/internal/domain"
)

// ─── Event feed ─────────────────────────────────────────────────────────────
//
// GET /api/events            — recent events, oldest first (?limit=)
// GET /api/events/live       — live feed over Server-Sent Events
// GET /api/campaigns/{id}/events — recent events for one campaign

const defaultEventLimit = 100

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.eng.Events().Recent(limit))
}

func (s *Server) handleCampaignEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.eng.GetCampaign(id); err != nil {
		writeDomainError(w, err)
		return
	}

	all := s.eng.Events().Recent(0)
	matched := all[:0]
	for _, ev := range all {
		if ev.CampaignID == id {
			matched = append(matched, ev)
		}
	}
	writeJSON(w, http.StatusOK, matched)
}

// handleEventsSSE serves the live event feed via Server-Sent Events.
// Uses SSE instead of WebSocket for simplicity and HTTP/2 compatibility.
func (s *Server) handleEventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush()

	ch := make(chan []byte, 32)
	cancel := s.eng.Events().Subscribe(func(ev domain.Event) {
		data, ok := marshalEvent(ev)
		if !ok {
			return
		}
		select {
		case ch <- data:
		default:
			// Client too slow, drop the event.
		}
	})
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

// marshalEvent serializes an event for the SSE wire, dropping it on error.
func marshalEvent(ev domain.Event) ([]byte, bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, false
	}
	return data, true
}
