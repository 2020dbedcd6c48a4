package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hexempire/internal/chain"
	"hexempire/internal/game"
	"hexempire/internal/relay"
)

// Handler methods for routerHandlers.
// These are used by both the standalone router (for testing) and the full Server.

type routerHandlers struct {
	store    Store
	notifier Notifier
	verifier ProofVerifier
	sink     EventSink
	maxBody  int64
	maxLimit int
}

func (h *routerHandlers) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer RecordRequest(r.Method, "/api/events", time.Since(start))

	var ev chain.GameEvent
	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(body).Decode(&ev); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RecordEventRejected("too_large")
			writeError(w, http.StatusRequestEntityTooLarge, "event too large")
			return
		}
		RecordEventRejected("bad_json")
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}

	if ev.ID == "" {
		RecordEventRejected("unsigned")
		writeError(w, http.StatusBadRequest, "event is not signed")
		return
	}
	if ev.GameID == "" {
		RecordEventRejected("no_game")
		writeError(w, http.StatusBadRequest, "event has no game id")
		return
	}

	// Verify attached proofs when a verifier is configured. A mint
	// outage is not a rejection: the event is stored anyway and peers
	// verify at replay time.
	if h.verifier != nil && ev.Proof != nil {
		if valid, err := h.verifier.VerifyProof(ev.Proof); err == nil && !valid {
			RecordEventRejected("bad_proof")
			writeError(w, http.StatusBadRequest, "randomness proof failed verification")
			return
		}
	}

	err := h.store.Save(&ev)
	switch {
	case errors.Is(err, relay.ErrDuplicate):
		RecordEventDuplicate()
		writeJSON(w, map[string]interface{}{"id": ev.ID, "duplicate": true})
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	RecordEventStored()
	if h.notifier != nil {
		h.notifier.Notify(&ev)
	}
	if h.sink != nil {
		h.sink.IngestEvent(&ev)
	}

	writeJSON(w, map[string]interface{}{"id": ev.ID, "duplicate": false})
}

// handleQueryEvents answers GET queries built from URL parameters:
// game, author, kind, id, since, until, limit. Repeated parameters OR
// together, matching the filter semantics.
func (h *routerHandlers) handleQueryEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer RecordRequest(r.Method, "/api/events", time.Since(start))

	q := r.URL.Query()
	f := relay.Filter{
		GameID:  q.Get("game"),
		IDs:     splitParam(q["id"]),
		Authors: splitParam(q["author"]),
	}
	for _, k := range splitParam(q["kind"]) {
		if kind, err := strconv.Atoi(k); err == nil {
			f.Kinds = append(f.Kinds, kind)
		}
	}
	if v := q.Get("since"); v != "" {
		f.Since, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("until"); v != "" {
		f.Until, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}

	h.runQuery(w, f)
}

// handleQueryEventsJSON accepts a full filter document, including tag
// matching that cannot be expressed in URL parameters.
func (h *routerHandlers) handleQueryEventsJSON(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer RecordRequest(r.Method, "/api/events/query", time.Since(start))

	var f relay.Filter
	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "malformed filter")
		return
	}

	h.runQuery(w, f)
}

func (h *routerHandlers) runQuery(w http.ResponseWriter, f relay.Filter) {
	if f.Limit <= 0 || f.Limit > h.maxLimit {
		f.Limit = h.maxLimit
	}

	start := time.Now()
	events, err := h.store.Query(f)
	RecordQuery(time.Since(start))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failure")
		return
	}

	// Empty result is a JSON [] rather than null.
	if events == nil {
		events = []*chain.GameEvent{}
	}
	writeJSON(w, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (h *routerHandlers) handleGameCount(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	if gameID == "" {
		writeError(w, http.StatusBadRequest, "missing game id")
		return
	}

	count, err := h.store.CountForGame(gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failure")
		return
	}

	writeJSON(w, map[string]interface{}{"gameId": gameID, "count": count})
}

// handleValidateSettings lets a lobby UI check game settings before the
// creator signs a CreateGame event that peers would reject.
func (h *routerHandlers) handleValidateSettings(w http.ResponseWriter, r *http.Request) {
	var settings game.GameSettings
	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "malformed settings")
		return
	}

	if err := settings.Validate(); err != nil {
		writeJSON(w, map[string]interface{}{"valid": false, "reason": err.Error()})
		return
	}

	writeJSON(w, map[string]interface{}{"valid": true})
}

// splitParam flattens repeated query parameters, also accepting
// comma-separated values inside a single parameter.
func splitParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
