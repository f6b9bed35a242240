// Package handler provides the HTTP API for the settings store.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stevemurr/simple-settings-store/schema"
	"github.com/stevemurr/simple-settings-store/settings"
	"github.com/stevemurr/simple-settings-store/store"
)

// Handler holds the server dependencies and registers routes.
type Handler struct {
	settings *settings.Store
	log      zerolog.Logger
	mux      *http.ServeMux
}

// New creates a Handler and wires up all routes.
func New(s *settings.Store, log zerolog.Logger) *Handler {
	h := &Handler{
		settings: s,
		log:      log.With().Str("component", "handler").Logger(),
		mux:      http.NewServeMux(),
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)
	h.log.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rec.status).
		Dur("took", time.Since(start)).
		Msg("request")
}

func (h *Handler) routes() {
	// Health / status
	h.mux.HandleFunc("GET /", h.root)
	h.mux.HandleFunc("GET /health", h.health)

	// --- Raw document access per area ---
	h.mux.HandleFunc("GET /areas/{area}/items", h.getAll)
	h.mux.HandleFunc("POST /areas/{area}/items", h.setMany)
	h.mux.HandleFunc("DELETE /areas/{area}/items", h.clear)
	h.mux.HandleFunc("GET /areas/{area}/items/{key}", h.getItem)
	h.mux.HandleFunc("PUT /areas/{area}/items/{key}", h.setItem)
	h.mux.HandleFunc("DELETE /areas/{area}/items/{key}", h.removeItem)

	// --- Serialized nested updates ---
	h.mux.HandleFunc("PATCH /areas/{area}/paths/{path}", h.update)

	// --- Change feed ---
	h.mux.HandleFunc("GET /areas/{area}/changes", h.changes)

	// --- Preferences and athlete info (local area) ---
	h.mux.HandleFunc("GET /preferences/{path}", h.getPreference)
	h.mux.HandleFunc("PUT /preferences/{path}", h.setPreference)
	h.mux.HandleFunc("GET /athletes/{id}", h.getAthlete)
	h.mux.HandleFunc("PATCH /athletes/{id}", h.updateAthlete)
}

// ---------- helpers ----------

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// fail maps a settings error to a status code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, settings.ErrInvalidArgument), errors.Is(err, settings.ErrInvalidPath):
		status = http.StatusBadRequest
	case errors.Is(err, settings.ErrAreaUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, settings.ErrNotObject):
		status = http.StatusConflict
	case errors.Is(err, schema.ErrViolation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, settings.ErrClosed), errors.Is(err, store.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

// scope resolves the {area} path value.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (*settings.Scope, bool) {
	a, err := settings.ParseArea(r.PathValue("area"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return h.settings.Area(a), true
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "Simple Settings Store",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- raw document access ----------

func (h *Handler) getAll(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	doc, err := sc.GetAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) setMany(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var items map[string]any
	if err := readJSON(r, &items); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := sc.SetMany(r.Context(), items); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := sc.Clear(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "area": sc.Area().String()})
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	v, found, err := sc.Lookup(r.Context(), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no value for key %q", key))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) setItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var value any
	if err := readJSON(r, &value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := sc.Set(r.Context(), r.PathValue("key"), value); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	if err := sc.Remove(r.Context(), key); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "key": key})
}

// ---------- nested updates ----------

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	var patch settings.Patch
	if err := readJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON patch: "+err.Error())
		return
	}
	if patch == nil {
		writeError(w, http.StatusBadRequest, "patch must be a JSON object")
		return
	}
	merged, err := sc.Update(r.Context(), r.PathValue("path"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

// ---------- preferences and athletes ----------

func (h *Handler) getPreference(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	v, err := h.settings.GetPreference(r.Context(), path)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "value": v})
}

func (h *Handler) setPreference(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	var value any
	if err := readJSON(r, &value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.settings.SetPreference(r.Context(), path, value); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "value": value})
}

func (h *Handler) getAthlete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	info, err := h.settings.GetAthleteInfo(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if info == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no info for athlete %q", id))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) updateAthlete(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := readJSON(r, &patch); err != nil || patch == nil {
		writeError(w, http.StatusBadRequest, "patch must be a JSON object")
		return
	}
	merged, err := h.settings.UpdateAthleteInfo(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

// ---------- change feed ----------

type changeEvent struct {
	Key      string `json:"key"`
	NewValue any    `json:"newValue"`
	OldValue any    `json:"oldValue"`
}

// changes streams one Server-Sent Event per changed key until the client
// goes away.
func (h *Handler) changes(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events := make(chan changeEvent, 64)
	remove, err := sc.AddListener(func(key string, newValue, oldValue any) {
		select {
		case events <- changeEvent{Key: key, NewValue: newValue, OldValue: oldValue}:
		default:
			h.log.Warn().Str("key", key).Msg("change stream full, dropping event")
		}
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer remove()

	stream := uuid.NewString()
	h.log.Debug().Str("stream", stream).Stringer("area", sc.Area()).Msg("change stream opened")
	defer h.log.Debug().Str("stream", stream).Msg("change stream closed")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": stream %s\n\n", stream)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", b)
			flusher.Flush()
		}
	}
}
