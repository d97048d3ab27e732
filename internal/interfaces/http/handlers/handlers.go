// Package handlers implements the JSON API handlers over the session
// coordinator and the fetch layer.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/yuhaojin/astock-screener/internal/fetch"
	"github.com/yuhaojin/astock-screener/internal/session"
)

// Handlers carries the collaborators every endpoint needs.
type Handlers struct {
	coord   *session.Coordinator
	fetcher *fetch.Fetcher
}

// New builds the handler set.
func New(coord *session.Coordinator, fetcher *fetch.Fetcher) *Handlers {
	return &Handlers{coord: coord, fetcher: fetcher}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response encode failed")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
