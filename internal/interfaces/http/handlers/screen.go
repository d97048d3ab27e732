package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/yuhaojin/astock-screener/internal/screen"
)

type startRequest struct {
	Criteria []int `json:"criteria"`
}

type startResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

// StartScreen handles POST /api/screen/start. The criteria selection is an
// optional subset of {1..8}; absent or empty means all. Starting while a
// run is in flight supersedes it.
func (h *Handlers) StartScreen(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.Body != nil {
		// A missing or malformed body simply means the default selection.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	criteria := make([]screen.CriterionID, 0, len(req.Criteria))
	for _, id := range req.Criteria {
		criteria = append(criteria, screen.CriterionID(id))
	}

	token := h.coord.Start(criteria)
	h.writeJSON(w, http.StatusOK, startResponse{Status: "started", Token: token})
}

// GetProgress handles GET /api/screen/progress.
func (h *Handlers) GetProgress(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.coord.Progress())
}

// GetResults handles GET /api/screen/results. A 404 before completion is a
// normal state, not a failure.
func (h *Handlers) GetResults(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	report, ok := h.coord.Result(token)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no_results", "暂无筛选结果")
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}
