package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vidbase-backend/internal/models"
)

type CostStore interface {
	ListForVideo(ctx context.Context, videoID uuid.UUID) ([]models.CostLedgerEntry, error)
	TotalForVideo(ctx context.Context, videoID uuid.UUID) (float64, error)
	SummaryForCreator(ctx context.Context, creatorID uuid.UUID, from, to time.Time) (*models.CostSummary, error)
	EfficiencyForCreator(ctx context.Context, creatorID uuid.UUID) (*models.EfficiencyReport, error)
}

type CostHandler struct {
	costs CostStore
}

func NewCostHandler(costs CostStore) *CostHandler {
	return &CostHandler{costs: costs}
}

// VideoCosts lists every ledger entry recorded against one video,
// including entries from failed runs. The total is the sum, never a
// recomputation.
func (h *CostHandler) VideoCosts(w http.ResponseWriter, r *http.Request) {
	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video ID", r))
		return
	}

	entries, err := h.costs.ListForVideo(r.Context(), videoID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load cost entries", r))
		return
	}

	total, err := h.costs.TotalForVideo(r.Context(), videoID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to total costs", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"video_id":       videoID,
		"entries":        entries,
		"total_cost_usd": total,
	})
}

// Summary reports a creator's per-method spend over a date range,
// defaulting to the last 30 days.
func (h *CostHandler) Summary(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := parseCreatorID(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	from, ok := parseDateParam(w, r, "from", now.AddDate(0, 0, -30))
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "to", now)
	if !ok {
		return
	}
	if !from.Before(to) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "from must be before to", r))
		return
	}

	summary, err := h.costs.SummaryForCreator(r.Context(), creatorID, from, to)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to build cost summary", r))
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Efficiency reports the creator's free-vs-paid transcript split and the
// estimated savings against an all-paid baseline.
func (h *CostHandler) Efficiency(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := parseCreatorID(w, r)
	if !ok {
		return
	}

	report, err := h.costs.EfficiencyForCreator(r.Context(), creatorID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to build efficiency report", r))
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func parseCreatorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("creator_id")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "creator_id is required", r))
		return uuid.Nil, false
	}

	creatorID, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid creator_id", r))
		return uuid.Nil, false
	}
	return creatorID, true
}

func parseDateParam(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}

	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", name+" must be a YYYY-MM-DD date", r))
		return time.Time{}, false
	}
	return t, true
}
