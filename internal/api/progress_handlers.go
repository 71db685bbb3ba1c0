package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/runner"
)

// ProgressHandler exposes the read-only run progress endpoint.
type ProgressHandler struct {
	source StatusSource
	runID  string
	logger *zap.Logger
}

// NewProgressHandler wires the status source and logger.
func NewProgressHandler(source StatusSource, runID string, logger *zap.Logger) *ProgressHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressHandler{source: source, runID: runID, logger: logger}
}

// Get handles GET /v1/progress. It returns {"run_id": ..., "progress": {...}}
// or 503 when no run is attached.
func (h *ProgressHandler) Get(w http.ResponseWriter, _ *http.Request) {
	if h.source == nil {
		writeError(w, http.StatusServiceUnavailable, "no run attached")
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		RunID:    h.runID,
		Progress: toProgressDTO(h.source.Status()),
	})
}

type progressResponse struct {
	RunID    string      `json:"run_id"`
	Progress progressDTO `json:"progress"`
}

type progressDTO struct {
	State          string     `json:"state"`
	TotalUnits     int        `json:"total_units"`
	UnitsProcessed int        `json:"units_processed"`
	UnitsSkipped   int        `json:"units_skipped"`
	UnitsFailed    int        `json:"units_failed"`
	Listings       int        `json:"listings_accumulated"`
	Snapshots      int        `json:"snapshots_written"`
	LastSave       *time.Time `json:"last_save,omitempty"`
	CurrentUnit    string     `json:"current_unit,omitempty"`
}

func toProgressDTO(st runner.Status) progressDTO {
	dto := progressDTO{
		State:          string(st.State),
		TotalUnits:     st.TotalUnits,
		UnitsProcessed: st.UnitsProcessed,
		UnitsSkipped:   st.Skipped,
		UnitsFailed:    st.Failed,
		Listings:       st.Accumulated,
		Snapshots:      st.Snapshots,
		CurrentUnit:    st.CurrentUnit,
	}
	if !st.LastSave.IsZero() {
		last := st.LastSave
		dto.LastSave = &last
	}
	return dto
}
