package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"commentiq-monitor/internal/domain"
	"commentiq-monitor/internal/domain/model"
	"commentiq-monitor/internal/domain/ports/adapter"
	"commentiq-monitor/internal/infra/logging"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// mapError translates domain/backend errors into an HTTP status.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid argument"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "too many verification attempts, try again shortly"
	}
	if apiErr, ok := adapter.AsAPIError(err); ok {
		if apiErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound, "not found"
		}
		return http.StatusBadGateway, "backend error"
	}
	return http.StatusInternalServerError, "internal error"
}

func (s *Server) handleAnalysisGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logging.WithAnalysisID(r.Context(), id)
	a, err := s.trackerUC.Snapshot(ctx, id)
	if err != nil {
		status, msg := mapError(err)
		logging.With(ctx, s.log).Warn().Err(err).Msg("analysis snapshot failed")
		http.Error(w, msg, status)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleBalanceGet(w http.ResponseWriter, r *http.Request) {
	b, err := s.balanceUC.Refresh(r.Context())
	if err != nil {
		// Fall back to the last known value rather than erroring out; the
		// balance is re-derivable on the next call.
		if cached := s.balanceUC.Current(); !cached.IsZero() {
			s.log.Warn().Err(err).Msg("balance refresh failed; serving cached value")
			writeJSON(w, http.StatusOK, cached)
			return
		}
		status, msg := mapError(err)
		http.Error(w, msg, status)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// A struct to define the expected JSON request body for creating a monitor.
type monitorCreateRequest struct {
	VideoURL     string `json:"video_url"`
	Platform     string `json:"platform"`
	CadenceHours int    `json:"cadence_hours"`
}

type monitorResponse struct {
	ID             string     `json:"id"`
	VideoURL       string     `json:"video_url"`
	Platform       string     `json:"platform"`
	CadenceHours   float64    `json:"cadence_hours"`
	Active         bool       `json:"active"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	NextRunAt      time.Time  `json:"next_run_at"`
	LastAnalysisID string     `json:"last_analysis_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toMonitorResponse(m *model.Monitor) monitorResponse {
	return monitorResponse{
		ID:             m.ID,
		VideoURL:       m.VideoURL,
		Platform:       m.Platform,
		CadenceHours:   m.Cadence.Hours(),
		Active:         m.Active,
		LastRunAt:      m.LastRunAt,
		NextRunAt:      m.NextRunAt,
		LastAnalysisID: m.LastAnalysisID,
		CreatedAt:      m.CreatedAt,
	}
}

func (s *Server) handleMonitorCreate(w http.ResponseWriter, r *http.Request) {
	var req monitorCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	m, err := s.monitorUC.Create(r.Context(), req.VideoURL, req.Platform, time.Duration(req.CadenceHours)*time.Hour)
	if err != nil {
		status, msg := mapError(err)
		http.Error(w, msg, status)
		return
	}
	writeJSON(w, http.StatusCreated, toMonitorResponse(m))
}

// handleMonitorsList returns a paginated list of monitors.
// It accepts 'offset' and 'limit' query parameters.
func (s *Server) handleMonitorsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50 // Default page size
	}
	if offset < 0 {
		offset = 0
	}

	monitors, err := s.monitorUC.List(ctx, offset, limit)
	if err != nil {
		http.Error(w, "Failed to list monitors", http.StatusInternalServerError)
		return
	}
	total, err := s.monitorUC.Count(ctx)
	if err != nil {
		http.Error(w, "Failed to count monitors", http.StatusInternalServerError)
		return
	}

	data := make([]monitorResponse, 0, len(monitors))
	for _, m := range monitors {
		data = append(data, toMonitorResponse(m))
	}

	response := struct {
		Data   []monitorResponse `json:"data"`
		Total  int               `json:"total"`
		Limit  int               `json:"limit"`
		Offset int               `json:"offset"`
	}{
		Data:   data,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleMonitorGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.monitorUC.Get(r.Context(), id)
	if err != nil {
		status, msg := mapError(err)
		http.Error(w, msg, status)
		return
	}
	writeJSON(w, http.StatusOK, toMonitorResponse(m))
}

func (s *Server) handleMonitorDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.monitorUC.Delete(r.Context(), id); err != nil {
		status, msg := mapError(err)
		http.Error(w, msg, status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
