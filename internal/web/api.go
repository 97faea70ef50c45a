package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"covertype/internal/features"
	"covertype/internal/ml"
	"covertype/internal/storage"

	"github.com/rs/zerolog/log"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
	maxBodyBytes        = 1 << 20
)

// SchemaResponse describes the form controls a client must fill.
type SchemaResponse struct {
	Features      int                     `json:"features"`
	Columns       []features.Column       `json:"columns"`
	Numeric       []features.NumericField `json:"numeric"`
	Wilderness    *features.Selector      `json:"wilderness,omitempty"`
	Soil          *features.Selector      `json:"soil,omitempty"`
	Labels        []string                `json:"labels"`
	Probabilities bool                    `json:"probabilities"`
}

// PredictResponse is the body of a successful or failed /api/predict call.
type PredictResponse struct {
	Result
	Input *features.Input `json:"input,omitempty"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Features      int               `json:"features"`
	Classes       int               `json:"classes"`
	Probabilities bool              `json:"probabilities"`
	Artifacts     map[string]string `json:"artifacts"`
	LoadedAt      time.Time         `json:"loaded_at"`
	Stats         ml.Stats          `json:"stats"`
	History       *int              `json:"history_records,omitempty"`
}

// HistoryResponse is the body of /api/history.
type HistoryResponse struct {
	Records []storage.Record `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	form := s.assets.Form
	resp := SchemaResponse{
		Features:      s.assets.Schema.Len(),
		Columns:       s.assets.Schema.Columns(),
		Numeric:       form.Numeric,
		Labels:        s.pipeline.Labels(),
		Probabilities: s.pipeline.SupportsProbabilities(),
	}
	if !form.Wilderness.Empty() {
		resp.Wilderness = form.Wilderness
	}
	if !form.Soil.Empty() {
		resp.Soil = form.Soil
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	var in features.Input
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	out := s.evaluate(r.Context(), "api", in)
	resp := PredictResponse{Result: newResult(out)}
	if !out.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	if norm, err := s.assets.Form.Normalize(in); err == nil {
		resp.Input = &norm
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "prediction history is disabled"})
		return
	}

	q := r.URL.Query()
	limit := defaultHistoryLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	} else if q.Has("from") || q.Has("to") {
		limit = maxHistoryLimit
	}

	var (
		records []storage.Record
		err     error
	)
	if q.Has("from") || q.Has("to") {
		start, end, perr := parseWindow(q.Get("from"), q.Get("to"))
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: perr.Error()})
			return
		}
		records, err = s.history.Range(start, end)
		if len(records) > limit {
			records = records[:limit]
		}
	} else {
		records, err = s.history.Recent(limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to read prediction history")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read history"})
		return
	}
	if records == nil {
		records = []storage.Record{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Records: records})
}

// parseWindow reads the from/to bounds of a history query. A missing from
// means the epoch and a missing to means now.
func parseWindow(from, to string) (time.Time, time.Time, error) {
	start, end := time.Unix(0, 0), time.Now()
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return start, end, fmt.Errorf("from must be an RFC 3339 timestamp: %w", err)
		}
		start = t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return start, end, fmt.Errorf("to must be an RFC 3339 timestamp: %w", err)
		}
		end = t
	}
	if end.Before(start) {
		return start, end, errors.New("to must not be before from")
	}
	return start, end, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	p := s.assets.Paths
	resp := HealthResponse{
		Status:        "ok",
		Features:      s.assets.Schema.Len(),
		Classes:       s.assets.Encoder.Len(),
		Probabilities: s.pipeline.SupportsProbabilities(),
		Artifacts: map[string]string{
			"model":     p.Model,
			"scaler":    p.Scaler,
			"encoder":   p.Encoder,
			"reference": p.Reference,
		},
		LoadedAt: s.assets.LoadedAt,
		Stats:    s.pipeline.Stats(),
	}
	if s.history != nil {
		if n, err := s.history.Count(); err != nil {
			log.Warn().Err(err).Msg("Failed to count prediction history")
		} else {
			resp.History = &n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
