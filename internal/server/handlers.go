package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/pii-redactor/internal/etl"
	"github.com/raaihank/pii-redactor/internal/privacy"
)

// RedactRequest carries one record. The payload is given either inline as
// a JSON object in data or as an encoded string in data_json.
type RedactRequest struct {
	RecordID string          `json:"record_id"`
	Data     json.RawMessage `json:"data,omitempty"`
	DataJSON *string         `json:"data_json,omitempty"`
}

// RedactResponse is the redacted record
type RedactResponse struct {
	RecordID     string            `json:"record_id"`
	RedactedData json.RawMessage   `json:"redacted_data"`
	IsPII        bool              `json:"is_pii"`
	Findings     []privacy.Finding `json:"findings"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (req RedactRequest) row() etl.InputRow {
	row := etl.InputRow{RecordID: req.RecordID}
	switch {
	case req.DataJSON != nil:
		row.DataJSON = *req.DataJSON
	case len(req.Data) > 0:
		row.DataJSON = string(req.Data)
	}
	return row
}

// handleRedact redacts a single record
func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	var req RedactRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	responses, ok := s.redact(w, r, []RedactRequest{req}, "api")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, responses[0])
}

// handleRedactBatch redacts an array of records and answers in the same order
func (s *Server) handleRedactBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []RedactRequest
	if !s.decodeBody(w, r, &reqs) {
		return
	}

	responses, ok := s.redact(w, r, reqs, "batch")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) redact(w http.ResponseWriter, r *http.Request, reqs []RedactRequest, source string) ([]RedactResponse, bool) {
	requestID := getRequestID(r.Context())

	rows := make([]etl.InputRow, len(reqs))
	for i, req := range reqs {
		rows[i] = req.row()
	}

	redactions, err := s.pipeline.RedactRows(r.Context(), rows)
	if err != nil {
		s.logger.WithRequestID(requestID).Warn("Redaction aborted", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "request canceled")
		return nil, false
	}

	responses := make([]RedactResponse, len(redactions))
	for i, red := range redactions {
		findings := red.Result.Findings
		if findings == nil {
			findings = []privacy.Finding{}
		}
		responses[i] = RedactResponse{
			RecordID:     red.Output.RecordID,
			RedactedData: json.RawMessage(red.Output.RedactedDataJSON),
			IsPII:        red.Output.IsPII,
			Findings:     findings,
		}

		if red.Output.IsPII {
			s.totalDetections.Add(1)
			s.wsHub.PublishDetection(requestID, red.Output.RecordID, source, red.Result)
		}
	}

	return responses, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":                  "pii-redactor",
		"version":               Version,
		"combination_threshold": s.Policy().CombinationThreshold,
		"recognized_fields":     privacy.RecognizedFields(),
		"websocket_enabled":     s.config.WebSocket.Enabled,
		"rate_limit_enabled":    s.config.Server.RateLimit.Enabled,
		"uptime":                time.Since(s.startTime).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
