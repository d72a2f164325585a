// ABOUTME: HTTP API handlers for reading and writing day counters
// ABOUTME: Provides GET /api/today, GET /api/history, POST /api/set, and health probes

package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/2389/absolutelyright/internal/metrics"
	"github.com/2389/absolutelyright/internal/store"
)

// maxSetBodyBytes bounds the POST /api/set request body.
const maxSetBodyBytes = 64 << 10

// ErrUnauthorized is returned when a write carries a missing or wrong secret.
var ErrUnauthorized = errors.New("invalid secret")

// TodayResponse is the JSON response for GET /api/today.
type TodayResponse struct {
	Count      uint32 `json:"count"`
	RightCount uint32 `json:"right_count"`
}

// DayResponse is one element of the GET /api/history response.
type DayResponse struct {
	Day        string `json:"day"`
	Count      uint32 `json:"count"`
	RightCount uint32 `json:"right_count"`
}

// SetRequest is the JSON request body for POST /api/set.
// Pointer fields distinguish absent values from zeros.
type SetRequest struct {
	Day        *string `json:"day"`
	Count      *uint32 `json:"count"`
	RightCount *uint32 `json:"right_count,omitempty"`
	Secret     *string `json:"secret,omitempty"`
}

// handleToday handles GET /api/today.
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	if !isRead(r) {
		sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dc, err := s.store.Today(r.Context())
	if err != nil {
		s.storeFailure(w, r, "today", err)
		return
	}

	writeJSON(w, http.StatusOK, TodayResponse{Count: dc.Count, RightCount: dc.RightCount})
}

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !isRead(r) {
		sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	history, err := s.store.History(r.Context())
	if err != nil {
		s.storeFailure(w, r, "history", err)
		return
	}

	response := make([]DayResponse, 0, len(history))
	for _, dc := range history {
		response = append(response, DayResponse{Day: dc.Day, Count: dc.Count, RightCount: dc.RightCount})
	}
	writeJSON(w, http.StatusOK, response)
}

// handleSet handles POST /api/set.
// The body is decoded first, then the shared secret is checked, then the
// day is upserted with right_count defaulting to 0.
func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := parseSetRequest(http.MaxBytesReader(w, r.Body, maxSetBodyBytes))
	if err != nil {
		s.observeWrite(metrics.WriteInvalid)
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.authorize(req); err != nil {
		s.observeWrite(metrics.WriteUnauthorized)
		loggerFromContext(r.Context(), s.logger).Warn("rejected counter write", "day", *req.Day, "error", err)
		sendError(w, http.StatusUnauthorized, "Invalid secret")
		return
	}

	dc := &store.DayCount{Day: *req.Day, Count: *req.Count}
	if req.RightCount != nil {
		dc.RightCount = *req.RightCount
	}

	if err := s.store.UpsertDay(r.Context(), dc); err != nil {
		s.observeWrite(metrics.WriteError)
		s.storeFailure(w, r, "upsert", err)
		return
	}

	s.observeWrite(metrics.WriteOK)
	loggerFromContext(r.Context(), s.logger).Info("counter updated",
		"day", dc.Day, "count", dc.Count, "right_count", dc.RightCount)
	writeJSON(w, http.StatusOK, "ok")
}

// authorize checks the request secret against the configured one.
// With no configured secret every request is allowed.
func (s *Server) authorize(req *SetRequest) error {
	if s.secret == "" {
		return nil
	}
	if req.Secret == nil {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(*req.Secret), []byte(s.secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// parseSetRequest decodes and validates a SetRequest.
// Returns an error if the JSON is invalid or day/count are missing.
func parseSetRequest(r io.Reader) (*SetRequest, error) {
	var req SetRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}

	if req.Day == nil {
		return nil, errors.New("day is required")
	}

	if req.Count == nil {
		return nil, errors.New("count is required")
	}

	return &req, nil
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "store unavailable: %v", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// storeFailure logs a storage error and fails the request with a 500.
func (s *Server) storeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveStoreError(op)
	}
	loggerFromContext(r.Context(), s.logger).Error("store operation failed", "op", op, "error", err)
	sendError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) observeWrite(result string) {
	if s.metrics != nil {
		s.metrics.ObserveWrite(result)
	}
}

func isRead(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// writeJSON writes v as a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sendError writes a plain-text error response.
func sendError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}
