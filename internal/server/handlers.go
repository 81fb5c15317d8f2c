package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ziadkadry99/devflow/internal/assistant"
	"github.com/ziadkadry99/devflow/internal/indexer"
	"github.com/ziadkadry99/devflow/internal/retriever"
)

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type queryResponse struct {
	Results []string           `json:"results"`
	Matches []retriever.Result `json:"matches"`
}

type syncResponse struct {
	*indexer.SyncResult
	Errors []string `json:"errors"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	results, err := s.svc.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Text
	}
	writeJSON(w, http.StatusOK, queryResponse{Results: texts, Matches: results})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		queryRequest
		SessionID string `json:"session_id"`
		UseCache  bool   `json:"use_cache"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ans, err := s.svc.Ask(r.Context(), assistant.AskRequest{
		Query:     req.Query,
		TopK:      req.TopK,
		SessionID: req.SessionID,
		UseCache:  req.UseCache,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Sync(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{SyncResult: result, Errors: result.ErrorStrings()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	if err != nil {
		s.logger.Error("status_failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, assistant.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrNoAnswerer):
		return http.StatusServiceUnavailable
	case indexer.IsBusy(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
