package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mimir-aip/finqa/pkg/metadatastore"
	"github.com/mimir-aip/finqa/pkg/models"
)

const maxQuestionLength = 1000

// handleAsk answers a question; failures are part of the answer, not HTTP errors
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		http.Error(w, "Question is required", http.StatusBadRequest)
		return
	}
	if len(question) > maxQuestionLength {
		http.Error(w, fmt.Sprintf("Question exceeds %d characters", maxQuestionLength), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.holder.Ask(r.Context(), question))
}

// handleHistory lists recently answered questions
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	store := s.holder.Store()
	if store == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := store.ListQueries(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list history: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleHistoryItem returns one answered question by ID
func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	store := s.holder.Store()
	if store == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if id == "" {
		http.Error(w, "Query ID required", http.StatusBadRequest)
		return
	}

	record, err := store.GetQuery(id)
	if errors.Is(err, metadatastore.ErrNotFound) {
		http.Error(w, fmt.Sprintf("Query not found: %s", id), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get query: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
