package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mimir-aip/finqa/pkg/lexicon"
	"github.com/mimir-aip/finqa/pkg/mlmodel"
	"github.com/mimir-aip/finqa/pkg/models"
	"github.com/mimir-aip/finqa/pkg/query"
	"github.com/mimir-aip/finqa/pkg/table"
)

// entityInfo is one row of GET /api/entities
type entityInfo struct {
	Entity string               `json:"entity"`
	Values map[string]string    `json:"values"`
	Model  *models.ModelSummary `json:"model,omitempty"`
}

// forecastResponse is the body of GET /api/forecasts/{entity}
type forecastResponse struct {
	Entity  string           `json:"entity"`
	Quarter models.Period    `json:"quarter"`
	Value   float64          `json:"value"`
	Model   models.ModelKind `json:"model"`
	Best    models.ModelKind `json:"best"`

	// Observed is the table value for Quarter, when the table has one
	Observed *float64 `json:"observed,omitempty"`
}

// modelsResponse is the body of GET /api/models
type modelsResponse struct {
	TrainedAt time.Time             `json:"trained_at"`
	Source    string                `json:"source"`
	Models    []models.ModelSummary `json:"models"`
}

// handleEntities lists entities with their quarterly values and model summary
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	engine := s.holder.Engine()
	summaries := make(map[string]models.ModelSummary)
	if m := engine.Models(); m != nil {
		for _, sum := range m.Summaries() {
			summaries[sum.Entity] = sum
		}
	}

	tbl := engine.Table()
	out := make([]entityInfo, 0, tbl.Len())
	for _, entity := range tbl.Entities() {
		info := entityInfo{Entity: entity, Values: make(map[string]string)}
		for _, c := range tbl.Columns() {
			info.Values[c] = tbl.Value(entity, models.Period(c)).String()
		}
		if sum, ok := summaries[entity]; ok {
			info.Model = &sum
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleForecast handles GET /api/forecasts/{entity}?quarter=N&model=kind
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/api/forecasts/"))
	if err != nil || strings.TrimSpace(name) == "" {
		http.Error(w, "Entity required", http.StatusBadRequest)
		return
	}

	engine := s.holder.Engine()
	entity, err := resolveEntity(engine, name)
	if errors.Is(err, table.ErrUnknownEntity) {
		http.Error(w, fmt.Sprintf("Unknown entity: %s", name), http.StatusNotFound)
		return
	}

	quarter := 5
	if v := strings.TrimSpace(r.URL.Query().Get("quarter")); v != "" {
		n, err := parseQuarter(engine.Lexicon(), v)
		if err != nil || n < 1 || n > 24 {
			http.Error(w, "quarter must be between 1 and 24", http.StatusBadRequest)
			return
		}
		quarter = n
	}

	trained := engine.Models()
	if trained == nil {
		http.Error(w, fmt.Sprintf("No model available for %s", entity), http.StatusNotFound)
		return
	}

	kind := models.ModelKind(r.URL.Query().Get("model"))
	value, used, err := trained.Predict(entity, kind, quarter)
	if errors.Is(err, mlmodel.ErrNoModel) {
		http.Error(w, fmt.Sprintf("No model available for %s", entity), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Forecast failed: %v", err), http.StatusBadRequest)
		return
	}

	best, _ := trained.Best(entity)
	resp := forecastResponse{
		Entity:  entity,
		Quarter: models.QuarterPeriod(quarter),
		Value:   value,
		Model:   used,
		Best:    best,
	}
	if v, err := engine.Table().Lookup(entity, resp.Quarter); err == nil && v.Ok() {
		resp.Observed = &v.Number
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleModels lists model summaries, from the history store when one is
// configured and from the current session otherwise
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := modelsResponse{Source: "session", Models: []models.ModelSummary{}}
	trained := s.holder.Engine().Models()
	if trained != nil {
		resp.TrainedAt = trained.TrainedAt()
		resp.Models = trained.Summaries()
	}

	if store := s.holder.Store(); store != nil {
		saved, err := store.ListModelSummaries()
		if err != nil {
			s.logger.Error("failed to list model summaries", "error", err)
			http.Error(w, "Failed to list models", http.StatusInternalServerError)
			return
		}
		resp.Source = "store"
		resp.Models = saved
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveEntity maps a path name to a table entity, exactly or through the
// resolver's aliases and fuzzy match
func resolveEntity(engine *query.Engine, name string) (string, error) {
	tbl := engine.Table()
	entity := strings.ToLower(strings.TrimSpace(name))
	_, err := tbl.Lookup(entity, models.PeriodQ1)
	if !errors.Is(err, table.ErrUnknownEntity) {
		return entity, err
	}

	canonical := engine.Resolver().Canonicalize(entity)
	if _, err := tbl.Lookup(canonical, models.PeriodQ1); err != nil {
		return "", err
	}
	return canonical, nil
}

// parseQuarter accepts a quarter index or a lexicon period phrase such as
// "next quarter"
func parseQuarter(lex *lexicon.Lexicon, v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	period, ok := lex.Lookup(v)
	if !ok {
		return 0, fmt.Errorf("unknown quarter %q", v)
	}
	return period.Index()
}
