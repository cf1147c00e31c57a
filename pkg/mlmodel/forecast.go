// Package mlmodel trains and serves per-entity trend models over the
// quarterly series of a table.
package mlmodel

import (
	"errors"
	"fmt"
	"time"

	"github.com/mimir-aip/finqa/pkg/mlmodel/training"
	"github.com/mimir-aip/finqa/pkg/models"
	"github.com/mimir-aip/finqa/pkg/table"
)

// ErrNoModel is returned for entities with fewer than two known values
var ErrNoModel = errors.New("no model available")

// candidates are compared by in-sample error; average growth is never chosen
var candidates = []models.ModelKind{models.ModelKindLinear, models.ModelKindRandomForest}

// EntityModels holds the fitted models of one entity
type EntityModels struct {
	Entity      string
	Regressors  map[models.ModelKind]training.Regressor
	Best        models.ModelKind
	MSE         map[models.ModelKind]float64
	SampleCount int
}

// Models maps entities to their fitted models; read-only after Train
type Models struct {
	byEntity  map[string]*EntityModels
	order     []string
	trainedAt time.Time
}

// Train fits linear, random forest and average growth models for every
// entity with at least two present q1..q4 values
func Train(tbl *table.Table, opts training.Options) (*Models, error) {
	factory := training.NewRegressorFactory(opts)
	m := &Models{
		byEntity:  make(map[string]*EntityModels),
		trainedAt: time.Now().UTC(),
	}

	for _, entity := range tbl.Entities() {
		y := tbl.Series(entity)
		if len(y) < 2 {
			continue
		}

		em, err := fitEntity(factory, entity, y)
		if err != nil {
			return nil, fmt.Errorf("failed to train models for %s: %w", entity, err)
		}
		m.byEntity[entity] = em
		m.order = append(m.order, entity)
	}

	return m, nil
}

func fitEntity(factory *training.RegressorFactory, entity string, y []float64) (*EntityModels, error) {
	x := training.IndexSeries(len(y))
	em := &EntityModels{
		Entity:      entity,
		Regressors:  make(map[models.ModelKind]training.Regressor),
		MSE:         make(map[models.ModelKind]float64),
		SampleCount: len(y),
	}

	for _, kind := range []models.ModelKind{models.ModelKindLinear, models.ModelKindRandomForest, models.ModelKindAverageGrowth} {
		r, err := factory.New(kind)
		if err != nil {
			return nil, err
		}
		if err := r.Fit(x, y); err != nil {
			return nil, fmt.Errorf("failed to fit %s: %w", kind, err)
		}
		em.Regressors[kind] = r

		mse, err := training.InSampleMSE(r, x, y)
		if err != nil {
			return nil, fmt.Errorf("failed to score %s: %w", kind, err)
		}
		em.MSE[kind] = mse
	}

	// strict comparison keeps the earlier candidate on ties
	em.Best = candidates[0]
	for _, kind := range candidates[1:] {
		if em.MSE[kind] < em.MSE[em.Best] {
			em.Best = kind
		}
	}
	return em, nil
}

// Get returns the fitted models of entity
func (m *Models) Get(entity string) (*EntityModels, error) {
	em, ok := m.byEntity[entity]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoModel, entity)
	}
	return em, nil
}

// Best returns the kind selected for entity
func (m *Models) Best(entity string) (models.ModelKind, error) {
	em, err := m.Get(entity)
	if err != nil {
		return "", err
	}
	return em.Best, nil
}

// Predict evaluates the kind model of entity at period index x. An empty
// kind uses the entity's best model.
func (m *Models) Predict(entity string, kind models.ModelKind, x int) (float64, models.ModelKind, error) {
	em, err := m.Get(entity)
	if err != nil {
		return 0, "", err
	}
	if kind == "" {
		kind = em.Best
	}

	r, ok := em.Regressors[kind]
	if !ok {
		return 0, "", fmt.Errorf("unknown model kind %q", kind)
	}
	v, err := r.Predict(float64(x))
	if err != nil {
		return 0, "", fmt.Errorf("failed to predict %s with %s: %w", entity, kind, err)
	}
	return v, kind, nil
}

// Entities returns the entities with models, in table order
func (m *Models) Entities() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of entities with models
func (m *Models) Len() int {
	return len(m.order)
}

// TrainedAt returns when the models were fitted
func (m *Models) TrainedAt() time.Time {
	return m.trainedAt
}

// Summaries describes every entity's models in table order
func (m *Models) Summaries() []models.ModelSummary {
	out := make([]models.ModelSummary, 0, len(m.order))
	for _, entity := range m.order {
		em := m.byEntity[entity]
		out = append(out, models.ModelSummary{
			Entity:          entity,
			Best:            em.Best,
			LinearMSE:       em.MSE[models.ModelKindLinear],
			RandomForestMSE: em.MSE[models.ModelKindRandomForest],
			SampleCount:     em.SampleCount,
			TrainedAt:       m.trainedAt,
		})
	}
	return out
}
