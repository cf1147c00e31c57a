package models

import "time"

// ModelKind identifies a per-entity trend model
type ModelKind string

const (
	ModelKindLinear        ModelKind = "linear_regression"
	ModelKindRandomForest  ModelKind = "random_forest"
	ModelKindAverageGrowth ModelKind = "average_growth"
)

// DisplayName returns the human-readable model name
func (k ModelKind) DisplayName() string {
	switch k {
	case ModelKindLinear:
		return "Linear Regression"
	case ModelKindRandomForest:
		return "Random Forest"
	case ModelKindAverageGrowth:
		return "Average Growth"
	default:
		return string(k)
	}
}

// ModelSummary describes the trained models of one entity
type ModelSummary struct {
	Entity          string    `json:"entity"`
	Best            ModelKind `json:"best"`
	LinearMSE       float64   `json:"linear_mse"`
	RandomForestMSE float64   `json:"random_forest_mse"`
	SampleCount     int       `json:"sample_count"`
	TrainedAt       time.Time `json:"trained_at"`
}
