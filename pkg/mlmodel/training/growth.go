package training

import "github.com/mimir-aip/finqa/pkg/models"

// AverageGrowth extrapolates the mean step between the first and last
// observation: last + (last-first)/(k-1) * (x-k).
type AverageGrowth struct {
	First float64 `json:"first"`
	Last  float64 `json:"last"`
	Count int     `json:"count"`
}

// NewAverageGrowth creates an unfitted extrapolator
func NewAverageGrowth() *AverageGrowth {
	return &AverageGrowth{}
}

// Fit records the first and last values of y; x is assumed to be 1..k
func (m *AverageGrowth) Fit(x, y []float64) error {
	if err := checkSamples(x, y, 2); err != nil {
		return err
	}
	m.First, m.Last, m.Count = y[0], y[len(y)-1], len(y)
	return nil
}

// Predict extrapolates to index x
func (m *AverageGrowth) Predict(x float64) (float64, error) {
	if m.Count < 2 {
		return 0, ErrNotFitted
	}
	k := float64(m.Count)
	step := (m.Last - m.First) / (k - 1)
	return m.Last + step*(x-k), nil
}

// Kind returns models.ModelKindAverageGrowth
func (m *AverageGrowth) Kind() models.ModelKind {
	return models.ModelKindAverageGrowth
}
