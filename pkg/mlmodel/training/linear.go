package training

import (
	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/finqa/pkg/models"
)

// LinearRegression is an ordinary least squares line fit
type LinearRegression struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	fitted    bool
}

// NewLinearRegression creates an unfitted linear model
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit estimates intercept and slope with gonum's least squares
func (m *LinearRegression) Fit(x, y []float64) error {
	if err := checkSamples(x, y, 1); err != nil {
		return err
	}
	if len(x) == 1 {
		m.Intercept, m.Slope = y[0], 0
	} else {
		m.Intercept, m.Slope = stat.LinearRegression(x, y, nil, false)
	}
	m.fitted = true
	return nil
}

// Predict evaluates the fitted line at x
func (m *LinearRegression) Predict(x float64) (float64, error) {
	if !m.fitted {
		return 0, ErrNotFitted
	}
	return m.Intercept + m.Slope*x, nil
}

// Kind returns models.ModelKindLinear
func (m *LinearRegression) Kind() models.ModelKind {
	return models.ModelKindLinear
}
