package training

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/mimir-aip/finqa/pkg/models"
)

// ErrNotFitted is returned by Predict before a successful Fit
var ErrNotFitted = errors.New("model not fitted")

// Regressor is a single-feature trend model fitted on (index, value) pairs
type Regressor interface {
	// Fit trains the model on x and y, which must have equal length
	Fit(x, y []float64) error

	// Predict returns the model output at x
	Predict(x float64) (float64, error)

	// Kind returns the model kind this regressor implements
	Kind() models.ModelKind
}

// Options controls regressor construction
type Options struct {
	Trees int
	Seed  int64
}

// DefaultOptions returns 100 trees seeded with 42
func DefaultOptions() Options {
	return Options{Trees: 100, Seed: 42}
}

// RegressorFactory creates regressors for each model kind
type RegressorFactory struct {
	builders map[models.ModelKind]func() Regressor
}

// NewRegressorFactory creates a factory with every supported kind registered
func NewRegressorFactory(opts Options) *RegressorFactory {
	if opts.Trees <= 0 {
		opts.Trees = DefaultOptions().Trees
	}

	factory := &RegressorFactory{
		builders: make(map[models.ModelKind]func() Regressor),
	}
	factory.builders[models.ModelKindLinear] = func() Regressor { return NewLinearRegression() }
	factory.builders[models.ModelKindRandomForest] = func() Regressor { return NewRandomForest(opts.Trees, opts.Seed) }
	factory.builders[models.ModelKindAverageGrowth] = func() Regressor { return NewAverageGrowth() }

	return factory
}

// New returns an unfitted regressor for kind
func (f *RegressorFactory) New(kind models.ModelKind) (Regressor, error) {
	build, ok := f.builders[kind]
	if !ok {
		return nil, fmt.Errorf("no regressor available for model kind: %s", kind)
	}
	return build(), nil
}

// MSE returns the mean squared error between actual and predicted
func MSE(actual, predicted []float64) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("length mismatch: %d actual, %d predicted", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return 0, fmt.Errorf("no samples")
	}
	d := floats.Distance(actual, predicted, 2)
	return d * d / float64(len(actual)), nil
}

// InSampleMSE scores a fitted r against its own training points
func InSampleMSE(r Regressor, x, y []float64) (float64, error) {
	predicted := make([]float64, len(x))
	for i, xi := range x {
		p, err := r.Predict(xi)
		if err != nil {
			return 0, fmt.Errorf("failed to predict sample %d: %w", i, err)
		}
		predicted[i] = p
	}
	return MSE(y, predicted)
}

// IndexSeries returns 1..n as floats
func IndexSeries(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i + 1)
	}
	return x
}

func checkSamples(x, y []float64, min int) error {
	if len(x) != len(y) {
		return fmt.Errorf("x and y must have same number of samples")
	}
	if len(x) < min {
		return fmt.Errorf("need at least %d samples, got %d", min, len(x))
	}
	return nil
}
