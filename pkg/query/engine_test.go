package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/finqa/pkg/mlmodel"
	"github.com/mimir-aip/finqa/pkg/mlmodel/training"
	"github.com/mimir-aip/finqa/pkg/models"
	"github.com/mimir-aip/finqa/pkg/qa"
	"github.com/mimir-aip/finqa/pkg/table"
)

const engineCSV = `Business Head,Q1,Q2,Q3,Q4
Ashish,500,550,600,650
Gaurav Dharane,150,200,180,
Faizan Ali Khan,300,,n/a,330
Robin Gupta,0,100,abc,120
Udit Agrawal,400,,,
`

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	tbl, err := table.Parse(strings.NewReader(engineCSV), "Business Head")
	require.NoError(t, err)

	m, err := mlmodel.Train(tbl, training.Options{Trees: 20, Seed: 42})
	require.NoError(t, err)

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewEngine(tbl, m, opts...)
}

func TestAnswer(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name     string
		question string
		want     string
		intent   models.Intent
		failure  models.FailureKind
	}{
		{
			name:     "lookup",
			question: "What is the value of Ashish in Q1?",
			want:     "ashish in Q1 is 500.",
			intent:   models.IntentLookup,
		},
		{
			name:     "lookup misspelled topic",
			question: "What is the value of Asish in Q1?",
			want:     "ashish in Q1 is 500.",
			intent:   models.IntentLookup,
		},
		{
			name:     "lookup zero is data",
			question: "What is the value of Robin in Q1?",
			want:     "robin gupta in Q1 is 0.",
			intent:   models.IntentLookup,
		},
		{
			name:     "lookup invalid cell returns raw text",
			question: "Robin Q3",
			want:     "robin gupta in Q3 is abc.",
			intent:   models.IntentLookup,
		},
		{
			name:     "lookup derived total",
			question: "Ashish total",
			want:     "ashish in SUM VALUE is 2300.",
			intent:   models.IntentLookup,
		},
		{
			name:     "lookup missing value",
			question: "What is the value of Faizan in Q2?",
			want:     "❌ No data available for 'faizan ali khan' in 'Q2'.",
			intent:   models.IntentLookup,
			failure:  models.FailureNotFound,
		},
		{
			name:     "lookup unknown topic",
			question: "What is the value of Zorro in Q1?",
			want:     "❌ Could not identify a valid topic in your question.",
			intent:   models.IntentLookup,
			failure:  models.FailureTopic,
		},
		{
			name:     "lookup without period",
			question: "How is Ashish doing?",
			want:     "❌ Could not identify a valid quarter or time period.",
			intent:   models.IntentLookup,
			failure:  models.FailurePeriod,
		},
		{
			name:     "yes no decreased",
			question: "Did Gaurav Dharane increase from Q2 to Q3?",
			want:     "gaurav dharane decreased from 200 to 180 (-10.00%). Answer: no",
			intent:   models.IntentYesNo,
		},
		{
			name:     "yes no confirmed decrease",
			question: "Did gaurav decrease from Q2 to Q3?",
			want:     "gaurav dharane decreased from 200 to 180 (-10.00%). Answer: yes",
			intent:   models.IntentYesNo,
		},
		{
			name:     "yes no uses vocabulary order",
			question: "Did Ashish increase from Q3 to Q1?",
			want:     "ashish increased from 500 to 600 (+20.00%). Answer: yes",
			intent:   models.IntentYesNo,
		},
		{
			name:     "yes no from zero",
			question: "Did Robin increase from Q1 to Q2?",
			want:     "❌ Could not find robin gupta data for required quarters.",
			intent:   models.IntentYesNo,
			failure:  models.FailureNotFound,
		},
		{
			name:     "yes no invalid cell",
			question: "Did Robin increase from Q3 to Q4?",
			want:     "❌ Invalid data for robin gupta in q3 or q4.",
			intent:   models.IntentYesNo,
			failure:  models.FailureInvalid,
		},
		{
			name:     "yes no unknown topic",
			question: "Did Zorro increase from Q1 to Q2?",
			want:     "❌ Could not identify the topic.",
			intent:   models.IntentYesNo,
			failure:  models.FailureTopic,
		},
		{
			name:     "growth",
			question: "What is the growth of Ashish from Q1 to Q2?",
			want:     "ashish increased by +10.00% from q1 to q2",
			intent:   models.IntentGrowth,
		},
		{
			name:     "growth past year",
			question: "Ashish growth over the past year",
			want:     "ashish increased by +8.33% from q3 to q4",
			intent:   models.IntentGrowth,
		},
		{
			name:     "growth from zero",
			question: "Robin growth from Q1 to Q2",
			want:     "❌ Could not compute growth for robin gupta.",
			intent:   models.IntentGrowth,
			failure:  models.FailureNotFound,
		},
		{
			name:     "growth invalid cell",
			question: "Robin growth from Q3 to Q4",
			want:     "❌ Invalid data for robin gupta in q3 or q4.",
			intent:   models.IntentGrowth,
			failure:  models.FailureInvalid,
		},
		{
			name:     "comparison",
			question: "Compare Ashish Q4 vs Q1",
			want:     "ashish changed from 500 (q1) to 650 (q4). Increase of +30.00%",
			intent:   models.IntentComparison,
		},
		{
			name:     "comparison invalid",
			question: "Compare Robin Q2 vs Q3",
			want:     "❌ Could not compare values for robin gupta (invalid or missing numbers in q2 or q3).",
			intent:   models.IntentComparison,
			failure:  models.FailureInvalid,
		},
		{
			name:     "comparison single period",
			question: "Compare Robin Q2",
			want:     "❌ Could not compare values for robin gupta.",
			intent:   models.IntentComparison,
			failure:  models.FailureNotFound,
		},
		{
			name:     "forecast explicit quarter",
			question: "Forecast Ashish for Q5",
			want:     "Ashish's Q5 predicted revenue is 700.00 (using Linear Regression).",
			intent:   models.IntentForecast,
		},
		{
			name:     "forecast relative quarter",
			question: "What is the forecast for Ashish next quarter?",
			want:     "Ashish's Q5 predicted revenue is 700.00 (using Linear Regression).",
			intent:   models.IntentForecast,
		},
		{
			name:     "forecast forced model",
			question: "Forecast Ashish Q6 using average growth",
			want:     "Ashish's Q6 predicted revenue is 750.00 (using Average Growth).",
			intent:   models.IntentForecast,
		},
		{
			name:     "forecast next year",
			question: "Predict Gaurav Dharane for Q1 next year",
			want:     "Gaurav Dharane's Q9 predicted revenue is ",
			intent:   models.IntentForecast,
		},
		{
			name:     "forecast without model",
			question: "Predict Udit for Q5",
			want:     "❌ No model available for udit agrawal.",
			intent:   models.IntentForecast,
			failure:  models.FailureNoModel,
		},
		{
			name:     "forecast unsupported quarter",
			question: "Predict Ashish for Q30",
			want:     "❌ Unsupported quarter: Q30.",
			intent:   models.IntentForecast,
			failure:  models.FailureUnsupportedPeriod,
		},
		{
			name:     "forecast quarter index out of int range",
			question: "Predict Ashish for Q99999999999999999999",
			want:     "❌ Unsupported quarter: Q99999999999999999999.",
			intent:   models.IntentForecast,
			failure:  models.FailureUnsupportedPeriod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ans := e.Respond(context.Background(), tt.question)
			if strings.HasSuffix(tt.want, " ") {
				assert.True(t, strings.HasPrefix(ans.Text, tt.want), ans.Text)
			} else {
				assert.Equal(t, tt.want, ans.Text)
			}
			assert.Equal(t, tt.intent, ans.Intent)
			assert.Equal(t, tt.failure, ans.Failure)
			assert.Equal(t, tt.failure != models.FailureNone, strings.HasPrefix(ans.Text, models.FailureMarker))
		})
	}
}

func TestAnswerMatchesRespond(t *testing.T) {
	e := newTestEngine(t)
	q := "What is the value of Ashish in Q1?"
	assert.Equal(t, e.Respond(context.Background(), q).Text, e.Answer(q))
}

func TestGrowthPercentageProperty(t *testing.T) {
	e := newTestEngine(t)

	pairs := [][2]models.Period{{models.PeriodQ1, models.PeriodQ2}, {models.PeriodQ1, models.PeriodQ4}, {models.PeriodQ2, models.PeriodQ3}}
	for _, entity := range []string{"ashish", "gaurav dharane"} {
		for _, p := range pairs {
			ans := e.Respond(context.Background(), entity+" growth from "+string(p[0])+" to "+string(p[1]))
			if ans.Failed() {
				continue
			}
			v1 := e.Table().Value(entity, p[0]).Number
			v2 := e.Table().Value(entity, p[1]).Number

			pct, ok := percentChange(models.Present(v1), models.Present(v2))
			require.True(t, ok)
			assert.InDelta(t, v2, v1*(1+pct/100), 1e-9)
			assert.Contains(t, ans.Text, direction(v1, v2))
			if v2 > v1 {
				assert.Contains(t, ans.Text, "+")
			}
		}
	}
}

func TestFallback(t *testing.T) {
	var calls int
	f := qa.Func(func(_ context.Context, chunks []string, q string) (string, error) {
		calls++
		require.NotEmpty(t, chunks)
		assert.Contains(t, chunks[0], "ashish")
		return "Ashish leads with 650.", nil
	})
	e := newTestEngine(t, WithFallback(f))

	ans := e.Respond(context.Background(), "Who had the highest revenue?")
	assert.Equal(t, "Ashish leads with 650.", ans.Text)
	assert.Equal(t, models.IntentFallback, ans.Intent)
	assert.False(t, ans.Failed())
	assert.Equal(t, 1, calls)

	// data absence is answered by the handlers
	ans = e.Respond(context.Background(), "What is the value of Faizan in Q2?")
	assert.Equal(t, models.FailureNotFound, ans.Failure)
	assert.Equal(t, 1, calls)
}

func TestFallbackErrorKeepsFailure(t *testing.T) {
	f := qa.Func(func(context.Context, []string, string) (string, error) {
		return "", errors.New("quota exceeded")
	})
	e := newTestEngine(t, WithFallback(f))

	ans := e.Respond(context.Background(), "Who had the highest revenue?")
	assert.Equal(t, "❌ Could not identify a valid topic in your question.", ans.Text)
	assert.Equal(t, models.FailureTopic, ans.Failure)
}

func TestForecastWithoutModels(t *testing.T) {
	tbl, err := table.Parse(strings.NewReader(engineCSV), "Business Head")
	require.NoError(t, err)
	e := NewEngine(tbl, nil)

	assert.Equal(t, "❌ No model available for ashish.", e.Answer("Forecast Ashish for Q5"))
}

func TestMaxPeriodOption(t *testing.T) {
	e := newTestEngine(t, WithMaxPeriod(8))
	ans := e.Respond(context.Background(), "Forecast Ashish next quarter")
	assert.Equal(t, "Forecast Ashish Q9", ans.Normalized)
	assert.Equal(t, []models.Period{"q9"}, ans.Periods)
}

func TestResolutionNeverPanics(t *testing.T) {
	e := newTestEngine(t)
	for _, q := range []string{"", "?", "did", "forecast", "compare vs", "growth change", "q0", "q99999999999999999999 forecast ashish"} {
		assert.NotPanics(t, func() { e.Answer(q) }, q)
	}
}

func TestRespondLogsRejectedCandidate(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newTestEngine(t, WithLogger(logger))

	ans := e.Respond(context.Background(), "What is the value of Zorro in Q1?")
	require.Equal(t, models.FailureTopic, ans.Failure)
	assert.Contains(t, buf.String(), `msg="no entity above threshold" candidate="robin gupta" score=48 threshold=60`)
}
