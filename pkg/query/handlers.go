package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mimir-aip/finqa/pkg/mlmodel"
	"github.com/mimir-aip/finqa/pkg/models"
)

// forecasts are supported for quarter indices 1..maxForecastPeriod
const maxForecastPeriod = 24

var quarterToken = regexp.MustCompile(`q(\d+)`)

func fail(ans *models.Answer, kind models.FailureKind, format string, args ...any) {
	ans.Failure = kind
	ans.Text = models.FailureMarker + " " + fmt.Sprintf(format, args...)
}

// entity resolves the topic of a handler question, recording a failure
// when none is found
func (e *Engine) entity(ans *models.Answer, text string) bool {
	ans.Entity = e.resolver.Entity(text)
	if ans.Entity == "" {
		fail(ans, models.FailureTopic, "Could not identify the topic.")
		return false
	}
	return true
}

func (e *Engine) lookup(ans *models.Answer, text string) {
	entity, period := e.resolver.Resolve(text)
	ans.Entity = entity
	if period != "" {
		ans.Periods = []models.Period{period}
	}

	switch {
	case entity == "":
		fail(ans, models.FailureTopic, "Could not identify a valid topic in your question.")
		return
	case period == "":
		fail(ans, models.FailurePeriod, "Could not identify a valid quarter or time period.")
		return
	}

	v := e.table.Value(entity, period)
	if v.State == models.ValueMissing {
		fail(ans, models.FailureNotFound, "No data available for '%s' in '%s'.", entity, period.Label())
		return
	}
	ans.Text = fmt.Sprintf("%s in %s is %s.", entity, period.Label(), v)
}

// pair returns the values of the first two periods found in text
func (e *Engine) pair(ans *models.Answer, text string) (models.Value, models.Value, bool) {
	ans.Periods = e.resolver.Periods(text)
	if len(ans.Periods) < 2 {
		return models.Value{}, models.Value{}, false
	}
	return e.table.Value(ans.Entity, ans.Periods[0]), e.table.Value(ans.Entity, ans.Periods[1]), true
}

func (e *Engine) yesNo(ans *models.Answer, text string) {
	if !e.entity(ans, text) {
		return
	}

	v1, v2, ok := e.pair(ans, text)
	if ok && invalidPair(ans, v1, v2) {
		return
	}
	pct, defined := percentChange(v1, v2)
	if !ok || !defined {
		fail(ans, models.FailureNotFound, "Could not find %s data for required quarters.", ans.Entity)
		return
	}

	rose, fell := v2.Number > v1.Number, v2.Number < v1.Number
	verdict := "no"
	if (strings.Contains(text, "increase") && rose) || (strings.Contains(text, "decrease") && fell) {
		verdict = "yes"
	}
	ans.Text = fmt.Sprintf("%s %s from %s to %s (%+.2f%%). Answer: %s",
		ans.Entity, direction(v1.Number, v2.Number), v1, v2, pct, verdict)
}

func (e *Engine) growth(ans *models.Answer, text string) {
	if !e.entity(ans, text) {
		return
	}

	v1, v2, ok := e.pair(ans, text)
	if strings.Contains(text, "past year") || strings.Contains(text, "year over year") {
		ans.Periods = []models.Period{models.PeriodQ3, models.PeriodQ4}
		v1, v2, ok = e.table.Value(ans.Entity, models.PeriodQ3), e.table.Value(ans.Entity, models.PeriodQ4), true
	}

	if ok && invalidPair(ans, v1, v2) {
		return
	}
	pct, defined := percentChange(v1, v2)
	if !ok || !defined {
		fail(ans, models.FailureNotFound, "Could not compute growth for %s.", ans.Entity)
		return
	}
	ans.Text = fmt.Sprintf("%s %s by %+.2f%% from %s to %s",
		ans.Entity, direction(v1.Number, v2.Number), pct, ans.Periods[0], ans.Periods[1])
}

// invalidPair records an invalid-data failure when either value of the
// compared periods is present but not numeric
func invalidPair(ans *models.Answer, v1, v2 models.Value) bool {
	if v1.State != models.ValueInvalid && v2.State != models.ValueInvalid {
		return false
	}
	fail(ans, models.FailureInvalid, "Invalid data for %s in %s or %s.", ans.Entity, ans.Periods[0], ans.Periods[1])
	return true
}

func (e *Engine) comparison(ans *models.Answer, text string) {
	if !e.entity(ans, text) {
		return
	}

	v1, v2, ok := e.pair(ans, text)
	if !ok {
		fail(ans, models.FailureNotFound, "Could not compare values for %s.", ans.Entity)
		return
	}

	pct, defined := percentChange(v1, v2)
	if !defined {
		fail(ans, models.FailureInvalid, "Could not compare values for %s (invalid or missing numbers in %s or %s).",
			ans.Entity, ans.Periods[0], ans.Periods[1])
		return
	}

	label := "Increase"
	if pct < 0 {
		label = "Decrease"
	}
	ans.Text = fmt.Sprintf("%s changed from %s (%s) to %s (%s). %s of %+.2f%%",
		ans.Entity, v1, ans.Periods[0], v2, ans.Periods[1], label, pct)
}

func (e *Engine) forecast(ans *models.Answer, text string) {
	if !e.entity(ans, text) {
		return
	}

	period := models.PeriodQ5
	if m := quarterToken.FindStringSubmatch(text); m != nil {
		period = models.Period("q" + m[1])
	}
	ans.Periods = []models.Period{period}

	if e.models == nil {
		fail(ans, models.FailureNoModel, "No model available for %s.", ans.Entity)
		return
	}
	if _, err := e.models.Get(ans.Entity); err != nil {
		fail(ans, models.FailureNoModel, "No model available for %s.", ans.Entity)
		return
	}

	n, err := period.Index()
	if err != nil || n < 1 || n > maxForecastPeriod {
		fail(ans, models.FailureUnsupportedPeriod, "Unsupported quarter: %s.", period.Label())
		return
	}

	v, kind, err := e.models.Predict(ans.Entity, forcedModel(text), n)
	if err != nil {
		if !errors.Is(err, mlmodel.ErrNoModel) {
			e.logger.Error("forecast failed", "entity", ans.Entity, "error", err)
		}
		fail(ans, models.FailureNoModel, "No model available for %s.", ans.Entity)
		return
	}
	ans.Text = fmt.Sprintf("%s's %s predicted revenue is %.2f (using %s).",
		cases.Title(language.English).String(ans.Entity), period.Label(), v, kind.DisplayName())
}

// percentChange returns the signed change from v1 to v2 in percent. It is
// undefined when either value is not numeric or v1 is zero.
func percentChange(v1, v2 models.Value) (float64, bool) {
	if !v1.Ok() || !v2.Ok() || v1.Number == 0 {
		return 0, false
	}
	if v1.Number == v2.Number {
		return 0, true
	}
	return (v2.Number - v1.Number) / v1.Number * 100, true
}

func direction(v1, v2 float64) string {
	switch {
	case v2 > v1:
		return "increased"
	case v2 < v1:
		return "decreased"
	default:
		return "unchanged"
	}
}
