package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mimir-aip/finqa/pkg/lexicon"
	"github.com/mimir-aip/finqa/pkg/models"
)

var testEntities = []string{"ashish", "gaurav dharane", "faizan ali khan", "robin gupta", "Acme Corporation ", "globex"}

func newTestResolver() *Resolver {
	return NewResolver(lexicon.Default(), testEntities, DefaultThreshold)
}

func TestAliasRoundTrip(t *testing.T) {
	r := newTestResolver()
	for _, a := range lexicon.Default().Aliases() {
		assert.Equal(t, a.Entity, r.Entity("How did "+strings.ToUpper(a.Alias)+" perform?"), "alias %q", a.Alias)
	}
}

func TestPeriodPhrases(t *testing.T) {
	r := newTestResolver()
	phrases := lexicon.Default().Periods()

	for i, p := range phrases {
		// a phrase is shadowed when an earlier phrase is contained in it
		want := p.Period
		for _, earlier := range phrases[:i] {
			if strings.Contains(p.Phrase, earlier.Phrase) {
				want = earlier.Period
				break
			}
		}
		assert.Equal(t, want, r.Period("revenue for "+p.Phrase), "phrase %q", p.Phrase)
	}

	assert.Equal(t, models.PeriodQ4, r.Period("what about the LAST QUARTER"))
	assert.Equal(t, models.PeriodQ1, r.Period("next year q1"), "q1 is defined first")
	assert.Equal(t, models.PeriodTotal, r.Period("full year revenue"))
	assert.Equal(t, models.Period(""), r.Period("revenue in midsummer"))
}

func TestPeriodsVocabularyOrder(t *testing.T) {
	r := newTestResolver()

	assert.Equal(t, []models.Period{models.PeriodQ2, models.PeriodQ3}, r.Periods("from Q2 to Q3"))
	assert.Equal(t, []models.Period{models.PeriodQ2, models.PeriodQ3}, r.Periods("from Q3 to Q2"))
	assert.Equal(t, []models.Period{models.PeriodQ1, models.PeriodQ4}, r.Periods("first quarter vs last quarter"))
	assert.Empty(t, r.Periods("no time words here"))
}

func TestResolve(t *testing.T) {
	r := newTestResolver()

	entity, period := r.Resolve("What is the value of Ashish in Q1?")
	assert.Equal(t, "ashish", entity)
	assert.Equal(t, models.PeriodQ1, period)

	entity, period = r.Resolve("hello")
	assert.Empty(t, entity)
	assert.Empty(t, period)
}

func TestFuzzyFallback(t *testing.T) {
	r := newTestResolver()

	assert.Equal(t, "gaurav dharane", r.Entity("Show me gaurv dharane for q3"))
	assert.Equal(t, "acme corporation", r.Entity("value of acmee corporatoin in q1"))
	assert.Equal(t, "globex", r.Entity("how much did globex make"))
	assert.Equal(t, "ashish", r.Entity("What is the value of Asish in Q1?"), "one dropped letter")
	assert.Empty(t, r.Entity("What is the value of Zorro in Q1?"))

	strict := NewResolver(lexicon.Default(), testEntities, 90)
	assert.Empty(t, strict.Entity("Show me gaurv dharane for q3"))

	empty := NewResolver(lexicon.Default(), nil, DefaultThreshold)
	assert.Empty(t, empty.Entity("Show me gaurv dharane for q3"))

	match, score := r.Match("Show me gaurv dharane for q3")
	assert.Equal(t, "gaurav dharane", match)
	assert.Greater(t, score, DefaultThreshold)
}

func TestCanonicalizeIdempotent(t *testing.T) {
	r := newTestResolver()

	inputs := append([]string{}, testEntities...)
	for _, a := range lexicon.Default().Aliases() {
		inputs = append(inputs, a.Alias, a.Entity)
	}
	for _, in := range inputs {
		once := r.Canonicalize(in)
		assert.Equal(t, once, r.Canonicalize(once), "input %q", in)
	}
}

func TestResolutionIsTotal(t *testing.T) {
	r := newTestResolver()
	for _, in := range []string{"", "   ", "???", "q", "ünïcödé", strings.Repeat("x", 500)} {
		assert.NotPanics(t, func() { r.Resolve(in) })
	}
}
