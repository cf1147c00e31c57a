// Package extraction resolves the entity and period a question refers to.
// Resolution is pure and total: anything unrecognised comes back empty.
package extraction

import (
	"strings"

	"github.com/mimir-aip/finqa/pkg/lexicon"
	"github.com/mimir-aip/finqa/pkg/models"
)

// DefaultThreshold is the fuzzy score a match must exceed
const DefaultThreshold = 60

// Resolver extracts entities and periods from question text
type Resolver struct {
	aliases   []lexicon.Alias
	periods   []lexicon.PeriodPhrase
	entities  []string
	threshold int
}

// NewResolver builds a resolver over lex and the canonical entity list used
// for fuzzy fallback.
func NewResolver(lex *lexicon.Lexicon, entities []string, threshold int) *Resolver {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			names = append(names, e)
		}
	}
	return &Resolver{
		aliases:   lex.Aliases(),
		periods:   lex.Periods(),
		entities:  names,
		threshold: threshold,
	}
}

// Resolve returns the entity and period referenced by text; either may be empty
func (r *Resolver) Resolve(text string) (string, models.Period) {
	return r.Entity(text), r.Period(text)
}

// Period returns the code of the first vocabulary phrase found in text
func (r *Resolver) Period(text string) models.Period {
	lower := strings.ToLower(text)
	for _, p := range r.periods {
		if strings.Contains(lower, p.Phrase) {
			return p.Period
		}
	}
	return ""
}

// Periods returns every matched code in vocabulary order, without repeats
func (r *Resolver) Periods(text string) []models.Period {
	lower := strings.ToLower(text)
	seen := make(map[models.Period]bool)
	var out []models.Period
	for _, p := range r.periods {
		if strings.Contains(lower, p.Phrase) && !seen[p.Period] {
			seen[p.Period] = true
			out = append(out, p.Period)
		}
	}
	return out
}

// Entity returns the canonical entity for the first alias found in text,
// falling back to the closest known entity name when its score exceeds the
// threshold.
func (r *Resolver) Entity(text string) string {
	lower := strings.ToLower(text)
	for _, a := range r.aliases {
		if strings.Contains(lower, a.Alias) {
			return a.Entity
		}
	}

	match, score := r.Match(lower)
	if match == "" || score <= r.threshold {
		return ""
	}
	return match
}

// Canonicalize maps a name to its canonical entity; applying it to its own
// result returns the same name.
func (r *Resolver) Canonicalize(name string) string {
	return r.Entity(name)
}

// Match reports the fuzzy candidate and score for text, ignoring aliases
func (r *Resolver) Match(text string) (string, int) {
	return ExtractOne(strings.ToLower(text), r.entities)
}
