// Package lexicon holds the fixed vocabularies used to read questions:
// entity aliases and period phrases. Both are ordered; the first entry
// contained in a question wins, so overlapping phrases such as
// "last quarter" and "last" must keep their relative order.
package lexicon

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mimir-aip/finqa/pkg/models"
)

// ErrUnknownPeriod is returned for a period code outside the canonical set
var ErrUnknownPeriod = errors.New("unknown period code")

// Alias maps a surface phrase to a canonical entity name
type Alias struct {
	Alias  string `yaml:"alias" json:"alias"`
	Entity string `yaml:"entity" json:"entity"`
}

// PeriodPhrase maps a surface phrase to a canonical period code
type PeriodPhrase struct {
	Phrase string        `yaml:"phrase" json:"phrase"`
	Period models.Period `yaml:"period" json:"period"`
}

// Lexicon is an immutable pair of ordered vocabularies
type Lexicon struct {
	aliases []Alias
	periods []PeriodPhrase
}

type lexiconFile struct {
	Aliases []Alias        `yaml:"aliases"`
	Periods []PeriodPhrase `yaml:"periods"`
}

// New builds a lexicon from ordered entries, normalising and validating them
func New(aliases []Alias, periods []PeriodPhrase) (*Lexicon, error) {
	l := &Lexicon{
		aliases: make([]Alias, len(aliases)),
		periods: make([]PeriodPhrase, len(periods)),
	}
	for i, a := range aliases {
		l.aliases[i] = Alias{Alias: clean(a.Alias), Entity: clean(a.Entity)}
	}
	for i, p := range periods {
		l.periods[i] = PeriodPhrase{Phrase: clean(p.Phrase), Period: models.Period(clean(string(p.Period)))}
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Load reads a lexicon from a YAML file
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML lexicon document
func Parse(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if len(f.Periods) == 0 {
		return nil, fmt.Errorf("lexicon has no period phrases")
	}
	return New(f.Aliases, f.Periods)
}

// Validate checks that every phrase maps to exactly one known target
func (l *Lexicon) Validate() error {
	seen := make(map[string]bool, len(l.aliases))
	for i, a := range l.aliases {
		if a.Alias == "" || a.Entity == "" {
			return fmt.Errorf("alias %d: alias and entity are required", i)
		}
		if seen[a.Alias] {
			return fmt.Errorf("alias %q defined more than once", a.Alias)
		}
		seen[a.Alias] = true
	}

	seen = make(map[string]bool, len(l.periods))
	for i, p := range l.periods {
		if p.Phrase == "" {
			return fmt.Errorf("period phrase %d: phrase is required", i)
		}
		if !p.Period.IsValid() {
			return fmt.Errorf("period phrase %q: %w: %s", p.Phrase, ErrUnknownPeriod, p.Period)
		}
		if seen[p.Phrase] {
			return fmt.Errorf("period phrase %q defined more than once", p.Phrase)
		}
		seen[p.Phrase] = true
	}
	return nil
}

// Aliases returns a copy of the alias vocabulary in definition order
func (l *Lexicon) Aliases() []Alias {
	out := make([]Alias, len(l.aliases))
	copy(out, l.aliases)
	return out
}

// Periods returns a copy of the period vocabulary in definition order
func (l *Lexicon) Periods() []PeriodPhrase {
	out := make([]PeriodPhrase, len(l.periods))
	copy(out, l.periods)
	return out
}

// Lookup maps an exact period phrase to its code
func (l *Lexicon) Lookup(phrase string) (models.Period, bool) {
	phrase = clean(phrase)
	for _, p := range l.periods {
		if p.Phrase == phrase {
			return p.Period, true
		}
	}
	return "", false
}

// Entities returns the distinct canonical names reachable through aliases
func (l *Lexicon) Entities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range l.aliases {
		if !seen[a.Entity] {
			seen[a.Entity] = true
			out = append(out, a.Entity)
		}
	}
	return out
}

// Marshal renders the lexicon as YAML
func (l *Lexicon) Marshal() ([]byte, error) {
	return yaml.Marshal(lexiconFile{Aliases: l.aliases, Periods: l.periods})
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
