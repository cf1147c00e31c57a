package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/finqa/pkg/models"
)

func TestDefaultLexicon(t *testing.T) {
	l := Default()
	require.NoError(t, l.Validate())

	p, ok := l.Lookup("Last Quarter")
	require.True(t, ok)
	assert.Equal(t, models.PeriodQ4, p)

	p, ok = l.Lookup("full year")
	require.True(t, ok)
	assert.Equal(t, models.PeriodTotal, p)

	_, ok = l.Lookup("midsummer")
	assert.False(t, ok)

	assert.Contains(t, l.Entities(), "gaurav dharane")
	assert.Len(t, l.Entities(), 11)
}

func TestDefaultPeriodOrder(t *testing.T) {
	phrases := Default().Periods()
	index := func(phrase string) int {
		for i, p := range phrases {
			if p.Phrase == phrase {
				return i
			}
		}
		return -1
	}
	assert.Less(t, index("last quarter"), index("last"))
	assert.Less(t, index("first quarter"), index("first"))
	assert.Equal(t, "q1", phrases[0].Phrase)
}

func TestAccessorsReturnCopies(t *testing.T) {
	l := Default()
	aliases := l.Aliases()
	aliases[0].Entity = "mutated"
	assert.Equal(t, "ashish", l.Aliases()[0].Entity)

	periods := l.Periods()
	periods[0].Period = models.PeriodQ4
	assert.Equal(t, models.PeriodQ1, l.Periods()[0].Period)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		aliases []Alias
		periods []PeriodPhrase
		wantErr string
	}{
		{
			name:    "empty alias",
			aliases: []Alias{{Alias: " ", Entity: "x"}},
			periods: []PeriodPhrase{{Phrase: "q1", Period: models.PeriodQ1}},
			wantErr: "alias and entity are required",
		},
		{
			name:    "duplicate alias after normalisation",
			aliases: []Alias{{Alias: "Bob", Entity: "bob"}, {Alias: "bob ", Entity: "robert"}},
			periods: []PeriodPhrase{{Phrase: "q1", Period: models.PeriodQ1}},
			wantErr: "defined more than once",
		},
		{
			name:    "unknown period code",
			periods: []PeriodPhrase{{Phrase: "q9", Period: "q9"}},
			wantErr: "unknown period code",
		},
		{
			name:    "duplicate phrase",
			periods: []PeriodPhrase{{Phrase: "q1", Period: models.PeriodQ1}, {Phrase: "Q1", Period: models.PeriodQ2}},
			wantErr: "defined more than once",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.aliases, tt.periods)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUnknownPeriodIsSentinel(t *testing.T) {
	_, err := New(nil, []PeriodPhrase{{Phrase: "later", Period: "q7"}})
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestLoadYAML(t *testing.T) {
	doc := `
aliases:
  - alias: Acme
    entity: Acme Corp
  - alias: globex
    entity: globex
periods:
  - phrase: opening quarter
    period: q1
  - phrase: q1
    period: q1
  - phrase: whole year
    period: sum value
`
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	l, err := Load(path)
	require.NoError(t, err)

	aliases := l.Aliases()
	require.Len(t, aliases, 2)
	assert.Equal(t, Alias{Alias: "acme", Entity: "acme corp"}, aliases[0])

	p, ok := l.Lookup("whole year")
	require.True(t, ok)
	assert.Equal(t, models.PeriodTotal, p)
}

func TestMarshalRoundTripKeepsOrder(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)

	l, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default().Periods(), l.Periods())
	assert.Equal(t, Default().Aliases(), l.Aliases())
}

func TestParseRequiresPeriods(t *testing.T) {
	_, err := Parse([]byte("aliases: []\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
