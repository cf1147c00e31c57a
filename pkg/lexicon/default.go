package lexicon

import "github.com/mimir-aip/finqa/pkg/models"

var defaultAliases = []Alias{
	{"ashish", "ashish"},
	{"faizan", "faizan ali khan"},
	{"gaurav", "gaurav dharane"},
	{"kaustubh", "kaustubh a.varde"},
	{"nitesh", "nitesh jain"},
	{"prem", "prem prabhanshu"},
	{"robin", "robin gupta"},
	{"sanjeev", "sanjeev patni"},
	{"shariq", "shariq imam"},
	{"suhail", "suhail"},
	{"udit", "udit agrawal"},
}

// First contained phrase wins; "last quarter" must stay ahead of "last".
var defaultPeriods = []PeriodPhrase{
	{"q1", models.PeriodQ1}, {"first quarter", models.PeriodQ1}, {"jan-mar", models.PeriodQ1}, {"first", models.PeriodQ1},
	{"q2", models.PeriodQ2}, {"second quarter", models.PeriodQ2}, {"apr-jun", models.PeriodQ2}, {"second", models.PeriodQ2},
	{"q3", models.PeriodQ3}, {"third quarter", models.PeriodQ3}, {"jul-sep", models.PeriodQ3}, {"third", models.PeriodQ3},
	{"q4", models.PeriodQ4}, {"fourth quarter", models.PeriodQ4}, {"oct-dec", models.PeriodQ4}, {"last quarter", models.PeriodQ4}, {"last", models.PeriodQ4},
	{"current quarter", models.PeriodQ3},
	{"next quarter", models.PeriodQ5}, {"next year", models.PeriodQ5}, {"next year q1", models.PeriodQ5},
	{"future", models.PeriodQ5}, {"q5", models.PeriodQ5},
	{"full year", models.PeriodTotal}, {"total", models.PeriodTotal},
}

// Default returns the built-in lexicon
func Default() *Lexicon {
	l, err := New(defaultAliases, defaultPeriods)
	if err != nil {
		panic("lexicon: invalid built-in vocabulary: " + err.Error())
	}
	return l
}
