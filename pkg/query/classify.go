package query

import (
	"strings"

	"github.com/mimir-aip/finqa/pkg/models"
)

type intentRule struct {
	intent   models.Intent
	keywords []string
}

// first matching rule wins
var intentRules = []intentRule{
	{models.IntentForecast, []string{"predict", "forecast", "estimate", "next quarter", "future"}},
	{models.IntentYesNo, []string{"did", "was"}},
	{models.IntentGrowth, []string{"growth", "change"}},
	{models.IntentComparison, []string{"compare", "vs"}},
}

// Classify picks the handler for text by keyword containment. Text matching
// no rule is a plain lookup.
func Classify(text string) models.Intent {
	lower := strings.ToLower(text)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.intent
			}
		}
	}
	return models.IntentLookup
}

var forcedModels = []struct {
	phrase string
	kind   models.ModelKind
}{
	{"random forest", models.ModelKindRandomForest},
	{"average growth", models.ModelKindAverageGrowth},
	{"linear", models.ModelKindLinear},
}

// forcedModel returns the model kind named in text, or "" for the best model
func forcedModel(text string) models.ModelKind {
	for _, f := range forcedModels {
		if strings.Contains(text, f.phrase) {
			return f.kind
		}
	}
	return ""
}
