package dataset

import "strings"

// Scheme labels: the shared 3-class target space every corpus maps into.
const (
	LabelNeutral  = 0
	LabelPositive = 1
	LabelNegative = 2
)

// LabelMap maps one corpus's native label vocabulary onto the shared
// scheme. Lookups are case-insensitive and total: anything not in the map
// lands on LabelNeutral.
type LabelMap map[string]int

// Map resolves a raw label string to a scheme label.
func (m LabelMap) Map(raw string) int {
	if v, ok := m[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v
	}
	return LabelNeutral
}

// Fixed vocabularies for the known origins. Keys are lower-case because
// Map lowercases before lookup.
var (
	// emotionLabels covers the pre-labeled spreadsheet corpus, which tags
	// rows with discrete emotions rather than sentiment polarity.
	emotionLabels = LabelMap{
		"anger":        LabelNegative,
		"disgust":      LabelNegative,
		"fear":         LabelNegative,
		"pessimism":    LabelNegative,
		"sadness":      LabelNegative,
		"happiness":    LabelPositive,
		"optimism":     LabelPositive,
		"anticipation": LabelNeutral,
		"confusion":    LabelNeutral,
		"neutral":      LabelNeutral,
		"surprise":     LabelNeutral,
	}

	arsasLabels = LabelMap{
		"positive": LabelPositive,
		"pos":      LabelPositive,
		"negative": LabelNegative,
		"neg":      LabelNegative,
		"neutral":  LabelNeutral,
		"mixed":    LabelNeutral,
	}

	tsacLabels = LabelMap{
		"positive": LabelPositive,
		"negative": LabelNegative,
		"neutral":  LabelNeutral,
	}
)
