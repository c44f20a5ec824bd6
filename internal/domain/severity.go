package domain

import "sort"

// Severity is a KABCO injury label as it appears in the dataset.
type Severity string

const (
	SeverityNone     Severity = "O: No Injury"
	SeverityPossible Severity = "C: Possible Injury"
	SeverityMinor    Severity = "B: Suspected Minor Injury"
	SeveritySerious  Severity = "A: Suspected Serious Injury"
	SeverityKilled   Severity = "K: Killed"
	SeverityUnknown  Severity = "Unknown Injury"
)

// SeverityLevels is the five-level ranked order used by the risk matrix and tooltips.
var SeverityLevels = [5]Severity{
	SeverityNone,
	SeverityPossible,
	SeverityMinor,
	SeveritySerious,
	SeverityKilled,
}

// SeverityCategories adds the unranked "Unknown Injury" bucket to SeverityLevels.
var SeverityCategories = [6]Severity{
	SeverityNone,
	SeverityPossible,
	SeverityMinor,
	SeveritySerious,
	SeverityKilled,
	SeverityUnknown,
}

var shortLabels = map[Severity]string{
	SeverityNone:     "No",
	SeverityPossible: "Poss",
	SeverityMinor:    "Minor",
	SeveritySerious:  "Serious",
	SeverityKilled:   "Kill",
	SeverityUnknown:  "Unk",
}

// Rank returns the position of s in SeverityCategories, or -1 for labels outside it.
func (s Severity) Rank() int {
	for i, c := range SeverityCategories {
		if c == s {
			return i
		}
	}
	return -1
}

// Short returns the axis label used under matrix bars.
func (s Severity) Short() string {
	if l, ok := shortLabels[s]; ok {
		return l
	}
	return string(s)
}

// SortSeverities orders labels by rank; unranked labels follow in lexical order.
func SortSeverities(s []Severity) {
	sort.SliceStable(s, func(i, j int) bool {
		ri, rj := s[i].Rank(), s[j].Rank()
		switch {
		case ri >= 0 && rj >= 0:
			return ri < rj
		case ri >= 0:
			return true
		case rj >= 0:
			return false
		default:
			return s[i] < s[j]
		}
	})
}
