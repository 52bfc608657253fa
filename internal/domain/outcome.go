package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Outcome is one of the three fixed results of a pool match,
// written with the classic toto symbols: 1 (home), X (draw), 2 (away).
type Outcome string

const (
	OutcomeHome Outcome = "1"
	OutcomeDraw Outcome = "X"
	OutcomeAway Outcome = "2"
)

// Outcomes lists all valid symbols in canonical order.
var Outcomes = []Outcome{OutcomeHome, OutcomeDraw, OutcomeAway}

var outcomeRank = map[Outcome]int{
	OutcomeHome: 0,
	OutcomeDraw: 1,
	OutcomeAway: 2,
}

// ParseOutcome converts a symbol into an Outcome. Lowercase x is accepted.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1":
		return OutcomeHome, nil
	case "X":
		return OutcomeDraw, nil
	case "2":
		return OutcomeAway, nil
	default:
		return "", fmt.Errorf("invalid outcome symbol: %q", s)
	}
}

// Valid reports whether the outcome is one of the three known symbols.
func (o Outcome) Valid() bool {
	_, ok := outcomeRank[o]
	return ok
}

// SortOutcomes orders symbols canonically (1, X, 2) in place and returns
// the slice. The submission wire format requires this ordering.
func SortOutcomes(outcomes []Outcome) []Outcome {
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomeRank[outcomes[i]] < outcomeRank[outcomes[j]]
	})
	return outcomes
}
