package slip

import (
	"github.com/ayokunle/totopool/internal/domain"
)

// SelectionSet maps match identifiers to the set of outcomes chosen for
// that match. A match with no entry has zero selections; once non-empty a
// set holds 1-3 distinct symbols. Not safe for concurrent use on its own;
// the Controller serializes access.
type SelectionSet struct {
	selections map[string]map[domain.Outcome]struct{}
}

// NewSelectionSet returns an empty selection set.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{selections: make(map[string]map[domain.Outcome]struct{})}
}

// Toggle flips the outcome for the match: selecting it when absent,
// removing it when present. Toggling twice restores the prior state
// exactly. Returns true when the outcome is selected after the call.
func (s *SelectionSet) Toggle(matchID string, outcome domain.Outcome) bool {
	set, ok := s.selections[matchID]
	if !ok {
		set = make(map[domain.Outcome]struct{})
		s.selections[matchID] = set
	}
	if _, selected := set[outcome]; selected {
		delete(set, outcome)
		if len(set) == 0 {
			delete(s.selections, matchID)
		}
		return false
	}
	set[outcome] = struct{}{}
	return true
}

// Count returns the number of outcomes selected for the match.
func (s *SelectionSet) Count(matchID string) int {
	return len(s.selections[matchID])
}

// Selected reports whether the outcome is currently chosen for the match.
func (s *SelectionSet) Selected(matchID string, outcome domain.Outcome) bool {
	_, ok := s.selections[matchID][outcome]
	return ok
}

// Outcomes returns the selections for the match in canonical (1, X, 2)
// order, as required by the submission wire format.
func (s *SelectionSet) Outcomes(matchID string) []domain.Outcome {
	set := s.selections[matchID]
	if len(set) == 0 {
		return nil
	}
	outcomes := make([]domain.Outcome, 0, len(set))
	for o := range set {
		outcomes = append(outcomes, o)
	}
	return domain.SortOutcomes(outcomes)
}

// Clear removes every selection.
func (s *SelectionSet) Clear() {
	s.selections = make(map[string]map[domain.Outcome]struct{})
}

// Snapshot returns a deep copy of the current selections keyed by match,
// each list in canonical order.
func (s *SelectionSet) Snapshot() map[string][]domain.Outcome {
	out := make(map[string][]domain.Outcome, len(s.selections))
	for matchID := range s.selections {
		out[matchID] = s.Outcomes(matchID)
	}
	return out
}
