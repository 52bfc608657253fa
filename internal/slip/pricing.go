package slip

import (
	"github.com/ayokunle/totopool/internal/domain"
)

// Combinations returns the number of outcome combinations the selections
// imply across the given matches: the product over all matches of
// max(1, selections for that match). A match with no selections
// contributes a factor of 1 so a partially filled slip still prices to a
// meaningful preview; completeness is enforced separately at submission.
func Combinations(matches []domain.Match, selections *SelectionSet) int64 {
	factor := int64(1)
	for _, m := range matches {
		if k := selections.Count(m.ID); k > 1 {
			factor *= int64(k)
		}
	}
	return factor
}

// CombinationsOf computes the same product from a selections snapshot,
// as returned by SelectionSet.Snapshot or Controller.Selections. Only
// chosen matches appear in a snapshot, so iterating the map is
// equivalent to iterating the match list.
func CombinationsOf(selections map[string][]domain.Outcome) int64 {
	factor := int64(1)
	for _, outcomes := range selections {
		if k := int64(len(outcomes)); k > 1 {
			factor *= k
		}
	}
	return factor
}

// Price computes the system price of a slip: base cost multiplied by the
// combination count. Pure integer micros arithmetic, so the value is
// reproducible bit-for-bit by the settlement authority recomputing it
// from the same inputs.
func Price(matches []domain.Match, selections *SelectionSet, base domain.Money) domain.Money {
	return base.MulInt(Combinations(matches, selections))
}
