package slip

import (
	"fmt"
	"testing"

	"github.com/ayokunle/totopool/internal/domain"
	"github.com/stretchr/testify/assert"
)

func poolMatches(n int) []domain.Match {
	matches := make([]domain.Match, n)
	for i := range matches {
		matches[i] = domain.Match{ID: fmt.Sprintf("m%d", i+1)}
	}
	return matches
}

func TestPrice_SingleSelectionPerMatch(t *testing.T) {
	matches := poolMatches(domain.MatchCount)
	s := NewSelectionSet()
	for _, m := range matches {
		s.Toggle(m.ID, domain.OutcomeHome)
	}

	// base = 1.00, 15 matches with one pick each -> price = 1.00
	base := domain.NewMoney(1_000_000, "USD")
	assert.Equal(t, int64(1_000_000), Price(matches, s, base).Amount)
}

func TestPrice_SystemMultiplication(t *testing.T) {
	matches := poolMatches(domain.MatchCount)
	s := NewSelectionSet()
	for _, m := range matches {
		s.Toggle(m.ID, domain.OutcomeHome)
	}
	base := domain.NewMoney(1_000_000, "USD")

	// One double -> price = 2.
	s.Toggle("m1", domain.OutcomeDraw)
	assert.Equal(t, int64(2_000_000), Price(matches, s, base).Amount)

	// One triple and one double -> price = 3 x 2 = 6.
	s.Toggle("m1", domain.OutcomeAway)
	s.Toggle("m2", domain.OutcomeAway)
	assert.Equal(t, int64(6_000_000), Price(matches, s, base).Amount)
}

func TestPrice_EmptyMatchContributesFactorOne(t *testing.T) {
	matches := poolMatches(3)
	s := NewSelectionSet()
	base := domain.NewMoney(500_000, "USD")

	// No selections at all: the preview price is the base cost, not zero.
	assert.Equal(t, int64(500_000), Price(matches, s, base).Amount)

	// A single double with two untouched matches still multiplies only by 2.
	s.Toggle("m1", domain.OutcomeHome)
	s.Toggle("m1", domain.OutcomeDraw)
	assert.Equal(t, int64(1_000_000), Price(matches, s, base).Amount)
}

func TestPrice_Monotonicity(t *testing.T) {
	matches := poolMatches(domain.MatchCount)
	s := NewSelectionSet()
	base := domain.NewMoney(1_000_000, "USD")

	prev := Price(matches, s, base).Amount
	// Adding outcomes never decreases the price.
	for _, m := range matches {
		for _, o := range domain.Outcomes {
			s.Toggle(m.ID, o)
			cur := Price(matches, s, base).Amount
			assert.GreaterOrEqual(t, cur, prev)
			prev = cur
		}
	}
	assert.Equal(t, int64(14_348_907_000_000), prev) // 3^15 x base

	// Removing outcomes never increases it.
	for _, m := range matches {
		s.Toggle(m.ID, domain.OutcomeDraw)
		cur := Price(matches, s, base).Amount
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestCombinationsOf_MatchesCombinations(t *testing.T) {
	matches := poolMatches(domain.MatchCount)
	s := NewSelectionSet()

	assert.Equal(t, int64(1), CombinationsOf(s.Snapshot()))

	s.Toggle("m1", domain.OutcomeHome)
	s.Toggle("m1", domain.OutcomeDraw)
	s.Toggle("m2", domain.OutcomeHome)
	s.Toggle("m2", domain.OutcomeDraw)
	s.Toggle("m2", domain.OutcomeAway)
	s.Toggle("m3", domain.OutcomeAway)

	// Both derivations of the product must agree, whichever form of the
	// selections a caller holds.
	assert.Equal(t, int64(6), CombinationsOf(s.Snapshot()))
	assert.Equal(t, Combinations(matches, s), CombinationsOf(s.Snapshot()))
}

func TestCombinations_AllTriples(t *testing.T) {
	matches := poolMatches(domain.MatchCount)
	s := NewSelectionSet()
	for _, m := range matches {
		for _, o := range domain.Outcomes {
			s.Toggle(m.ID, o)
		}
	}
	assert.Equal(t, int64(14_348_907), Combinations(matches, s)) // 3^15
}
