package slip

import (
	"testing"

	"github.com/ayokunle/totopool/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionSet_Toggle(t *testing.T) {
	s := NewSelectionSet()

	assert.True(t, s.Toggle("m1", domain.OutcomeHome))
	assert.True(t, s.Selected("m1", domain.OutcomeHome))
	assert.Equal(t, 1, s.Count("m1"))

	// Toggling the same outcome again removes it: set symmetry.
	assert.False(t, s.Toggle("m1", domain.OutcomeHome))
	assert.False(t, s.Selected("m1", domain.OutcomeHome))
	assert.Equal(t, 0, s.Count("m1"))
}

func TestSelectionSet_ToggleIsInvolution(t *testing.T) {
	s := NewSelectionSet()
	s.Toggle("m1", domain.OutcomeHome)
	s.Toggle("m2", domain.OutcomeDraw)
	s.Toggle("m2", domain.OutcomeAway)
	before := s.Snapshot()

	s.Toggle("m2", domain.OutcomeHome)
	s.Toggle("m2", domain.OutcomeHome)

	assert.Equal(t, before, s.Snapshot())
}

func TestSelectionSet_OutcomesCanonicalOrder(t *testing.T) {
	s := NewSelectionSet()
	s.Toggle("m1", domain.OutcomeAway)
	s.Toggle("m1", domain.OutcomeHome)
	s.Toggle("m1", domain.OutcomeDraw)

	assert.Equal(t, []domain.Outcome{domain.OutcomeHome, domain.OutcomeDraw, domain.OutcomeAway}, s.Outcomes("m1"))
}

func TestSelectionSet_NoDuplicates(t *testing.T) {
	s := NewSelectionSet()
	s.Toggle("m1", domain.OutcomeHome)
	s.Toggle("m1", domain.OutcomeDraw)
	s.Toggle("m1", domain.OutcomeAway)
	require.Equal(t, 3, s.Count("m1"))

	// A fourth toggle can only remove; the set never exceeds three symbols.
	s.Toggle("m1", domain.OutcomeDraw)
	assert.Equal(t, 2, s.Count("m1"))
}

func TestSelectionSet_Clear(t *testing.T) {
	s := NewSelectionSet()
	s.Toggle("m1", domain.OutcomeHome)
	s.Toggle("m2", domain.OutcomeAway)
	s.Clear()

	assert.Equal(t, 0, s.Count("m1"))
	assert.Equal(t, 0, s.Count("m2"))
	assert.Empty(t, s.Snapshot())
}
