package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGame(deadline time.Time) Game {
	return Game{
		ID:       "game-1",
		Name:     "Round 1",
		Deadline: deadline,
		Matches: []Match{
			{ID: "m1", HomeTeam: "A", AwayTeam: "B"},
			{ID: "m2", HomeTeam: "C", AwayTeam: "D"},
		},
	}
}

func TestGameOpen(t *testing.T) {
	now := time.Now()
	g := sampleGame(now.Add(time.Hour))

	assert.True(t, g.Open(now))
	assert.False(t, g.Open(now.Add(time.Hour)), "deadline instant itself is closed")
	assert.False(t, g.Open(now.Add(2*time.Hour)))
}

// Open must be callable on a Game held by value, including the
// non-addressable return value of an accessor.
func TestGameOpenOnReturnedValue(t *testing.T) {
	now := time.Now()
	byValue := func() Game { return sampleGame(now.Add(time.Minute)) }

	assert.True(t, byValue().Open(now))
}

func TestGameMatchLookup(t *testing.T) {
	g := sampleGame(time.Now().Add(time.Hour))

	m := g.Match("m2")
	require.NotNil(t, m)
	assert.Equal(t, "C", m.HomeTeam)

	assert.Nil(t, g.Match("missing"))
}
