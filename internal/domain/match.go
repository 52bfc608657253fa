package domain

import "time"

// Match is a single fixture inside a pool game. Result and Cancelled are
// only ever set from the upstream game feed, never by this service.
type Match struct {
	ID        string     `json:"id"`
	HomeTeam  string     `json:"home_team"`
	AwayTeam  string     `json:"away_team"`
	KickoffAt time.Time  `json:"kickoff_at"`
	Result    *Outcome   `json:"result,omitempty"`
	Cancelled bool       `json:"cancelled,omitempty"`
}

// Game is an open pool round: a fixed-size list of matches sharing one
// submission deadline.
type Game struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Deadline time.Time `json:"deadline"`
	Matches  []Match   `json:"matches"`
}

// MatchCount is the standard pool size. Upstream games are expected to
// carry exactly this many matches; the value is informational and the
// engine prices whatever list the game actually carries.
const MatchCount = 15

// Match returns the match with the given id, or nil.
func (g *Game) Match(id string) *Match {
	for i := range g.Matches {
		if g.Matches[i].ID == id {
			return &g.Matches[i]
		}
	}
	return nil
}

// Open reports whether the game still accepts submissions at the given
// instant. Value receiver: callers often hold a Game by value (registry
// snapshots, catalog copies).
func (g Game) Open(now time.Time) bool {
	return now.Before(g.Deadline)
}
