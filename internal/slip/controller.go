package slip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayokunle/totopool/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the submission lifecycle of a slip.
type State string

const (
	StateBuilding   State = "BUILDING"
	StateValidating State = "VALIDATING"
	StateSubmitting State = "SUBMITTING"
	StateSucceeded  State = "SUCCEEDED"
	StateRejected   State = "REJECTED"
)

// MatchPrediction is one match's chosen outcomes in canonical order.
type MatchPrediction struct {
	MatchID  string           `json:"match_id"`
	Outcomes []domain.Outcome `json:"outcomes"`
}

// Submission is the payload handed to the prediction collaborator. The
// price is the locally computed figure; the server recomputes and
// enforces it, the client value exists for display and as the amount to
// transmit.
type Submission struct {
	SlipID      uuid.UUID         `json:"slip_id"`
	GameID      string            `json:"game_id"`
	Predictions []MatchPrediction `json:"predictions"`
	Price       domain.Money      `json:"-"`
}

// Receipt is the collaborator's acknowledgment of an accepted slip.
type Receipt struct {
	FormID string `json:"form_id"`
}

// Submitter sends a validated slip to the prediction collaborator.
// Implementations must return *RejectedError for structured refusals.
type Submitter interface {
	SubmitSlip(ctx context.Context, sub Submission) (*Receipt, error)
}

// Controller owns one prediction slip: the selection set, the derived
// price, and the submission state machine. One controller is owned by
// exactly one client session; all methods are safe for concurrent use.
type Controller struct {
	id      uuid.UUID
	userID  string
	game    domain.Game
	base    domain.Money
	sub     Submitter
	now     func() time.Time
	created time.Time

	mu         sync.Mutex
	selections *SelectionSet
	price      domain.Money
	state      State
	gen        uint64 // bumped on Reset so an abandoned in-flight submission cannot resurrect a cleared slip
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithClock overrides the time source. Tests use this to cross deadlines
// deterministically.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// NewController creates a slip for the given game. An empty slip prices
// to the base cost: every match without selections contributes a factor
// of one.
func NewController(userID string, game domain.Game, base domain.Money, sub Submitter, opts ...ControllerOption) *Controller {
	c := &Controller{
		id:         uuid.New(),
		userID:     userID,
		game:       game,
		base:       base,
		sub:        sub,
		now:        time.Now,
		selections: NewSelectionSet(),
		state:      StateBuilding,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.created = c.now()
	c.price = Price(game.Matches, c.selections, base)
	return c
}

// ID returns the slip session identifier.
func (c *Controller) ID() uuid.UUID { return c.id }

// UserID returns the owning user.
func (c *Controller) UserID() string { return c.userID }

// Game returns the game the slip targets.
func (c *Controller) Game() domain.Game { return c.game }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Price returns the current derived price.
func (c *Controller) Price() domain.Money {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.price
}

// Selections returns a deep copy of the current selections.
func (c *Controller) Selections() map[string][]domain.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selections.Snapshot()
}

// Toggle flips an outcome for a match and synchronously recomputes the
// price. Toggling is refused while a submission is in flight. After a
// terminal submission state, a toggle returns the slip to Building.
func (c *Controller) Toggle(matchID string, outcome domain.Outcome) (domain.Money, error) {
	if !outcome.Valid() {
		return domain.Money{}, ErrInvalidOutcome
	}
	match := c.game.Match(matchID)
	if match == nil {
		return domain.Money{}, ErrUnknownMatch
	}
	if match.Cancelled {
		return domain.Money{}, ErrMatchCancelled
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSubmitting {
		return c.price, ErrSubmitInFlight
	}
	c.selections.Toggle(matchID, outcome)
	c.price = Price(c.game.Matches, c.selections, c.base)
	c.state = StateBuilding
	return c.price, nil
}

// Submit validates the slip and, if complete and on time, sends it to
// the prediction collaborator. At most one submission is in flight; a
// concurrent Submit returns ErrSubmitInFlight and changes nothing.
//
// On success the slip is cleared and the receipt returned. On rejection
// or transport failure the selections are preserved exactly so the user
// can resubmit without re-entering them.
func (c *Controller) Submit(ctx context.Context) (*Receipt, error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	c.state = StateValidating

	if missing := c.missingLocked(); len(missing) > 0 {
		c.state = StateBuilding
		c.mu.Unlock()
		return nil, &ValidationError{Reason: ReasonIncompleteSelections, MatchIDs: missing}
	}
	if !c.game.Open(c.now()) {
		c.state = StateBuilding
		c.mu.Unlock()
		return nil, &ValidationError{Reason: ReasonDeadlinePassed}
	}

	sub := Submission{
		SlipID:      c.id,
		GameID:      c.game.ID,
		Predictions: c.predictionsLocked(),
		Price:       Price(c.game.Matches, c.selections, c.base),
	}
	c.state = StateSubmitting
	gen := c.gen
	c.mu.Unlock()

	receipt, err := c.sub.SubmitSlip(ctx, sub)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// The slip was reset while the call was in flight; the session
		// owner has moved on and the response must not mutate the new slip.
		zap.L().Debug("discarding stale submission result", zap.String("slip_id", c.id.String()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		}
		return receipt, nil
	}

	if err != nil {
		c.state = StateRejected
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			return nil, rejected
		}
		zap.L().Warn("slip submission transport failure",
			zap.String("slip_id", c.id.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	c.state = StateSucceeded
	c.selections.Clear()
	c.price = domain.NewMoney(0, c.base.Currency)
	return receipt, nil
}

// Reset clears the selections and returns the slip to Building. An
// in-flight submission result arriving afterwards is discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.selections.Clear()
	c.price = Price(c.game.Matches, c.selections, c.base)
	c.state = StateBuilding
}

// missingLocked returns ids of matches with no selection, in game order.
func (c *Controller) missingLocked() []string {
	var missing []string
	for _, m := range c.game.Matches {
		if c.selections.Count(m.ID) == 0 {
			missing = append(missing, m.ID)
		}
	}
	return missing
}

// predictionsLocked builds the wire payload in game order with
// canonically sorted outcomes per match.
func (c *Controller) predictionsLocked() []MatchPrediction {
	preds := make([]MatchPrediction, 0, len(c.game.Matches))
	for _, m := range c.game.Matches {
		preds = append(preds, MatchPrediction{
			MatchID:  m.ID,
			Outcomes: c.selections.Outcomes(m.ID),
		})
	}
	return preds
}
