package slip

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationReason distinguishes the local pre-submission failures.
type ValidationReason string

const (
	// ReasonIncompleteSelections means at least one match has no selection.
	ReasonIncompleteSelections ValidationReason = "incomplete_selections"
	// ReasonDeadlinePassed means the game no longer accepts submissions.
	ReasonDeadlinePassed ValidationReason = "deadline_passed"
)

// ValidationError is a local validation failure. No network call was made.
type ValidationError struct {
	Reason   ValidationReason
	MatchIDs []string // matches missing a selection, for ReasonIncompleteSelections
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonIncompleteSelections:
		return fmt.Sprintf("slip is incomplete: no outcome selected for %d match(es): %s",
			len(e.MatchIDs), strings.Join(e.MatchIDs, ", "))
	case ReasonDeadlinePassed:
		return "the game deadline has passed; the slip can no longer be submitted"
	default:
		return fmt.Sprintf("slip validation failed: %s", e.Reason)
	}
}

// RejectedError carries a structured refusal from the prediction
// collaborator. Message is surfaced verbatim; Fields holds any per-field
// validation messages the server returned.
type RejectedError struct {
	Message string
	Fields  map[string]string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "submission rejected by the prediction service"
}

var (
	// ErrSubmitInFlight is returned when Submit is called while a prior
	// submission is still awaiting a response. The second intent is
	// ignored, not queued.
	ErrSubmitInFlight = errors.New("a submission is already in flight")

	// ErrSubmissionFailed is the generic fallback for unstructured
	// transport failures on the submission path. The slip is preserved
	// for retry.
	ErrSubmissionFailed = errors.New("submission failed, please try again")

	// ErrUnknownMatch is returned for a toggle against a match that is
	// not part of the slip's game.
	ErrUnknownMatch = errors.New("match is not part of this game")

	// ErrMatchCancelled is returned for a toggle against a cancelled match.
	ErrMatchCancelled = errors.New("match has been cancelled")

	// ErrInvalidOutcome is returned for a symbol outside {1, X, 2}.
	ErrInvalidOutcome = errors.New("invalid outcome symbol")
)
