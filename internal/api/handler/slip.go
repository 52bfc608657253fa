package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayokunle/totopool/internal/domain"
	"github.com/ayokunle/totopool/internal/events"
	"github.com/ayokunle/totopool/internal/models"
	"github.com/ayokunle/totopool/internal/observability"
	"github.com/ayokunle/totopool/internal/repository"
	"github.com/ayokunle/totopool/internal/slip"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlipHandler exposes the slip-building and submission flow. Live slips
// are in-memory sessions; submitted slips are persisted for history.
type SlipHandler struct {
	games     *GamesHandler
	registry  *slip.Registry
	submitter slip.Submitter
	repo      *repository.Repository
	publisher *events.Publisher
	base      domain.Money
}

func NewSlipHandler(games *GamesHandler, registry *slip.Registry, submitter slip.Submitter, repo *repository.Repository, publisher *events.Publisher, base domain.Money) *SlipHandler {
	return &SlipHandler{
		games:     games,
		registry:  registry,
		submitter: submitter,
		repo:      repo,
		publisher: publisher,
		base:      base,
	}
}

type createSlipRequest struct {
	GameID string `json:"game_id"`
}

type slipView struct {
	SlipID       string                      `json:"slip_id"`
	GameID       string                      `json:"game_id"`
	State        slip.State                  `json:"state"`
	PriceMicros  int64                       `json:"price_micros"`
	Price        string                      `json:"price"`
	Currency     string                      `json:"currency"`
	Combinations int64                       `json:"combinations"`
	Selections   map[string][]domain.Outcome `json:"selections"`
}

func viewOf(c *slip.Controller) slipView {
	price := c.Price()
	selections := c.Selections()
	return slipView{
		SlipID:       c.ID().String(),
		GameID:       c.Game().ID,
		State:        c.State(),
		PriceMicros:  price.Amount,
		Price:        price.ToDecimal().StringFixed(2),
		Currency:     price.Currency,
		Combinations: slip.CombinationsOf(selections),
		Selections:   selections,
	}
}

// Create opens a new slip session against an open game.
func (h *SlipHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req createSlipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "game_id is required")
		return
	}

	game, err := h.games.findGame(r.Context(), req.GameID)
	if err != nil {
		RespondError(w, r, http.StatusBadGateway, "games/upstream-unavailable", "game catalog is unavailable")
		return
	}
	if game == nil {
		RespondError(w, r, http.StatusNotFound, "games/not-found", "no open game with that id")
		return
	}

	c := slip.NewController(actor.String(), *game, h.base, h.submitter)
	h.registry.Add(c)
	RespondJSON(w, http.StatusCreated, viewOf(c))
}

// Get returns the live state of a slip session.
func (h *SlipHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedSlip(w, r)
	if !ok {
		return
	}
	RespondJSON(w, http.StatusOK, viewOf(c))
}

type toggleRequest struct {
	MatchID string `json:"match_id"`
	Outcome string `json:"outcome"`
}

// Toggle flips one outcome on the slip and returns the recomputed price.
func (h *SlipHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedSlip(w, r)
	if !ok {
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MatchID == "" {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "match_id and outcome are required")
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "slip/invalid-outcome", err.Error())
		return
	}

	if _, err := c.Toggle(req.MatchID, outcome); err != nil {
		switch {
		case errors.Is(err, slip.ErrUnknownMatch):
			RespondError(w, r, http.StatusNotFound, "slip/unknown-match", err.Error())
		case errors.Is(err, slip.ErrMatchCancelled):
			RespondError(w, r, http.StatusConflict, "slip/match-cancelled", err.Error())
		case errors.Is(err, slip.ErrSubmitInFlight):
			RespondError(w, r, http.StatusConflict, "slip/submit-in-flight", err.Error())
		default:
			RespondError(w, r, http.StatusBadRequest, "slip/toggle-failed", err.Error())
		}
		return
	}
	RespondJSON(w, http.StatusOK, viewOf(c))
}

type submitResponse struct {
	FormID string     `json:"form_id"`
	State  slip.State `json:"state"`
}

// Submit validates and sends the slip. On success the accepted slip is
// recorded for history and a slip_placed event is emitted; failures on
// either path are logged, never surfaced, because the submission itself
// already succeeded.
func (h *SlipHandler) Submit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedSlip(w, r)
	if !ok {
		return
	}

	// Snapshot before submitting: a successful submission clears the slip.
	selections := c.Selections()
	price := c.Price()

	receipt, err := c.Submit(r.Context())
	if err != nil {
		h.respondSubmitError(w, r, err)
		return
	}
	observability.IncrementSlipSubmission("succeeded")
	h.recordSubmitted(r.Context(), c, selections, price, receipt)

	RespondJSON(w, http.StatusOK, submitResponse{FormID: receipt.FormID, State: c.State()})
}

func (h *SlipHandler) respondSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *slip.ValidationError
	var rejected *slip.RejectedError
	switch {
	case errors.As(err, &validation):
		observability.IncrementSlipSubmission("validation_failed")
		RespondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     validation.Error(),
			"reason":    validation.Reason,
			"match_ids": validation.MatchIDs,
		})
	case errors.As(err, &rejected):
		observability.IncrementSlipSubmission("rejected")
		RespondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  rejected.Message,
			"fields": rejected.Fields,
		})
	case errors.Is(err, slip.ErrSubmitInFlight):
		RespondError(w, r, http.StatusConflict, "slip/submit-in-flight", err.Error())
	default:
		observability.IncrementSlipSubmission("transport_failed")
		RespondError(w, r, http.StatusBadGateway, "slip/submission-failed", slip.ErrSubmissionFailed.Error())
	}
}

func (h *SlipHandler) recordSubmitted(ctx context.Context, c *slip.Controller, selections map[string][]domain.Outcome, price domain.Money, receipt *slip.Receipt) {
	observability.ObserveSlipCombinations(slip.CombinationsOf(selections))

	if h.repo != nil {
		rec := &models.SlipRecord{
			ID:          c.ID(),
			UserID:      c.UserID(),
			GameID:      c.Game().ID,
			Selections:  selections,
			PriceMicros: price.Amount,
			Currency:    price.Currency,
			FormID:      receipt.FormID,
		}
		if err := h.repo.CreateSlip(ctx, rec); err != nil {
			zap.L().Error("record submitted slip failed",
				zap.String("slip_id", c.ID().String()), zap.Error(err))
		}
	}

	h.publisher.PublishSlipPlaced(ctx, events.SlipPlaced{
		SlipID:      c.ID().String(),
		UserID:      c.UserID(),
		GameID:      c.Game().ID,
		FormID:      receipt.FormID,
		PriceMicros: price.Amount,
		Currency:    price.Currency,
	})
}

// Delete abandons the slip session. Any in-flight submission result is
// discarded.
func (h *SlipHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedSlip(w, r)
	if !ok {
		return
	}
	c.Reset()
	h.registry.Remove(c.ID())
	w.WriteHeader(http.StatusNoContent)
}

// List returns the caller's submitted-slip history.
func (h *SlipHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	if h.repo == nil {
		RespondJSON(w, http.StatusOK, map[string]any{"slips": []models.SlipRecord{}})
		return
	}
	limit, offset := paginationParams(r)
	records, err := h.repo.ListSlipsByUser(r.Context(), actor.String(), limit, offset)
	if err != nil {
		zap.L().Error("list slips failed", zap.Error(err))
		if status, problemType, message, ok := mapDBError(err); ok {
			RespondError(w, r, status, problemType, message)
			return
		}
		RespondError(w, r, http.StatusInternalServerError, "slip/history-unavailable", "could not load slip history")
		return
	}
	if records == nil {
		records = []models.SlipRecord{}
	}
	RespondJSON(w, http.StatusOK, map[string]any{"slips": records})
}

// ownedSlip resolves the {id} slip and enforces ownership. A slip owned
// by another user reads as not found.
func (h *SlipHandler) ownedSlip(w http.ResponseWriter, r *http.Request) (*slip.Controller, bool) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid slip id")
		return nil, false
	}
	c, ok := h.registry.Get(id)
	if !ok || c.UserID() != actor.String() {
		RespondError(w, r, http.StatusNotFound, "slip/not-found", "no live slip with that id")
		return nil, false
	}
	return c, true
}
