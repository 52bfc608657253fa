package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayokunle/totopool/internal/deposit"
	"github.com/ayokunle/totopool/internal/events"
	"github.com/ayokunle/totopool/internal/models"
	"github.com/ayokunle/totopool/internal/observability"
	"github.com/ayokunle/totopool/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DepositHandler exposes the crypto deposit lifecycle. Each deposit gets
// its own monitor; the monitors outlive the initiating request, so they
// run under the handler's base context rather than the request context.
type DepositHandler struct {
	requests     *deposit.RequestController
	checker      deposit.StatusChecker
	registry     *deposit.Registry
	repo         *repository.Repository
	publisher    *events.Publisher
	baseCtx      context.Context
	pollInterval time.Duration
	window       time.Duration
}

func NewDepositHandler(baseCtx context.Context, initiator deposit.Initiator, checker deposit.StatusChecker, registry *deposit.Registry, repo *repository.Repository, publisher *events.Publisher, pollInterval, window time.Duration) *DepositHandler {
	return &DepositHandler{
		requests:     deposit.NewRequestController(initiator),
		checker:      checker,
		registry:     registry,
		repo:         repo,
		publisher:    publisher,
		baseCtx:      baseCtx,
		pollInterval: pollInterval,
		window:       window,
	}
}

type createDepositRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Network  string `json:"network"`
}

type depositView struct {
	SessionID        string           `json:"session_id"`
	DepositID        string           `json:"deposit_id"`
	WalletAddress    string           `json:"wallet_address"`
	ExpectedAmount   string           `json:"expected_amount"`
	Currency         deposit.Currency `json:"currency"`
	Network          deposit.Network  `json:"network"`
	PaymentURI       string           `json:"payment_uri,omitempty"`
	State            deposit.State    `json:"state"`
	Message          string           `json:"message"`
	RemainingSeconds int64            `json:"remaining_seconds"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`
	SettledAt        *time.Time       `json:"settled_at,omitempty"`
}

func depositViewOf(s *deposit.Session) depositView {
	state := s.Monitor.State()
	view := depositView{
		SessionID:        s.ID.String(),
		State:            state,
		Message:          state.Explain(),
		RemainingSeconds: int64(s.Monitor.Remaining() / time.Second),
	}
	if desc := s.Monitor.Descriptor(); desc != nil {
		view.DepositID = desc.DepositID
		view.WalletAddress = desc.WalletAddress
		view.ExpectedAmount = desc.ExpectedAmount.String()
		view.Currency = desc.Currency
		view.Network = desc.Network
		view.PaymentURI = desc.PaymentURI
		if !desc.ExpiresAt.IsZero() {
			expires := desc.ExpiresAt
			view.ExpiresAt = &expires
		}
	}
	if settled := s.Monitor.SettledAt(); !settled.IsZero() {
		view.SettledAt = &settled
	}
	return view
}

// Create validates a deposit intent, requests payment instructions and
// starts watching the deposit. Exactly one initiation call is made; on
// failure the caller holds nothing and may retry explicitly.
func (h *DepositHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req createDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "amount, currency and network are required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "deposit/invalid-amount", "amount must be a decimal number")
		return
	}

	desc, err := h.requests.Initiate(r.Context(), amount, deposit.Currency(req.Currency), deposit.Network(req.Network))
	if err != nil {
		var pair *deposit.UnsupportedPairError
		switch {
		case errors.Is(err, deposit.ErrInvalidAmount):
			RespondError(w, r, http.StatusBadRequest, "deposit/invalid-amount", err.Error())
		case errors.As(err, &pair):
			RespondError(w, r, http.StatusBadRequest, "deposit/unsupported-pair", pair.Error())
		default:
			zap.L().Warn("deposit initiation failed", zap.Error(err))
			RespondError(w, r, http.StatusBadGateway, "deposit/initiation-failed", "could not initiate the deposit")
		}
		return
	}

	session := &deposit.Session{
		ID:        uuid.New(),
		UserID:    actor.String(),
		CreatedAt: time.Now(),
	}
	session.Monitor = deposit.NewMonitor(h.checker,
		deposit.WithPollInterval(h.pollInterval),
		deposit.WithWindow(h.window),
		deposit.WithTransitionHook(h.settlementHook(session)),
	)

	if err := session.Monitor.Watch(h.baseCtx, desc); err != nil {
		zap.L().Error("deposit watch failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "deposit/watch-failed", "could not start monitoring the deposit")
		return
	}
	h.registry.Add(session)
	observability.SetActiveMonitors(h.registry.Len())

	h.recordInitiated(r.Context(), session, desc)
	RespondJSON(w, http.StatusCreated, depositViewOf(session))
}

// settlementHook records a terminal transition and emits the settlement
// event. Runs outside the monitor lock on whichever task won the race.
func (h *DepositHandler) settlementHook(session *deposit.Session) deposit.TransitionHook {
	return func(desc deposit.Descriptor, from, to deposit.State) {
		observability.IncrementDepositTransition(string(to))

		ctx, cancel := context.WithTimeout(h.baseCtx, 5*time.Second)
		defer cancel()

		if h.repo != nil {
			if err := h.repo.SettleDeposit(ctx, desc.DepositID, string(to)); err != nil {
				zap.L().Error("record deposit settlement failed",
					zap.String("deposit_id", desc.DepositID), zap.Error(err))
			}
		}
		h.publisher.PublishDepositSettled(ctx, events.DepositSettled{
			DepositID: desc.DepositID,
			UserID:    session.UserID,
			Amount:    desc.ExpectedAmount.String(),
			Currency:  string(desc.Currency),
			Network:   string(desc.Network),
			Status:    string(to),
		})
	}
}

func (h *DepositHandler) recordInitiated(ctx context.Context, session *deposit.Session, desc *deposit.Descriptor) {
	if h.repo == nil {
		return
	}
	rec := &models.DepositRecord{
		ID:            session.ID,
		DepositID:     desc.DepositID,
		UserID:        session.UserID,
		Amount:        desc.ExpectedAmount.String(),
		Currency:      string(desc.Currency),
		Network:       string(desc.Network),
		WalletAddress: desc.WalletAddress,
		Status:        string(deposit.StatePending),
	}
	if err := h.repo.CreateDeposit(ctx, rec); err != nil {
		zap.L().Error("record deposit failed",
			zap.String("deposit_id", desc.DepositID), zap.Error(err))
	}
}

// Get returns the live state of a deposit session.
func (h *DepositHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	RespondJSON(w, http.StatusOK, depositViewOf(s))
}

// Delete cancels a deposit session. The monitor is reset so both tasks
// stop and a late status response for the old deposit is ignored. A
// still-pending deposit is recorded as cancelled.
func (h *DepositHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var depositID string
	if desc := s.Monitor.Descriptor(); desc != nil {
		depositID = desc.DepositID
	}
	wasPending := s.Monitor.State() == deposit.StatePending

	h.registry.Remove(s.ID)
	observability.SetActiveMonitors(h.registry.Len())

	if wasPending && depositID != "" {
		observability.IncrementDepositTransition(string(deposit.StateCancelled))
		if h.repo != nil {
			if err := h.repo.SettleDeposit(r.Context(), depositID, string(deposit.StateCancelled)); err != nil {
				zap.L().Error("record deposit cancellation failed",
					zap.String("deposit_id", depositID), zap.Error(err))
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// List returns the caller's deposit history.
func (h *DepositHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	if h.repo == nil {
		RespondJSON(w, http.StatusOK, map[string]any{"deposits": []models.DepositRecord{}})
		return
	}
	limit, offset := paginationParams(r)
	records, err := h.repo.ListDepositsByUser(r.Context(), actor.String(), limit, offset)
	if err != nil {
		zap.L().Error("list deposits failed", zap.Error(err))
		if status, problemType, message, ok := mapDBError(err); ok {
			RespondError(w, r, status, problemType, message)
			return
		}
		RespondError(w, r, http.StatusInternalServerError, "deposit/history-unavailable", "could not load deposit history")
		return
	}
	if records == nil {
		records = []models.DepositRecord{}
	}
	RespondJSON(w, http.StatusOK, map[string]any{"deposits": records})
}

func (h *DepositHandler) ownedSession(w http.ResponseWriter, r *http.Request) (*deposit.Session, bool) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid deposit session id")
		return nil, false
	}
	s, ok := h.registry.Get(id)
	if !ok || s.UserID != actor.String() {
		RespondError(w, r, http.StatusNotFound, "deposit/not-found", "no live deposit session with that id")
		return nil, false
	}
	return s, true
}
