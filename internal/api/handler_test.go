package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ayokunle/totopool/internal/api"
	"github.com/ayokunle/totopool/internal/api/handler"
	"github.com/ayokunle/totopool/internal/api/middleware"
	"github.com/ayokunle/totopool/internal/cache"
	"github.com/ayokunle/totopool/internal/config"
	"github.com/ayokunle/totopool/internal/deposit"
	"github.com/ayokunle/totopool/internal/domain"
	"github.com/ayokunle/totopool/internal/idempotency"
	"github.com/ayokunle/totopool/internal/slip"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "totopool-test"
	testJWTAudience = "totopool-api-test"
)

func TestMain(m *testing.M) {
	middleware.SetJWTSecret(testJWTSecret)
	middleware.SetJWTValidation(testJWTIssuer, testJWTAudience)
	os.Exit(m.Run())
}

// stubUpstream is a deterministic pool platform for handler tests.
type stubUpstream struct {
	mu        sync.Mutex
	game      domain.Game
	reject    *slip.RejectedError
	submitted []slip.Submission
	statuses  []deposit.State
	polls     int
}

func (s *stubUpstream) OpenGames(ctx context.Context) ([]domain.Game, error) {
	return []domain.Game{s.game}, nil
}

func (s *stubUpstream) SubmitSlip(ctx context.Context, sub slip.Submission) (*slip.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject != nil {
		return nil, s.reject
	}
	s.submitted = append(s.submitted, sub)
	return &slip.Receipt{FormID: "FORM-001"}, nil
}

func (s *stubUpstream) InitiateDeposit(ctx context.Context, req deposit.Request) (*deposit.Descriptor, error) {
	return &deposit.Descriptor{
		DepositID:      "dep-123",
		WalletAddress:  "bc1qtestwallet",
		ExpectedAmount: req.Amount,
		Currency:       req.Currency,
		Network:        req.Network,
		PaymentURI:     "bitcoin:bc1qtestwallet?amount=" + req.Amount.String(),
	}, nil
}

func (s *stubUpstream) DepositStatus(ctx context.Context, depositID string) (deposit.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polls < len(s.statuses) {
		state := s.statuses[s.polls]
		s.polls++
		return state, nil
	}
	return deposit.StatePending, nil
}

func testGame() domain.Game {
	matches := make([]domain.Match, 0, domain.MatchCount)
	for i := 1; i <= domain.MatchCount; i++ {
		matches = append(matches, domain.Match{
			ID:       fmt.Sprintf("m%d", i),
			HomeTeam: fmt.Sprintf("Home %d", i),
			AwayTeam: fmt.Sprintf("Away %d", i),
		})
	}
	return domain.Game{
		ID:       "game-1",
		Name:     "Round 34",
		Deadline: time.Now().Add(time.Hour),
		Matches:  matches,
	}
}

func setupAPI(upstream *stubUpstream) http.Handler {
	cfg := &config.Config{
		JWTSecret:          testJWTSecret,
		JWTIssuer:          testJWTIssuer,
		JWTAudience:        testJWTAudience,
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
	}
	base := domain.NewMoney(500_000, "EUR") // 0.50 EUR

	gamesHandler := handler.NewGamesHandler(upstream, cache.NewGamesCache(nil, time.Minute))
	slipHandler := handler.NewSlipHandler(gamesHandler, slip.NewRegistry(), upstream, nil, nil, base)
	depositHandler := handler.NewDepositHandler(context.Background(), upstream, upstream, deposit.NewRegistry(), nil, nil,
		5*time.Millisecond, time.Minute)

	idemStore := idempotency.NewStore(nil, nil, time.Hour)
	router := api.NewRouter(cfg, zap.NewNop(), nil, idemStore, nil, gamesHandler, slipHandler, depositHandler)
	return router.Routes()
}

func generateTestToken(userID string) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    "user",
		"iss":     testJWTIssuer,
		"aud":     testJWTAudience,
		"sub":     userID,
		"iat":     now.Unix(),
		"nbf":     now.Add(-30 * time.Second).Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	})
	tokenString, _ := token.SignedString(middleware.JWTSecret())
	return tokenString
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestListGamesIsPublic(t *testing.T) {
	h := setupAPI(&stubUpstream{game: testGame()})

	rr := doRequest(t, h, http.MethodGet, "/v1/games", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	out := decodeJSON(t, rr)
	games := out["games"].([]any)
	require.Len(t, games, 1)
}

func TestSlipRoutesRequireAuth(t *testing.T) {
	h := setupAPI(&stubUpstream{game: testGame()})

	rr := doRequest(t, h, http.MethodPost, "/v1/slips", "", map[string]string{"game_id": "game-1"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateSlipAndTogglePricing(t *testing.T) {
	h := setupAPI(&stubUpstream{game: testGame()})
	token := generateTestToken(uuid.NewString())

	rr := doRequest(t, h, http.MethodPost, "/v1/slips", token, map[string]string{"game_id": "game-1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeJSON(t, rr)
	slipID := created["slip_id"].(string)
	assert.Equal(t, "BUILDING", created["state"])
	assert.Equal(t, "0.50", created["price"])

	// Two outcomes on one match doubles the price.
	rr = doRequest(t, h, http.MethodPost, "/v1/slips/"+slipID+"/selections", token,
		map[string]string{"match_id": "m1", "outcome": "1"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doRequest(t, h, http.MethodPost, "/v1/slips/"+slipID+"/selections", token,
		map[string]string{"match_id": "m1", "outcome": "X"})
	require.Equal(t, http.StatusOK, rr.Code)
	toggled := decodeJSON(t, rr)
	assert.Equal(t, "1.00", toggled["price"])
	assert.Equal(t, float64(2), toggled["combinations"])

	// Toggling one off halves it again.
	rr = doRequest(t, h, http.MethodPost, "/v1/slips/"+slipID+"/selections", token,
		map[string]string{"match_id": "m1", "outcome": "X"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "0.50", decodeJSON(t, rr)["price"])
}

func TestToggleInvalidOutcome(t *testing.T) {
	h := setupAPI(&stubUpstream{game: testGame()})
	token := generateTestToken(uuid.NewString())

	rr := doRequest(t, h, http.MethodPost, "/v1/slips", token, map[string]string{"game_id": "game-1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	slipID := decodeJSON(t, rr)["slip_id"].(string)

	rr = doRequest(t, h, http.MethodPost, "/v1/slips/"+slipID+"/selections", token,
		map[string]string{"match_id": "m1", "outcome": "3"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/v1/slips/"+slipID+"/selections", token,
		map[string]string{"match_id": "nope", "outcome": "1"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSubmitIncompleteSlip(t *testing.T) {
	upstream := &stubUpstream{game: testGame()}
	h := setupAPI(upstream)
	token := generateTestToken(uuid.NewString())

	rr := doRequest(t, h, http.MethodPost, "/v1/slips", token, map[string]string{"game_id": "game-1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	slipID := decodeJSON(t, rr)["slip_id"].(string)

	rr = doRequest(t, h, http.MethodPost, "/v1/slips/"+slipID+"/submit", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	out := decodeJSON(t, rr)
	assert.Equal(t, "incomplete_selections", out["reason"])
	assert.Len(t, out["match_ids"].([]any), domain.MatchCount)
	assert.Empty(t, upstream.submitted, "no network call for an incomplete slip")
}

func fillSlip(t *testing.T, h http.Handler, token, slipID string) {
	t.Helper()
	for i := 1; i <= domain.MatchCount; i++ {
		rr := doRequest(t, h, http.MethodPost, "/v1/slips/"+slipID+"/selections", token,
			map[string]string{"match_id": fmt.Sprintf("m%d", i), "outcome": "1"})
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestSubmitCompleteSlip(t *testing.T) {
	upstream := &stubUpstream{game: testGame()}
	h := setupAPI(upstream)
	token := generateTestToken(uuid.NewString())

	rr := doRequest(t, h, http.MethodPost, "/v1/slips", token, map[string]string{"game_id": "game-1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	slipID := decodeJSON(t, rr)["slip_id"].(string)
	fillSlip(t, h, token, slipID)

	rr = doRequest(t, h, http.MethodPost, "/v1/slips/"+slipID+"/submit", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	out := decodeJSON(t, rr)
	assert.Equal(t, "FORM-001", out["form_id"])
	assert.Equal(t, "SUCCEEDED", out["state"])

	require.Len(t, upstream.submitted, 1)
	assert.Equal(t, "game-1", upstream.submitted[0].GameID)
	assert.Len(t, upstream.submitted[0].Predictions, domain.MatchCount)

	// Success clears the slip.
	rr = doRequest(t, h, http.MethodGet, "/v1/slips/"+slipID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cleared := decodeJSON(t, rr)
	assert.Equal(t, float64(0), cleared["price_micros"])
	assert.Empty(t, cleared["selections"])
}

func TestSubmitRejectedPreservesSelections(t *testing.T) {
	upstream := &stubUpstream{
		game:   testGame(),
		reject: &slip.RejectedError{Message: "price mismatch", Fields: map[string]string{"price": "recomputed"}},
	}
	h := setupAPI(upstream)
	token := generateTestToken(uuid.NewString())

	rr := doRequest(t, h, http.MethodPost, "/v1/slips", token, map[string]string{"game_id": "game-1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	slipID := decodeJSON(t, rr)["slip_id"].(string)
	fillSlip(t, h, token, slipID)

	rr = doRequest(t, h, http.MethodPost, "/v1/slips/"+slipID+"/submit", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	out := decodeJSON(t, rr)
	assert.Equal(t, "price mismatch", out["error"])

	// The slip is intact for resubmission.
	rr = doRequest(t, h, http.MethodGet, "/v1/slips/"+slipID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	kept := decodeJSON(t, rr)
	assert.Equal(t, "REJECTED", kept["state"])
	assert.Len(t, kept["selections"].(map[string]any), domain.MatchCount)
}

func TestSlipOwnership(t *testing.T) {
	h := setupAPI(&stubUpstream{game: testGame()})
	owner := generateTestToken(uuid.NewString())
	other := generateTestToken(uuid.NewString())

	rr := doRequest(t, h, http.MethodPost, "/v1/slips", owner, map[string]string{"game_id": "game-1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	slipID := decodeJSON(t, rr)["slip_id"].(string)

	rr = doRequest(t, h, http.MethodGet, "/v1/slips/"+slipID, other, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIdempotencyKeyRequired(t *testing.T) {
	h := setupAPI(&stubUpstream{game: testGame()})
	token := generateTestToken(uuid.NewString())

	req := httptest.NewRequest(http.MethodPost, "/v1/slips", bytes.NewBufferString(`{"game_id":"game-1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDepositLifecycle(t *testing.T) {
	upstream := &stubUpstream{
		game:     testGame(),
		statuses: []deposit.State{deposit.StatePending, deposit.StateConfirmed},
	}
	h := setupAPI(upstream)
	token := generateTestToken(uuid.NewString())

	rr := doRequest(t, h, http.MethodPost, "/v1/deposits", token,
		map[string]string{"amount": "0.05", "currency": "BTC", "network": "bitcoin"})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeJSON(t, rr)
	sessionID := created["session_id"].(string)
	assert.Equal(t, "PENDING", created["state"])
	assert.Equal(t, "bc1qtestwallet", created["wallet_address"])
	assert.Equal(t, decimal.RequireFromString("0.05").String(), created["expected_amount"])
	assert.Greater(t, created["remaining_seconds"].(float64), float64(0))

	require.Eventually(t, func() bool {
		rr := doRequest(t, h, http.MethodGet, "/v1/deposits/"+sessionID, token, nil)
		if rr.Code != http.StatusOK {
			return false
		}
		return decodeJSON(t, rr)["state"] == "CONFIRMED"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDepositUnsupportedPair(t *testing.T) {
	h := setupAPI(&stubUpstream{game: testGame()})
	token := generateTestToken(uuid.NewString())

	rr := doRequest(t, h, http.MethodPost, "/v1/deposits", token,
		map[string]string{"amount": "10", "currency": "BTC", "network": "erc20"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/v1/deposits", token,
		map[string]string{"amount": "-1", "currency": "BTC", "network": "bitcoin"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDepositCancel(t *testing.T) {
	h := setupAPI(&stubUpstream{game: testGame()})
	token := generateTestToken(uuid.NewString())

	rr := doRequest(t, h, http.MethodPost, "/v1/deposits", token,
		map[string]string{"amount": "0.05", "currency": "BTC", "network": "bitcoin"})
	require.Equal(t, http.StatusCreated, rr.Code)
	sessionID := decodeJSON(t, rr)["session_id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/v1/deposits/"+sessionID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	del := httptest.NewRecorder()
	h.ServeHTTP(del, req)
	require.Equal(t, http.StatusNoContent, del.Code)

	rr = doRequest(t, h, http.MethodGet, "/v1/deposits/"+sessionID, token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
