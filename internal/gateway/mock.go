package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ayokunle/totopool/internal/deposit"
	"github.com/ayokunle/totopool/internal/domain"
	"github.com/ayokunle/totopool/internal/slip"
	"github.com/google/uuid"
)

// MockGateway simulates the upstream pool platform for local development.
// Submissions fail ~10% of the time, deposits confirm after a few status
// polls, and a small synthetic game catalog is served.
type MockGateway struct {
	// FailureRate is the probability of a submission failure (0.0 to 1.0).
	FailureRate float64
	// ConfirmAfterPolls is how many status polls a deposit stays pending.
	ConfirmAfterPolls int

	mu    sync.Mutex
	polls map[string]int
}

// NewMockGateway creates a MockGateway with default settings.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		FailureRate:       0.1,
		ConfirmAfterPolls: 3,
		polls:             make(map[string]int),
	}
}

// OpenGames serves one synthetic round with the standard pool size.
func (g *MockGateway) OpenGames(ctx context.Context) ([]domain.Game, error) {
	matches := make([]domain.Match, domain.MatchCount)
	kickoff := time.Now().Add(2 * time.Hour)
	for i := range matches {
		matches[i] = domain.Match{
			ID:        fmt.Sprintf("mock-match-%d", i+1),
			HomeTeam:  fmt.Sprintf("Home %d", i+1),
			AwayTeam:  fmt.Sprintf("Away %d", i+1),
			KickoffAt: kickoff,
		}
	}
	return []domain.Game{{
		ID:       "mock-game-1",
		Name:     "Mock Round",
		Deadline: kickoff.Add(-15 * time.Minute),
		Matches:  matches,
	}}, nil
}

// SubmitSlip accepts the slip unless the dice say otherwise.
func (g *MockGateway) SubmitSlip(ctx context.Context, sub slip.Submission) (*slip.Receipt, error) {
	select {
	case <-time.After(time.Duration(100+rand.Intn(400)) * time.Millisecond):
	case <-ctx.Done():
		return nil, fmt.Errorf("gateway call canceled: %w", ctx.Err())
	}

	if rand.Float64() < g.FailureRate {
		return nil, &slip.RejectedError{Message: "price no longer valid, odds were republished"}
	}

	return &slip.Receipt{
		FormID: fmt.Sprintf("MOCK-%s-%05d", time.Now().Format("20060102-150405"), rand.Intn(100000)),
	}, nil
}

// InitiateDeposit issues a synthetic descriptor without a server expiry,
// exercising the client-side payment window fallback.
func (g *MockGateway) InitiateDeposit(ctx context.Context, req deposit.Request) (*deposit.Descriptor, error) {
	return &deposit.Descriptor{
		DepositID:      uuid.NewString(),
		WalletAddress:  fmt.Sprintf("mock1q%08x", rand.Uint32()),
		ExpectedAmount: req.Amount,
		Currency:       req.Currency,
		Network:        req.Network,
		PaymentURI:     fmt.Sprintf("%s:mock?amount=%s", req.Network, req.Amount),
	}, nil
}

// DepositStatus keeps a deposit pending for ConfirmAfterPolls polls,
// then confirms it.
func (g *MockGateway) DepositStatus(ctx context.Context, depositID string) (deposit.State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.polls[depositID]++
	if g.polls[depositID] > g.ConfirmAfterPolls {
		return deposit.StateConfirmed, nil
	}
	return deposit.StatePending, nil
}
