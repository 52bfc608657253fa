package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ayokunle/totopool/internal/deposit"
	"github.com/ayokunle/totopool/internal/domain"
	"github.com/ayokunle/totopool/internal/slip"
	"go.uber.org/zap"
)

// Client talks to the pool platform's upstream API. It implements
// slip.Submitter, deposit.Initiator, deposit.StatusChecker and
// GameCatalog over plain JSON request/response pairs.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client from an explicit configuration.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type openGamesResponse struct {
	Games []domain.Game `json:"games"`
}

// OpenGames fetches the currently open pool games.
func (c *Client) OpenGames(ctx context.Context) ([]domain.Game, error) {
	var out openGamesResponse
	if err := c.get(ctx, "/games/open", &out); err != nil {
		return nil, fmt.Errorf("open games lookup: %w", err)
	}
	return out.Games, nil
}

type submitSlipRequest struct {
	GameID      string                 `json:"game_id"`
	Predictions []slip.MatchPrediction `json:"predictions"`
	PriceMicros int64                  `json:"price_micros"`
	Currency    string                 `json:"currency"`
}

type submitSlipResponse struct {
	FormID string `json:"form_id"`
}

type rejectionBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// SubmitSlip sends a validated slip. A structured 4xx refusal becomes a
// *slip.RejectedError carrying the server message verbatim; anything
// else surfaces as a plain error for the controller's generic fallback.
func (c *Client) SubmitSlip(ctx context.Context, sub slip.Submission) (*slip.Receipt, error) {
	req := submitSlipRequest{
		GameID:      sub.GameID,
		Predictions: sub.Predictions,
		PriceMicros: sub.Price.Amount,
		Currency:    sub.Price.Currency,
	}

	resp, body, err := c.post(ctx, "/predictions", req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var rej rejectionBody
		if json.Unmarshal(body, &rej) == nil && rej.Message != "" {
			return nil, &slip.RejectedError{Message: rej.Message, Fields: rej.Fields}
		}
		return nil, fmt.Errorf("prediction service refused the slip: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("prediction service error: status %d", resp.StatusCode)
	}

	var out submitSlipResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode submission response: %w", err)
	}
	return &slip.Receipt{FormID: out.FormID}, nil
}

type initiateDepositRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Network  string `json:"network"`
}

// InitiateDeposit requests payment instructions for a deposit intent.
func (c *Client) InitiateDeposit(ctx context.Context, req deposit.Request) (*deposit.Descriptor, error) {
	payload := initiateDepositRequest{
		Amount:   req.Amount.String(),
		Currency: string(req.Currency),
		Network:  string(req.Network),
	}

	resp, body, err := c.post(ctx, "/deposits", payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("deposit service error: status %d", resp.StatusCode)
	}

	var desc deposit.Descriptor
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, fmt.Errorf("decode deposit descriptor: %w", err)
	}
	return &desc, nil
}

type depositStatusResponse struct {
	Status string `json:"status"`
}

// DepositStatus polls the lifecycle state of a deposit. An unrecognized
// status string is reported as still pending; the monitor keeps polling.
func (c *Client) DepositStatus(ctx context.Context, depositID string) (deposit.State, error) {
	var out depositStatusResponse
	if err := c.get(ctx, "/deposits/"+depositID+"/status", &out); err != nil {
		return "", err
	}
	state, ok := deposit.ParseState(out.Status)
	if !ok {
		zap.L().Debug("unrecognized deposit status, treating as pending",
			zap.String("deposit_id", depositID), zap.String("status", out.Status))
		return deposit.StatePending, nil
	}
	return state, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("call upstream: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, body, nil
}

func (c *Client) decorate(req *http.Request) {
	if c.cfg.SendCredentials && c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}
}
