package deposit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is a supported deposit asset.
type Currency string

// Network is the chain a deposit travels on. A currency restricts which
// networks are valid; the pairing is enforced here before any request is
// sent, not left to the server alone.
type Network string

const (
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencyUSDT Currency = "USDT"
	CurrencyLTC  Currency = "LTC"

	NetworkBitcoin  Network = "bitcoin"
	NetworkERC20    Network = "erc20"
	NetworkTRC20    Network = "trc20"
	NetworkBEP20    Network = "bep20"
	NetworkLitecoin Network = "litecoin"
)

var supportedNetworks = map[Currency][]Network{
	CurrencyBTC:  {NetworkBitcoin},
	CurrencyETH:  {NetworkERC20},
	CurrencyUSDT: {NetworkERC20, NetworkTRC20, NetworkBEP20},
	CurrencyLTC:  {NetworkLitecoin},
}

// SupportedPair reports whether the currency can be deposited over the network.
func SupportedPair(c Currency, n Network) bool {
	for _, valid := range supportedNetworks[c] {
		if valid == n {
			return true
		}
	}
	return false
}

// Networks returns the valid networks for a currency.
func Networks(c Currency) []Network {
	return supportedNetworks[c]
}

// Request is a user's deposit intent. Sent once, immutable thereafter.
type Request struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
	Network  Network         `json:"network"`
}

// Descriptor is the server-issued payment instruction set. ExpiresAt is
// zero when the collaborator did not supply an authoritative expiry; the
// monitor then applies the client-side DefaultWindow.
type Descriptor struct {
	DepositID      string          `json:"deposit_id"`
	WalletAddress  string          `json:"wallet_address"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	Currency       Currency        `json:"currency"`
	Network        Network         `json:"network"`
	PaymentURI     string          `json:"payment_uri"`
	ExpiresAt      time.Time       `json:"expires_at,omitempty"`
}

// Initiator is the external deposit-initiation collaborator.
type Initiator interface {
	InitiateDeposit(ctx context.Context, req Request) (*Descriptor, error)
}

// ErrInvalidAmount is returned for non-positive deposit amounts.
var ErrInvalidAmount = errors.New("deposit amount must be positive")

// UnsupportedPairError reports a currency/network combination outside the
// supported table.
type UnsupportedPairError struct {
	Currency Currency
	Network  Network
}

func (e *UnsupportedPairError) Error() string {
	return fmt.Sprintf("currency %s cannot be deposited over network %s", e.Currency, e.Network)
}

// RequestController validates and issues deposit-initiation requests.
type RequestController struct {
	initiator Initiator
}

// NewRequestController wires the controller to its collaborator.
func NewRequestController(initiator Initiator) *RequestController {
	return &RequestController{initiator: initiator}
}

// Initiate validates the intent and issues exactly one external call.
// No retry is automatic. On error the caller holds no partial
// descriptor; it stays in the pre-initiation state.
func (c *RequestController) Initiate(ctx context.Context, amount decimal.Decimal, currency Currency, network Network) (*Descriptor, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !SupportedPair(currency, network) {
		return nil, &UnsupportedPairError{Currency: currency, Network: network}
	}

	desc, err := c.initiator.InitiateDeposit(ctx, Request{
		Amount:   amount,
		Currency: currency,
		Network:  network,
	})
	if err != nil {
		return nil, fmt.Errorf("initiate deposit: %w", err)
	}
	if desc == nil || desc.DepositID == "" {
		return nil, errors.New("deposit collaborator returned an empty descriptor")
	}
	return desc, nil
}
