package events

// Topics for the platform event stream.
const (
	TopicSlipPlaced     = "slip_placed"
	TopicDepositSettled = "deposit_settled"
)

// SlipPlaced is emitted when a slip is accepted by the prediction service.
type SlipPlaced struct {
	SlipID      string `json:"slip_id"`
	UserID      string `json:"user_id"`
	GameID      string `json:"game_id"`
	FormID      string `json:"form_id"`
	PriceMicros int64  `json:"price_micros"`
	Currency    string `json:"currency"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}

// DepositSettled is emitted when a deposit reaches a terminal state.
type DepositSettled struct {
	DepositID string `json:"deposit_id"`
	UserID    string `json:"user_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Network   string `json:"network"`
	Status    string `json:"status"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
