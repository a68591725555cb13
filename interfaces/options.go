package interfaces

import (
	"context"
	"errors"
	"time"
)

// Gateway error conditions. Callers match these with errors.Is and surface
// them to the user as retryable prompts rather than faults.
var (
	ErrTickerNotFound   = errors.New("ticker not found")
	ErrNoChainAvailable = errors.New("no option chain available")
)

// Quote is a point-in-time price snapshot for an underlying symbol
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// OptionContract represents a single listed option contract
type OptionContract struct {
	Symbol            string    `json:"symbol"`            // Option symbol (e.g., "AAPL231215C00150000")
	UnderlyingSymbol  string    `json:"underlying_symbol"` // Underlying stock symbol
	ContractType      string    `json:"contract_type"`     // "call" or "put"
	StrikePrice       float64   `json:"strike_price"`
	ExpirationDate    time.Time `json:"expiration_date"`
	Premium           float64   `json:"premium"` // Mid of bid/ask, last trade as fallback
	Bid               float64   `json:"bid"`
	Ask               float64   `json:"ask"`
	Volume            int64     `json:"volume"`
	OpenInterest      int64     `json:"open_interest"`
	ImpliedVolatility float64   `json:"implied_volatility"`
	DTE               int       `json:"dte"` // Days to expiration
}

// OptionChain holds the call and put contracts listed for one expiration
type OptionChain struct {
	UnderlyingSymbol string            `json:"underlying_symbol"`
	UnderlyingPrice  float64           `json:"underlying_price"`
	Expiration       time.Time         `json:"expiration"`
	Timestamp        time.Time         `json:"timestamp"`
	Calls            []*OptionContract `json:"calls"`
	Puts             []*OptionContract `json:"puts"`
}

// MarketDataService defines the market data gateway boundary. It is the only
// I/O dependency of the analysis core.
type MarketDataService interface {
	// GetQuote returns the current price for a symbol. Fails with
	// ErrTickerNotFound for unknown symbols.
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	// GetExpirations returns the listed option expiration dates for a
	// symbol in ascending order, deduplicated.
	GetExpirations(ctx context.Context, symbol string) ([]time.Time, error)
	// GetChain returns the call and put contracts for one expiration.
	// Fails with ErrNoChainAvailable when nothing is listed.
	GetChain(ctx context.Context, symbol string, expiration time.Time) (*OptionChain, error)
}
