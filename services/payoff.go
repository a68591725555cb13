package services

import (
	"errors"
	"fmt"
	"math"
)

// Analysis error conditions. ErrNoAffordableContracts is a recoverable
// empty-result signal, not a fault.
var (
	ErrInvalidStrategyInput  = errors.New("invalid strategy input")
	ErrInvalidTimeHorizon    = errors.New("invalid time horizon")
	ErrNoAffordableContracts = errors.New("no affordable contracts")
)

// StrategyKind identifies one of the supported single-leg strategies. The set
// is closed; dispatch is exhaustive over these four values.
type StrategyKind string

const (
	LongCall       StrategyKind = "long_call"
	LongPut        StrategyKind = "long_put"
	CoveredCall    StrategyKind = "covered_call"
	CashSecuredPut StrategyKind = "cash_secured_put"
)

// ParseStrategyKind accepts both the full strategy name and the short CLI
// codes (c, p, cc, csp).
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch s {
	case "c", "call", string(LongCall):
		return LongCall, nil
	case "p", "put", string(LongPut):
		return LongPut, nil
	case "cc", string(CoveredCall):
		return CoveredCall, nil
	case "csp", string(CashSecuredPut):
		return CashSecuredPut, nil
	}
	return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidStrategyInput, s)
}

// UsesCalls reports whether the strategy leg is a call contract.
func (k StrategyKind) UsesCalls() bool {
	return k == LongCall || k == CoveredCall
}

// Credit reports whether the strategy collects the premium (short leg).
func (k StrategyKind) Credit() bool {
	return k == CoveredCall || k == CashSecuredPut
}

// Description returns a one-line summary for menus and logs.
func (k StrategyKind) Description() string {
	switch k {
	case LongCall:
		return "Buy a call option to profit from stock price increases"
	case LongPut:
		return "Buy a put option to profit from stock price decreases"
	case CoveredCall:
		return "Own stock and sell a call option for income"
	case CashSecuredPut:
		return "Sell a put option with cash as collateral"
	}
	return string(k)
}

// PayoffConfig carries the ambient analysis parameters. It is passed
// explicitly so the payoff model stays a pure function of its inputs.
type PayoffConfig struct {
	Multiplier   float64 // shares per contract, conventionally 100
	CurveSamples int     // number of points in a generated payoff curve
	CurveSpan    float64 // fraction of the anchor price sampled on each side
}

// DefaultPayoffConfig returns the standard equity-options parameters.
func DefaultPayoffConfig() PayoffConfig {
	return PayoffConfig{
		Multiplier:   100,
		CurveSamples: 41,
		CurveSpan:    0.5,
	}
}

// SamplePrices builds the default ascending price window around an anchor
// price (typically the larger of spot and strike).
func (cfg PayoffConfig) SamplePrices(anchor float64) []float64 {
	samples := cfg.CurveSamples
	if samples < 2 {
		samples = 2
	}
	low := anchor * (1 - cfg.CurveSpan)
	if low < 0 {
		low = 0
	}
	high := anchor * (1 + cfg.CurveSpan)
	step := (high - low) / float64(samples-1)
	prices := make([]float64, samples)
	for i := range prices {
		prices[i] = low + step*float64(i)
	}
	return prices
}

// StrategyPosition describes a single-leg option position to evaluate.
// EntryPrice is the stock cost basis and is required for covered calls only.
type StrategyPosition struct {
	Kind       StrategyKind `json:"kind"`
	Strike     float64      `json:"strike"`
	Premium    float64      `json:"premium"`
	Quantity   int          `json:"quantity"`
	EntryPrice float64      `json:"entry_price,omitempty"`
	Multiplier float64      `json:"multiplier"`
}

// PayoffPoint is one sample of a payoff curve.
type PayoffPoint struct {
	UnderlyingPrice float64 `json:"underlying_price"`
	ProfitLoss      float64 `json:"profit_loss"`
}

// PayoffCurve is the P&L at expiration sampled over a price range. It is
// derived once and never mutated.
type PayoffCurve []PayoffPoint

// Validate rejects malformed positions before any computation runs.
func (p StrategyPosition) Validate() error {
	switch p.Kind {
	case LongCall, LongPut, CoveredCall, CashSecuredPut:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidStrategyInput, p.Kind)
	}
	if p.Strike <= 0 || p.Premium <= 0 {
		return fmt.Errorf("%w: strike and premium must be positive", ErrInvalidStrategyInput)
	}
	if p.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidStrategyInput)
	}
	if p.Multiplier <= 0 {
		return fmt.Errorf("%w: contract multiplier must be positive", ErrInvalidStrategyInput)
	}
	if p.Kind == CoveredCall && p.EntryPrice <= 0 {
		return fmt.Errorf("%w: covered call requires a stock entry price", ErrInvalidStrategyInput)
	}
	return nil
}

// scale is the share count the position controls.
func (p StrategyPosition) scale() float64 {
	return float64(p.Quantity) * p.Multiplier
}

// ProfitAt returns the P&L at expiration with the underlying at price s.
func (p StrategyPosition) ProfitAt(s float64) float64 {
	switch p.Kind {
	case LongCall:
		return p.scale() * (math.Max(s-p.Strike, 0) - p.Premium)
	case LongPut:
		return p.scale() * (math.Max(p.Strike-s, 0) - p.Premium)
	case CoveredCall:
		return p.scale() * (math.Min(s, p.Strike) - p.EntryPrice + p.Premium)
	case CashSecuredPut:
		return p.scale() * (p.Premium - math.Max(p.Strike-s, 0))
	}
	return 0
}

// Breakeven returns the underlying price at which the position's P&L is zero.
func (p StrategyPosition) Breakeven() float64 {
	switch p.Kind {
	case LongCall:
		return p.Strike + p.Premium
	case LongPut, CashSecuredPut:
		return p.Strike - p.Premium
	case CoveredCall:
		return p.EntryPrice - p.Premium
	}
	return 0
}

// MaxGain returns the best-case P&L. A long call has unbounded upside and
// reports +Inf; callers translate that for transport and display.
func (p StrategyPosition) MaxGain() float64 {
	switch p.Kind {
	case LongCall:
		return math.Inf(1)
	case LongPut:
		return p.scale() * (p.Strike - p.Premium)
	case CoveredCall:
		return p.scale() * (p.Strike - p.EntryPrice + p.Premium)
	case CashSecuredPut:
		return p.scale() * p.Premium
	}
	return 0
}

// MaxLoss returns the worst-case P&L as a positive dollar amount.
func (p StrategyPosition) MaxLoss() float64 {
	switch p.Kind {
	case LongCall, LongPut:
		return p.scale() * p.Premium
	case CoveredCall:
		return p.scale() * (p.EntryPrice - p.Premium)
	case CashSecuredPut:
		return p.scale() * (p.Strike - p.Premium)
	}
	return 0
}

// CapitalAtRisk returns the capital committed to open the position: the
// premium paid for long legs, the stock cost for a covered call, and the cash
// collateral for a cash-secured put.
func (p StrategyPosition) CapitalAtRisk() float64 {
	switch p.Kind {
	case LongCall, LongPut:
		return p.scale() * p.Premium
	case CoveredCall:
		return p.scale() * p.EntryPrice
	case CashSecuredPut:
		return p.scale() * p.Strike
	}
	return 0
}

// Curve samples the P&L at each price in an ascending range. The curve is
// evaluated point by point, never interpolated.
func (p StrategyPosition) Curve(prices []float64) (PayoffCurve, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: price range is empty", ErrInvalidStrategyInput)
	}
	for i := 1; i < len(prices); i++ {
		if prices[i] <= prices[i-1] {
			return nil, fmt.Errorf("%w: price range must be strictly ascending", ErrInvalidStrategyInput)
		}
	}
	curve := make(PayoffCurve, len(prices))
	for i, s := range prices {
		curve[i] = PayoffPoint{UnderlyingPrice: s, ProfitLoss: p.ProfitAt(s)}
	}
	return curve, nil
}

// AnnualizedReturn projects the return at a target price onto a 365-day
// basis: (profit / capital at risk) * (365 / days). The result is a fraction,
// not a percentage.
func (p StrategyPosition) AnnualizedReturn(targetPrice float64, daysToExpiration int) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if targetPrice <= 0 {
		return 0, fmt.Errorf("%w: target price must be positive", ErrInvalidStrategyInput)
	}
	if daysToExpiration <= 0 {
		return 0, fmt.Errorf("%w: %d days to expiration", ErrInvalidTimeHorizon, daysToExpiration)
	}
	capital := p.CapitalAtRisk()
	return (p.ProfitAt(targetPrice) / capital) * (365.0 / float64(daysToExpiration)), nil
}
