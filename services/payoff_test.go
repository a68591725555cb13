package services

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < eps
}

// longCall returns a valid long call position for tests.
func longCall(strike, premium float64, qty int) StrategyPosition {
	return StrategyPosition{
		Kind:       LongCall,
		Strike:     strike,
		Premium:    premium,
		Quantity:   qty,
		Multiplier: 100,
	}
}

// TestMaxLossEqualsPremiumPaid verifies the long-leg invariant: the most a
// long call or put can lose is exactly the premium paid.
func TestMaxLossEqualsPremiumPaid(t *testing.T) {
	cases := []struct {
		kind    StrategyKind
		strike  float64
		premium float64
		qty     int
	}{
		{LongCall, 185, 8.20, 1},
		{LongCall, 50, 0.35, 10},
		{LongPut, 185, 8.20, 1},
		{LongPut, 420.5, 12.75, 3},
	}
	for _, tc := range cases {
		p := StrategyPosition{Kind: tc.kind, Strike: tc.strike, Premium: tc.premium, Quantity: tc.qty, Multiplier: 100}
		want := float64(tc.qty) * 100 * tc.premium
		if got := p.MaxLoss(); !approx(got, want) {
			t.Errorf("%s strike=%.2f premium=%.2f qty=%d: MaxLoss=%.4f, want %.4f",
				tc.kind, tc.strike, tc.premium, tc.qty, got, want)
		}
	}
}

// TestLongCallBreakevenZeroProfit verifies P&L is zero at the breakeven price
// for a range of strikes and premiums.
func TestLongCallBreakevenZeroProfit(t *testing.T) {
	cases := []struct {
		strike  float64
		premium float64
	}{
		{185, 8.20},
		{100, 1.25},
		{42.5, 0.05},
		{1000, 99.99},
	}
	for _, tc := range cases {
		p := longCall(tc.strike, tc.premium, 1)
		if got := p.ProfitAt(p.Breakeven()); !approx(got, 0) {
			t.Errorf("strike=%.2f premium=%.2f: P&L at breakeven = %.6f, want 0", tc.strike, tc.premium, got)
		}
	}
}

// TestCoveredCallMonotonic verifies the covered call P&L is non-decreasing
// below the strike and flat at or above it.
func TestCoveredCallMonotonic(t *testing.T) {
	p := StrategyPosition{
		Kind:       CoveredCall,
		Strike:     200,
		Premium:    4.50,
		Quantity:   1,
		EntryPrice: 191.52,
		Multiplier: 100,
	}

	prev := p.ProfitAt(0)
	for s := 1.0; s < p.Strike; s++ {
		cur := p.ProfitAt(s)
		if cur < prev-eps {
			t.Fatalf("P&L decreased below strike: P(%.0f)=%.4f < P(%.0f)=%.4f", s, cur, s-1, prev)
		}
		prev = cur
	}

	capped := p.ProfitAt(p.Strike)
	for _, s := range []float64{p.Strike, p.Strike + 1, p.Strike + 50, p.Strike * 2} {
		if got := p.ProfitAt(s); !approx(got, capped) {
			t.Errorf("P&L not constant above strike: P(%.0f)=%.4f, want %.4f", s, got, capped)
		}
	}
}

// TestBreakevens checks the breakeven formula for each strategy.
func TestBreakevens(t *testing.T) {
	cases := []struct {
		name string
		pos  StrategyPosition
		want float64
	}{
		{"long call", longCall(185, 8.20, 1), 193.20},
		{"long put", StrategyPosition{Kind: LongPut, Strike: 185, Premium: 8.20, Quantity: 1, Multiplier: 100}, 176.80},
		{"covered call", StrategyPosition{Kind: CoveredCall, Strike: 200, Premium: 4.50, Quantity: 1, EntryPrice: 191.52, Multiplier: 100}, 187.02},
		{"cash secured put", StrategyPosition{Kind: CashSecuredPut, Strike: 180, Premium: 3.10, Quantity: 1, Multiplier: 100}, 176.90},
	}
	for _, tc := range cases {
		if got := tc.pos.Breakeven(); !approx(got, tc.want) {
			t.Errorf("%s: Breakeven=%.4f, want %.4f", tc.name, got, tc.want)
		}
	}
}

// TestMaxGain checks the capped strategies and the long call's unbounded
// upside.
func TestMaxGain(t *testing.T) {
	if got := longCall(185, 8.20, 1).MaxGain(); !math.IsInf(got, 1) {
		t.Errorf("long call MaxGain=%.2f, want +Inf", got)
	}

	put := StrategyPosition{Kind: LongPut, Strike: 185, Premium: 8.20, Quantity: 2, Multiplier: 100}
	if got, want := put.MaxGain(), 2*100*(185-8.20); !approx(got, want) {
		t.Errorf("long put MaxGain=%.2f, want %.2f", got, want)
	}

	cc := StrategyPosition{Kind: CoveredCall, Strike: 200, Premium: 4.50, Quantity: 1, EntryPrice: 191.52, Multiplier: 100}
	if got, want := cc.MaxGain(), 100*(200-191.52+4.50); !approx(got, want) {
		t.Errorf("covered call MaxGain=%.2f, want %.2f", got, want)
	}

	csp := StrategyPosition{Kind: CashSecuredPut, Strike: 180, Premium: 3.10, Quantity: 1, Multiplier: 100}
	if got, want := csp.MaxGain(), 100*3.10; !approx(got, want) {
		t.Errorf("cash secured put MaxGain=%.2f, want %.2f", got, want)
	}
}

// TestValidateRejectsMalformedInput verifies validation fires before any
// computation for non-positive strike, premium or quantity.
func TestValidateRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		pos  StrategyPosition
	}{
		{"zero strike", longCall(0, 8.20, 1)},
		{"negative premium", longCall(185, -1, 1)},
		{"zero quantity", longCall(185, 8.20, 0)},
		{"zero multiplier", StrategyPosition{Kind: LongCall, Strike: 185, Premium: 8.20, Quantity: 1}},
		{"unknown strategy", StrategyPosition{Kind: "straddle", Strike: 185, Premium: 8.20, Quantity: 1, Multiplier: 100}},
		{"covered call without entry price", StrategyPosition{Kind: CoveredCall, Strike: 200, Premium: 4.50, Quantity: 1, Multiplier: 100}},
	}
	for _, tc := range cases {
		if err := tc.pos.Validate(); !errors.Is(err, ErrInvalidStrategyInput) {
			t.Errorf("%s: Validate() = %v, want ErrInvalidStrategyInput", tc.name, err)
		}
	}
}

// TestCurve verifies sampling and range validation.
func TestCurve(t *testing.T) {
	p := longCall(185, 8.20, 1)

	prices := []float64{100, 150, 185, 193.20, 250}
	curve, err := p.Curve(prices)
	if err != nil {
		t.Fatalf("Curve() error: %v", err)
	}
	if len(curve) != len(prices) {
		t.Fatalf("Curve() returned %d points, want %d", len(curve), len(prices))
	}
	for i, point := range curve {
		if point.UnderlyingPrice != prices[i] {
			t.Errorf("point %d sampled at %.2f, want %.2f", i, point.UnderlyingPrice, prices[i])
		}
		if want := p.ProfitAt(prices[i]); !approx(point.ProfitLoss, want) {
			t.Errorf("point %d P&L=%.4f, want %.4f", i, point.ProfitLoss, want)
		}
	}

	if _, err := p.Curve(nil); !errors.Is(err, ErrInvalidStrategyInput) {
		t.Errorf("empty range: error = %v, want ErrInvalidStrategyInput", err)
	}
	if _, err := p.Curve([]float64{100, 100, 110}); !errors.Is(err, ErrInvalidStrategyInput) {
		t.Errorf("non-ascending range: error = %v, want ErrInvalidStrategyInput", err)
	}
}

// TestAnnualizedReturn covers the reference scenario and the invalid-horizon
// edge: 30 days out, a $185 call at $8.20 with the stock reaching $200.
func TestAnnualizedReturn(t *testing.T) {
	p := longCall(185, 8.20, 1)

	got, err := p.AnnualizedReturn(200, 30)
	if err != nil {
		t.Fatalf("AnnualizedReturn() error: %v", err)
	}
	// profit = (200-185-8.20)*100 = 680, capital = 820
	want := (680.0 / 820.0) * (365.0 / 30.0)
	if !approx(got, want) {
		t.Errorf("AnnualizedReturn=%.6f, want %.6f", got, want)
	}
	if math.IsInf(got, 0) || math.IsNaN(got) {
		t.Errorf("AnnualizedReturn=%v, want a finite value", got)
	}
}

// TestAnnualizedReturnInvalidHorizon verifies a non-positive horizon fails
// instead of dividing by zero.
func TestAnnualizedReturnInvalidHorizon(t *testing.T) {
	p := longCall(185, 8.20, 1)
	for _, days := range []int{0, -7} {
		if _, err := p.AnnualizedReturn(200, days); !errors.Is(err, ErrInvalidTimeHorizon) {
			t.Errorf("days=%d: error = %v, want ErrInvalidTimeHorizon", days, err)
		}
	}
}

// TestSamplePrices checks the generated window is ascending and spans the
// configured fraction around the anchor.
func TestSamplePrices(t *testing.T) {
	cfg := DefaultPayoffConfig()
	prices := cfg.SamplePrices(200)

	if len(prices) != cfg.CurveSamples {
		t.Fatalf("got %d samples, want %d", len(prices), cfg.CurveSamples)
	}
	if !approx(prices[0], 100) || !approx(prices[len(prices)-1], 300) {
		t.Errorf("window [%.2f, %.2f], want [100.00, 300.00]", prices[0], prices[len(prices)-1])
	}
	for i := 1; i < len(prices); i++ {
		if prices[i] <= prices[i-1] {
			t.Fatalf("samples not ascending at %d: %.4f <= %.4f", i, prices[i], prices[i-1])
		}
	}
}

// TestParseStrategyKind covers the CLI short codes and rejection of unknown
// strategies.
func TestParseStrategyKind(t *testing.T) {
	cases := map[string]StrategyKind{
		"c":                LongCall,
		"p":                LongPut,
		"cc":               CoveredCall,
		"csp":              CashSecuredPut,
		"long_call":        LongCall,
		"cash_secured_put": CashSecuredPut,
	}
	for input, want := range cases {
		got, err := ParseStrategyKind(input)
		if err != nil || got != want {
			t.Errorf("ParseStrategyKind(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseStrategyKind("iron_condor"); !errors.Is(err, ErrInvalidStrategyInput) {
		t.Errorf("unknown strategy: error = %v, want ErrInvalidStrategyInput", err)
	}
}
