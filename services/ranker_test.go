package services

import (
	"errors"
	"math"
	"testing"
	"time"

	"options-analyzer/interfaces"
)

// chainContract builds a priced contract row for ranker tests.
func chainContract(contractType string, strike, premium float64) *interfaces.OptionContract {
	return &interfaces.OptionContract{
		Symbol:           "TEST",
		UnderlyingSymbol: "TEST",
		ContractType:     contractType,
		StrikePrice:      strike,
		Premium:          premium,
		ExpirationDate:   time.Now().AddDate(0, 0, 30),
		OpenInterest:     100,
	}
}

func testRanker() *Ranker {
	return NewRanker(DefaultPayoffConfig())
}

// TestRankScenario covers the reference case: spot $191.52, a $185 call at
// $8.20 and a $2000 budget. One contract costs $820, so the budget covers
// two, and the annualized return at 30 days is finite.
func TestRankScenario(t *testing.T) {
	contracts := []*interfaces.OptionContract{chainContract("call", 185, 8.20)}
	criteria := FilterCriteria{InvestmentAmount: 2000, ExpectedPrice: 200}

	candidates, err := testRanker().Rank(contracts, criteria, LongCall, 191.52, 30)
	if err != nil {
		t.Fatalf("Rank() error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}

	c := candidates[0]
	if !approx(c.CostOrCollateral, 820) {
		t.Errorf("CostOrCollateral=%.2f, want 820.00", c.CostOrCollateral)
	}
	if c.Quantity != 2 {
		t.Errorf("Quantity=%d, want 2 (floor(2000/820))", c.Quantity)
	}
	if math.IsInf(c.AnnualizedReturn, 0) || math.IsNaN(c.AnnualizedReturn) {
		t.Errorf("AnnualizedReturn=%v, want a finite value", c.AnnualizedReturn)
	}
}

// TestRankSortsByAnnualizedReturn verifies descending order on the primary
// key.
func TestRankSortsByAnnualizedReturn(t *testing.T) {
	contracts := []*interfaces.OptionContract{
		chainContract("call", 210, 1.10),
		chainContract("call", 185, 8.20),
		chainContract("call", 195, 3.40),
		chainContract("call", 200, 2.15),
	}
	criteria := FilterCriteria{InvestmentAmount: 5000, ExpectedPrice: 205}

	candidates, err := testRanker().Rank(contracts, criteria, LongCall, 191.52, 30)
	if err != nil {
		t.Fatalf("Rank() error: %v", err)
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].AnnualizedReturn > candidates[i-1].AnnualizedReturn+eps {
			t.Errorf("candidates out of order at %d: %.4f > %.4f",
				i, candidates[i].AnnualizedReturn, candidates[i-1].AnnualizedReturn)
		}
	}
}

// TestRankTieBreakByStrikeDistance verifies ties on annualized return go to
// the strike closer to spot. Two calls with the same premium expiring
// worthless at the expected price produce identical returns.
func TestRankTieBreakByStrikeDistance(t *testing.T) {
	contracts := []*interfaces.OptionContract{
		chainContract("call", 220, 5.00),
		chainContract("call", 200, 5.00),
	}
	// Expected price below both strikes: both lose the full premium.
	criteria := FilterCriteria{InvestmentAmount: 1000, ExpectedPrice: 150}

	candidates, err := testRanker().Rank(contracts, criteria, LongCall, 195, 30)
	if err != nil {
		t.Fatalf("Rank() error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if !approx(candidates[0].AnnualizedReturn, candidates[1].AnnualizedReturn) {
		t.Fatalf("expected a tie, got %.4f and %.4f",
			candidates[0].AnnualizedReturn, candidates[1].AnnualizedReturn)
	}
	if candidates[0].Contract.StrikePrice != 200 {
		t.Errorf("tie broken wrong: first strike=%.2f, want 200 (closer to spot 195)",
			candidates[0].Contract.StrikePrice)
	}
}

// TestRankDiscardsUnaffordable verifies contracts over budget never appear
// and that every surviving candidate covers at least one contract.
func TestRankDiscardsUnaffordable(t *testing.T) {
	contracts := []*interfaces.OptionContract{
		chainContract("call", 185, 8.20), // $820, affordable
		chainContract("call", 150, 45.0), // $4500, over budget
	}
	criteria := FilterCriteria{InvestmentAmount: 1000, ExpectedPrice: 200}

	candidates, err := testRanker().Rank(contracts, criteria, LongCall, 191.52, 30)
	if err != nil {
		t.Fatalf("Rank() error: %v", err)
	}
	for _, c := range candidates {
		if c.Quantity < 1 {
			t.Errorf("candidate strike=%.2f has quantity %d, want >= 1", c.Contract.StrikePrice, c.Quantity)
		}
		if c.CostOrCollateral > criteria.InvestmentAmount {
			t.Errorf("candidate strike=%.2f costs %.2f, over budget %.2f",
				c.Contract.StrikePrice, c.CostOrCollateral, criteria.InvestmentAmount)
		}
	}
	if len(candidates) != 1 {
		t.Errorf("got %d candidates, want 1", len(candidates))
	}
}

// TestRankEmptyResult verifies an all-unaffordable chain yields the
// recoverable ErrNoAffordableContracts, not a fault.
func TestRankEmptyResult(t *testing.T) {
	contracts := []*interfaces.OptionContract{
		chainContract("call", 185, 80.0),
		chainContract("call", 190, 75.0),
	}
	criteria := FilterCriteria{InvestmentAmount: 500, ExpectedPrice: 200}

	candidates, err := testRanker().Rank(contracts, criteria, LongCall, 191.52, 30)
	if !errors.Is(err, ErrNoAffordableContracts) {
		t.Fatalf("error = %v, want ErrNoAffordableContracts", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates alongside the error, want 0", len(candidates))
	}
}

// TestRankCapitalByStrategy checks the capital basis for the short
// strategies: stock cost for covered calls, strike collateral for
// cash-secured puts.
func TestRankCapitalByStrategy(t *testing.T) {
	spot := 191.52

	calls := []*interfaces.OptionContract{chainContract("call", 200, 4.50)}
	covered, err := testRanker().Rank(calls, FilterCriteria{InvestmentAmount: 20000, ExpectedPrice: 195}, CoveredCall, spot, 30)
	if err != nil {
		t.Fatalf("covered call Rank() error: %v", err)
	}
	if !approx(covered[0].CostOrCollateral, spot*100) {
		t.Errorf("covered call capital=%.2f, want %.2f", covered[0].CostOrCollateral, spot*100)
	}

	puts := []*interfaces.OptionContract{chainContract("put", 180, 3.10)}
	secured, err := testRanker().Rank(puts, FilterCriteria{InvestmentAmount: 20000, ExpectedPrice: 195}, CashSecuredPut, spot, 30)
	if err != nil {
		t.Fatalf("cash secured put Rank() error: %v", err)
	}
	if !approx(secured[0].CostOrCollateral, 180*100) {
		t.Errorf("cash secured put capital=%.2f, want %.2f", secured[0].CostOrCollateral, 180.0*100)
	}
}

// TestRankSkipsWrongLegType verifies puts never rank for call strategies and
// unpriceable rows are dropped.
func TestRankSkipsWrongLegType(t *testing.T) {
	contracts := []*interfaces.OptionContract{
		chainContract("put", 185, 8.20),
		chainContract("call", 185, 0), // no premium, unpriceable
		chainContract("call", 190, 5.10),
	}
	criteria := FilterCriteria{InvestmentAmount: 2000, ExpectedPrice: 200}

	candidates, err := testRanker().Rank(contracts, criteria, LongCall, 191.52, 30)
	if err != nil {
		t.Fatalf("Rank() error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Contract.StrikePrice != 190 {
		t.Fatalf("expected only the priced 190 call to rank, got %d candidates", len(candidates))
	}
}

// TestRankBreakevenTarget verifies the optional breakeven filter keeps only
// calls breaking even below the target.
func TestRankBreakevenTarget(t *testing.T) {
	contracts := []*interfaces.OptionContract{
		chainContract("call", 185, 8.20), // breakeven 193.20
		chainContract("call", 200, 9.00), // breakeven 209.00
	}
	criteria := FilterCriteria{InvestmentAmount: 2000, ExpectedPrice: 205, TargetBreakeven: 205}

	candidates, err := testRanker().Rank(contracts, criteria, LongCall, 191.52, 30)
	if err != nil {
		t.Fatalf("Rank() error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Contract.StrikePrice != 185 {
		t.Fatalf("expected only the 185 call (breakeven below target), got %d candidates", len(candidates))
	}
}

// TestRankNormalizesStrategyCodes verifies a short strategy code filters the
// same leg type as its full name.
func TestRankNormalizesStrategyCodes(t *testing.T) {
	contracts := []*interfaces.OptionContract{
		chainContract("call", 185, 8.20),
		chainContract("put", 180, 3.10),
	}
	criteria := FilterCriteria{InvestmentAmount: 2000, ExpectedPrice: 200}

	candidates, err := testRanker().Rank(contracts, criteria, StrategyKind("c"), 191.52, 30)
	if err != nil {
		t.Fatalf("Rank() error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Contract.ContractType != "call" {
		t.Fatalf("expected only the call to rank for code \"c\", got %d candidates", len(candidates))
	}
}

// TestRankRejectsInvalidInputs verifies criteria and horizon validation runs
// before the chain is touched.
func TestRankRejectsInvalidInputs(t *testing.T) {
	contracts := []*interfaces.OptionContract{chainContract("call", 185, 8.20)}

	if _, err := testRanker().Rank(contracts, FilterCriteria{InvestmentAmount: 0, ExpectedPrice: 200}, LongCall, 191.52, 30); !errors.Is(err, ErrInvalidStrategyInput) {
		t.Errorf("zero budget: error = %v, want ErrInvalidStrategyInput", err)
	}
	if _, err := testRanker().Rank(contracts, FilterCriteria{InvestmentAmount: 2000, ExpectedPrice: -1}, LongCall, 191.52, 30); !errors.Is(err, ErrInvalidStrategyInput) {
		t.Errorf("negative expected price: error = %v, want ErrInvalidStrategyInput", err)
	}
	if _, err := testRanker().Rank(contracts, FilterCriteria{InvestmentAmount: 2000, ExpectedPrice: 200}, LongCall, 191.52, 0); !errors.Is(err, ErrInvalidTimeHorizon) {
		t.Errorf("zero days: error = %v, want ErrInvalidTimeHorizon", err)
	}
	if _, err := testRanker().Rank(contracts, FilterCriteria{InvestmentAmount: 2000, ExpectedPrice: 200}, CoveredCall, 0, 30); !errors.Is(err, ErrInvalidStrategyInput) {
		t.Errorf("covered call without spot: error = %v, want ErrInvalidStrategyInput", err)
	}
}
