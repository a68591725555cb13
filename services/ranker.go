package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"options-analyzer/interfaces"
)

// FilterCriteria narrows a chain to contracts a budget can open.
// TargetBreakeven optionally keeps only contracts that break even on the
// right side of an expected price; zero disables it.
type FilterCriteria struct {
	InvestmentAmount float64 `json:"investment_amount"`
	ExpectedPrice    float64 `json:"expected_price"`
	TargetBreakeven  float64 `json:"target_breakeven,omitempty"`
}

// Validate rejects malformed criteria before any chain is touched.
func (c FilterCriteria) Validate() error {
	if c.InvestmentAmount <= 0 {
		return fmt.Errorf("%w: investment amount must be positive", ErrInvalidStrategyInput)
	}
	if c.ExpectedPrice <= 0 {
		return fmt.Errorf("%w: expected price must be positive", ErrInvalidStrategyInput)
	}
	if c.TargetBreakeven < 0 {
		return fmt.Errorf("%w: target breakeven cannot be negative", ErrInvalidStrategyInput)
	}
	return nil
}

// RankedCandidate is one affordable contract with its projected economics.
// CostOrCollateral is the capital required per contract; Quantity is how many
// contracts the budget covers. Return figures are fractions of capital.
type RankedCandidate struct {
	Contract         *interfaces.OptionContract `json:"contract"`
	Quantity         int                        `json:"quantity"`
	CostOrCollateral float64                    `json:"cost_or_collateral"`
	Breakeven        float64                    `json:"breakeven"`
	ProjectedReturn  float64                    `json:"projected_return"`
	ReturnOnCapital  float64                    `json:"return_on_capital"`
	AnnualizedReturn float64                    `json:"annualized_return"`
}

// Ranker filters an option chain by investment budget and ranks the
// affordable contracts by annualized return at an expected price.
type Ranker struct {
	cfg    PayoffConfig
	logger *logrus.Logger
}

// NewRanker creates a new contract ranker.
func NewRanker(cfg PayoffConfig) *Ranker {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &Ranker{
		cfg:    cfg,
		logger: logger,
	}
}

// Rank selects contracts of the strategy's leg type that fit the budget and
// orders them by annualized return, best first. Ties are broken by strike
// distance from the spot price, closer first. Fails with
// ErrNoAffordableContracts when nothing survives the filter.
func (r *Ranker) Rank(contracts []*interfaces.OptionContract, criteria FilterCriteria, kind StrategyKind, spotPrice float64, daysToExpiration int) ([]*RankedCandidate, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	kind, err := ParseStrategyKind(string(kind))
	if err != nil {
		return nil, err
	}
	if daysToExpiration <= 0 {
		return nil, fmt.Errorf("%w: %d days to expiration", ErrInvalidTimeHorizon, daysToExpiration)
	}
	if kind == CoveredCall && spotPrice <= 0 {
		return nil, fmt.Errorf("%w: covered call requires the current stock price", ErrInvalidStrategyInput)
	}

	wantType := "put"
	if kind.UsesCalls() {
		wantType = "call"
	}

	var candidates []*RankedCandidate
	for _, contract := range contracts {
		if contract.ContractType != wantType {
			continue
		}
		// Real chains carry unpriceable rows; skip them.
		if contract.StrikePrice <= 0 || contract.Premium <= 0 {
			continue
		}

		capital := r.capitalPerContract(kind, contract, spotPrice)
		quantity := int(math.Floor(criteria.InvestmentAmount / capital))
		if quantity < 1 {
			continue
		}

		position := StrategyPosition{
			Kind:       kind,
			Strike:     contract.StrikePrice,
			Premium:    contract.Premium,
			Quantity:   quantity,
			Multiplier: r.cfg.Multiplier,
		}
		if kind == CoveredCall {
			position.EntryPrice = spotPrice
		}

		breakeven := position.Breakeven()
		if !meetsBreakevenTarget(kind, breakeven, criteria.TargetBreakeven) {
			continue
		}

		annualized, err := position.AnnualizedReturn(criteria.ExpectedPrice, daysToExpiration)
		if err != nil {
			return nil, err
		}
		projected := position.ProfitAt(criteria.ExpectedPrice)

		candidates = append(candidates, &RankedCandidate{
			Contract:         contract,
			Quantity:         quantity,
			CostOrCollateral: capital,
			Breakeven:        breakeven,
			ProjectedReturn:  projected,
			ReturnOnCapital:  projected / position.CapitalAtRisk(),
			AnnualizedReturn: annualized,
		})
	}

	if len(candidates) == 0 {
		r.logger.WithFields(logrus.Fields{
			"strategy": kind,
			"budget":   criteria.InvestmentAmount,
		}).Debug("No contracts fit the budget")
		return nil, ErrNoAffordableContracts
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AnnualizedReturn != candidates[j].AnnualizedReturn {
			return candidates[i].AnnualizedReturn > candidates[j].AnnualizedReturn
		}
		di := math.Abs(candidates[i].Contract.StrikePrice - spotPrice)
		dj := math.Abs(candidates[j].Contract.StrikePrice - spotPrice)
		if di != dj {
			return di < dj
		}
		return candidates[i].Contract.StrikePrice < candidates[j].Contract.StrikePrice
	})

	r.logger.WithFields(logrus.Fields{
		"strategy":   kind,
		"candidates": len(candidates),
	}).Debug("Ranked affordable contracts")

	return candidates, nil
}

// capitalPerContract is the capital one contract ties up: premium paid for
// long legs, 100 shares of stock for a covered call, cash collateral at the
// strike for a cash-secured put.
func (r *Ranker) capitalPerContract(kind StrategyKind, contract *interfaces.OptionContract, spotPrice float64) float64 {
	switch kind {
	case CoveredCall:
		return spotPrice * r.cfg.Multiplier
	case CashSecuredPut:
		return contract.StrikePrice * r.cfg.Multiplier
	default:
		return contract.Premium * r.cfg.Multiplier
	}
}

// meetsBreakevenTarget applies the optional breakeven filter: bullish legs
// must break even below the target, bearish legs above it.
func meetsBreakevenTarget(kind StrategyKind, breakeven, target float64) bool {
	if target <= 0 {
		return true
	}
	if kind.UsesCalls() {
		return breakeven < target
	}
	return breakeven > target
}
