package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"options-analyzer/database"
	"options-analyzer/interfaces"
)

// Analyzer composes the market data gateway, the contract ranker and the
// payoff model into the single analysis entry point both the CLI and the
// HTTP API drive.
type Analyzer struct {
	marketData interfaces.MarketDataService
	ranker     *Ranker
	store      *database.LocalStorage // optional, best effort
	activity   *ActivityLogger        // optional
	cfg        PayoffConfig
	logger     *logrus.Logger
}

// NewAnalyzer creates a new analyzer service. store and activity may be nil.
func NewAnalyzer(marketData interfaces.MarketDataService, store *database.LocalStorage, activity *ActivityLogger, cfg PayoffConfig) *Analyzer {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &Analyzer{
		marketData: marketData,
		ranker:     NewRanker(cfg),
		store:      store,
		activity:   activity,
		cfg:        cfg,
		logger:     logger,
	}
}

// AnalyzeRequest carries one complete analysis query.
type AnalyzeRequest struct {
	Ticker           string
	Expiration       time.Time
	Strategy         StrategyKind
	InvestmentAmount float64
	ExpectedPrice    float64
	TargetBreakeven  float64
}

// AnalysisResult is the ranked candidate list for one query.
type AnalysisResult struct {
	Quote            *interfaces.Quote  `json:"quote"`
	Expiration       time.Time          `json:"expiration"`
	DaysToExpiration int                `json:"days_to_expiration"`
	Strategy         StrategyKind       `json:"strategy"`
	Candidates       []*RankedCandidate `json:"candidates"`
}

// StrategyAnalysis is the full payoff profile for one selected position.
// MaxGain is omitted and MaxGainUnbounded set for the long call's unlimited
// upside, keeping the JSON free of non-finite numbers.
type StrategyAnalysis struct {
	Strategy         StrategyKind `json:"strategy"`
	Strike           float64      `json:"strike"`
	Premium          float64      `json:"premium"`
	Quantity         int          `json:"quantity"`
	EntryPrice       float64      `json:"entry_price,omitempty"`
	Breakeven        float64      `json:"breakeven"`
	MaxGain          float64      `json:"max_gain,omitempty"`
	MaxGainUnbounded bool         `json:"max_gain_unbounded,omitempty"`
	MaxLoss          float64      `json:"max_loss"`
	CapitalAtRisk    float64      `json:"capital_at_risk"`
	ProfitAtTarget   float64      `json:"profit_at_target"`
	AnnualizedReturn float64      `json:"annualized_return"`
	Curve            PayoffCurve  `json:"curve"`
}

// Analyze fetches the quote and chain for a ticker and returns the ranked
// affordable contracts for the requested strategy. All input validation runs
// before any network fetch; no partial results are ever returned.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidStrategyInput)
	}
	kind, err := ParseStrategyKind(string(req.Strategy))
	if err != nil {
		return nil, err
	}
	// Short codes like "c" normalize here so leg selection and position
	// validation see the canonical kind.
	req.Strategy = kind
	criteria := FilterCriteria{
		InvestmentAmount: req.InvestmentAmount,
		ExpectedPrice:    req.ExpectedPrice,
		TargetBreakeven:  req.TargetBreakeven,
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	if req.Expiration.IsZero() {
		return nil, fmt.Errorf("%w: expiration is required", ErrInvalidStrategyInput)
	}
	days := DaysToExpiration(req.Expiration)
	if days <= 0 {
		return nil, fmt.Errorf("%w: expiration %s is not in the future", ErrInvalidTimeHorizon, req.Expiration.Format("2006-01-02"))
	}

	quote, err := a.marketData.GetQuote(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetching quote for %s: %w", ticker, err)
	}
	a.recordQuote(quote)

	chain, err := a.marketData.GetChain(ctx, ticker, req.Expiration)
	if err != nil {
		return nil, fmt.Errorf("fetching chain for %s: %w", ticker, err)
	}
	a.recordChain(chain)

	legs := chain.Puts
	if req.Strategy.UsesCalls() {
		legs = chain.Calls
	}

	candidates, err := a.ranker.Rank(legs, criteria, req.Strategy, quote.Price, days)
	if err != nil {
		return nil, err
	}

	if a.activity != nil {
		a.activity.RecordAnalysis(ticker, req.Strategy, req.InvestmentAmount, len(candidates))
	}

	a.logger.WithFields(logrus.Fields{
		"ticker":     ticker,
		"strategy":   req.Strategy,
		"expiration": req.Expiration.Format("2006-01-02"),
		"candidates": len(candidates),
	}).Info("Analysis complete")

	return &AnalysisResult{
		Quote:            quote,
		Expiration:       req.Expiration,
		DaysToExpiration: days,
		Strategy:         req.Strategy,
		Candidates:       candidates,
	}, nil
}

// BuildPayoff computes the full payoff profile for one position, sampling
// the curve over the configured window around the larger of spot and strike.
func (a *Analyzer) BuildPayoff(position StrategyPosition, spotPrice, targetPrice float64, daysToExpiration int) (*StrategyAnalysis, error) {
	if position.Multiplier == 0 {
		position.Multiplier = a.cfg.Multiplier
	}
	if err := position.Validate(); err != nil {
		return nil, err
	}

	annualized, err := position.AnnualizedReturn(targetPrice, daysToExpiration)
	if err != nil {
		return nil, err
	}

	anchor := math.Max(spotPrice, position.Strike)
	curve, err := position.Curve(a.cfg.SamplePrices(anchor))
	if err != nil {
		return nil, err
	}

	analysis := &StrategyAnalysis{
		Strategy:         position.Kind,
		Strike:           position.Strike,
		Premium:          position.Premium,
		Quantity:         position.Quantity,
		EntryPrice:       position.EntryPrice,
		Breakeven:        position.Breakeven(),
		MaxLoss:          position.MaxLoss(),
		CapitalAtRisk:    position.CapitalAtRisk(),
		ProfitAtTarget:   position.ProfitAt(targetPrice),
		AnnualizedReturn: annualized,
		Curve:            curve,
	}

	if gain := position.MaxGain(); math.IsInf(gain, 1) {
		analysis.MaxGainUnbounded = true
	} else {
		analysis.MaxGain = gain
	}

	return analysis, nil
}

// PositionFor converts a ranked candidate back into an evaluable position.
// spotPrice becomes the covered call's stock entry price.
func (a *Analyzer) PositionFor(kind StrategyKind, candidate *RankedCandidate, spotPrice float64) StrategyPosition {
	position := StrategyPosition{
		Kind:       kind,
		Strike:     candidate.Contract.StrikePrice,
		Premium:    candidate.Contract.Premium,
		Quantity:   candidate.Quantity,
		Multiplier: a.cfg.Multiplier,
	}
	if kind == CoveredCall {
		position.EntryPrice = spotPrice
	}
	return position
}

// ResolveExpiration returns the listed expiration closest to a target date.
func (a *Analyzer) ResolveExpiration(ctx context.Context, ticker string, target time.Time) (time.Time, error) {
	expirations, err := a.marketData.GetExpirations(ctx, strings.ToUpper(strings.TrimSpace(ticker)))
	if err != nil {
		return time.Time{}, err
	}
	return ClosestExpiration(expirations, target)
}

// ClosestExpiration picks the expiration with the smallest distance to the
// target date. Fails with ErrNoChainAvailable on an empty list.
func ClosestExpiration(expirations []time.Time, target time.Time) (time.Time, error) {
	if len(expirations) == 0 {
		return time.Time{}, interfaces.ErrNoChainAvailable
	}
	closest := expirations[0]
	best := math.Abs(target.Sub(closest).Hours())
	for _, exp := range expirations[1:] {
		if d := math.Abs(target.Sub(exp).Hours()); d < best {
			best = d
			closest = exp
		}
	}
	return closest, nil
}

// DaysToExpiration counts whole days from now until the expiration,
// rounding up so a contract expiring later today still counts as one day.
func DaysToExpiration(expiration time.Time) int {
	return int(math.Ceil(time.Until(expiration).Hours() / 24))
}

func (a *Analyzer) recordQuote(quote *interfaces.Quote) {
	if a.store != nil {
		if err := a.store.SaveQuote(quote); err != nil {
			a.logger.WithError(err).Warn("Failed to persist quote snapshot")
		}
	}
	if a.activity != nil {
		a.activity.RecordQuoteFetch(quote.Symbol, quote.Price)
	}
}

func (a *Analyzer) recordChain(chain *interfaces.OptionChain) {
	if a.store != nil {
		if err := a.store.SaveChainSnapshot(chain); err != nil {
			a.logger.WithError(err).Warn("Failed to persist chain snapshot")
		}
	}
	if a.activity != nil {
		a.activity.RecordChainFetch(chain.UnderlyingSymbol, chain.Expiration, len(chain.Calls), len(chain.Puts))
	}
}
