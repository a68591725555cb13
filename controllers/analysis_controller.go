package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"options-analyzer/interfaces"
	"options-analyzer/services"
)

// AnalysisController handles strategy analysis requests
type AnalysisController struct {
	analyzer   *services.Analyzer
	marketData interfaces.MarketDataService
}

// NewAnalysisController creates a new analysis controller
func NewAnalysisController(analyzer *services.Analyzer, marketData interfaces.MarketDataService) *AnalysisController {
	return &AnalysisController{
		analyzer:   analyzer,
		marketData: marketData,
	}
}

// AnalyzeRequest is the JSON body for POST /api/v1/analyze. Expiration is a
// YYYY-MM-DD date; the closest listed expiration is used.
type AnalyzeRequest struct {
	Ticker           string  `json:"ticker" binding:"required"`
	Expiration       string  `json:"expiration" binding:"required"`
	Strategy         string  `json:"strategy" binding:"required"`
	InvestmentAmount float64 `json:"investment_amount" binding:"required"`
	ExpectedPrice    float64 `json:"expected_price" binding:"required"`
	TargetBreakeven  float64 `json:"target_breakeven"`
}

// PayoffRequest is the JSON body for POST /api/v1/payoff, the second call
// made once the user has picked a candidate.
type PayoffRequest struct {
	Strategy         string  `json:"strategy" binding:"required"`
	Strike           float64 `json:"strike" binding:"required"`
	Premium          float64 `json:"premium" binding:"required"`
	Quantity         int     `json:"quantity" binding:"required"`
	SpotPrice        float64 `json:"spot_price"`
	ExpectedPrice    float64 `json:"expected_price" binding:"required"`
	DaysToExpiration int     `json:"days_to_expiration" binding:"required"`
}

// HandleGetQuote returns the current spot price for a ticker
// GET /api/v1/quote/:symbol
func (ac *AnalysisController) HandleGetQuote(c *gin.Context) {
	symbol := c.Param("symbol")

	quote, err := ac.marketData.GetQuote(c.Request.Context(), symbol)
	if err != nil {
		if errors.Is(err, interfaces.ErrTickerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Ticker not found",
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to fetch quote",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// HandleGetExpirations lists available option expiration dates
// GET /api/v1/expirations/:symbol
func (ac *AnalysisController) HandleGetExpirations(c *gin.Context) {
	symbol := c.Param("symbol")

	expirations, err := ac.marketData.GetExpirations(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to fetch expirations",
			"details": err.Error(),
		})
		return
	}

	dates := make([]string, len(expirations))
	for i, exp := range expirations {
		dates[i] = exp.Format("2006-01-02")
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":      symbol,
		"count":       len(dates),
		"expirations": dates,
	})
}

// HandleAnalyze runs the filter-and-rank pipeline for one strategy
// POST /api/v1/analyze
func (ac *AnalysisController) HandleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	kind, err := services.ParseStrategyKind(req.Strategy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid strategy",
			"details": err.Error(),
		})
		return
	}

	target, err := time.Parse("2006-01-02", req.Expiration)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Expiration must be a YYYY-MM-DD date",
		})
		return
	}

	expiration, err := ac.analyzer.ResolveExpiration(c.Request.Context(), req.Ticker, target)
	if err != nil {
		ac.writeAnalysisError(c, err)
		return
	}

	result, err := ac.analyzer.Analyze(c.Request.Context(), services.AnalyzeRequest{
		Ticker:           req.Ticker,
		Expiration:       expiration,
		Strategy:         kind,
		InvestmentAmount: req.InvestmentAmount,
		ExpectedPrice:    req.ExpectedPrice,
		TargetBreakeven:  req.TargetBreakeven,
	})
	if err != nil {
		// Empty results are an expected outcome, not a fault.
		if errors.Is(err, services.ErrNoAffordableContracts) {
			c.JSON(http.StatusOK, gin.H{
				"message":    "No contracts match the investment criteria",
				"candidates": []*services.RankedCandidate{},
			})
			return
		}
		ac.writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandlePayoff builds the payoff profile and curve for a selected position
// POST /api/v1/payoff
func (ac *AnalysisController) HandlePayoff(c *gin.Context) {
	var req PayoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	kind, err := services.ParseStrategyKind(req.Strategy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid strategy",
			"details": err.Error(),
		})
		return
	}

	position := services.StrategyPosition{
		Kind:     kind,
		Strike:   req.Strike,
		Premium:  req.Premium,
		Quantity: req.Quantity,
	}
	if kind == services.CoveredCall {
		position.EntryPrice = req.SpotPrice
	}

	analysis, err := ac.analyzer.BuildPayoff(position, req.SpotPrice, req.ExpectedPrice, req.DaysToExpiration)
	if err != nil {
		ac.writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// writeAnalysisError maps the error taxonomy onto HTTP statuses.
func (ac *AnalysisController) writeAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidStrategyInput), errors.Is(err, services.ErrInvalidTimeHorizon):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid analysis input",
			"details": err.Error(),
		})
	case errors.Is(err, interfaces.ErrTickerNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Ticker not found",
		})
	case errors.Is(err, interfaces.ErrNoChainAvailable):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No option chain available for that expiration",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Analysis failed",
			"details": err.Error(),
		})
	}
}
