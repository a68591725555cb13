package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"options-analyzer/interfaces"
	"options-analyzer/services"
)

// CLI drives the interactive analysis loop. It consumes only the analyzer
// and the market data gateway, the same surface the HTTP API uses.
type CLI struct {
	analyzer   *services.Analyzer
	marketData interfaces.MarketDataService
	prompter   *Prompter
	out        io.Writer
}

// NewCLI creates the interactive analyzer session.
func NewCLI(analyzer *services.Analyzer, marketData interfaces.MarketDataService, prompter *Prompter) *CLI {
	return &CLI{
		analyzer:   analyzer,
		marketData: marketData,
		prompter:   prompter,
		out:        os.Stdout,
	}
}

var strategyKinds = []services.StrategyKind{
	services.LongCall,
	services.LongPut,
	services.CoveredCall,
	services.CashSecuredPut,
}

// Run loops analysis sessions until the user is done.
func (c *CLI) Run(ctx context.Context) error {
	c.printWelcome()
	for {
		if err := c.analyzeOnce(ctx); err != nil {
			return err
		}
		if !c.prompter.YesNo("\nAnalyze another ticker?", true) {
			fmt.Fprintln(c.out, "Goodbye.")
			return nil
		}
	}
}

func (c *CLI) printWelcome() {
	fmt.Fprintln(c.out, strings.Repeat("=", 60))
	fmt.Fprintln(c.out, "            OPTIONS STRATEGY ANALYZER")
	fmt.Fprintln(c.out, strings.Repeat("=", 60))
	fmt.Fprintln(c.out, "Finds option contracts that fit your investment budget and")
	fmt.Fprintln(c.out, "ranks them by annualized return at your expected price.")
	fmt.Fprintln(c.out)
}

// analyzeOnce walks one full session: ticker, expiration, strategy, budget,
// expected price, ranked candidates, selection, payoff profile. Recoverable
// conditions print a message and return nil so the outer loop re-prompts.
func (c *CLI) analyzeOnce(ctx context.Context) error {
	ticker := strings.ToUpper(c.prompter.String("Enter ticker symbol", ""))
	if ticker == "" {
		fmt.Fprintln(c.out, "A ticker symbol is required.")
		return nil
	}

	quote, err := c.marketData.GetQuote(ctx, ticker)
	if err != nil {
		if errors.Is(err, interfaces.ErrTickerNotFound) {
			fmt.Fprintf(c.out, "Ticker %s was not found. Check the symbol and try again.\n", ticker)
			return nil
		}
		return fmt.Errorf("fetching quote: %w", err)
	}
	fmt.Fprintf(c.out, "Current price for %s: $%.2f\n\n", ticker, quote.Price)

	expirations, err := c.marketData.GetExpirations(ctx, ticker)
	if err != nil {
		return fmt.Errorf("fetching expirations: %w", err)
	}
	if len(expirations) == 0 {
		fmt.Fprintf(c.out, "No options are listed for %s.\n", ticker)
		return nil
	}

	expiration, ok := c.pickExpiration(expirations)
	if !ok {
		return nil
	}
	fmt.Fprintf(c.out, "Selected expiration: %s\n\n", expiration.Format("2006-01-02"))

	descriptions := make([]string, len(strategyKinds))
	for i, kind := range strategyKinds {
		descriptions[i] = kind.Description()
	}
	kind := strategyKinds[c.prompter.Choice("Available strategies:", descriptions, 0)]

	budget, ok := c.prompter.Amount(budgetPrompt(kind))
	if !ok {
		return nil
	}
	expected, ok := c.prompter.Amount(fmt.Sprintf("Expected price for %s at expiration ($)", ticker))
	if !ok {
		return nil
	}

	result, err := c.analyzer.Analyze(ctx, services.AnalyzeRequest{
		Ticker:           ticker,
		Expiration:       expiration,
		Strategy:         kind,
		InvestmentAmount: budget,
		ExpectedPrice:    expected,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoAffordableContracts):
			fmt.Fprintln(c.out, "\nNo options match your criteria. Try adjusting your investment amount.")
			return nil
		case errors.Is(err, interfaces.ErrNoChainAvailable):
			fmt.Fprintf(c.out, "\nNo option chain is available for %s on %s.\n", ticker, expiration.Format("2006-01-02"))
			return nil
		case errors.Is(err, services.ErrInvalidStrategyInput), errors.Is(err, services.ErrInvalidTimeHorizon):
			fmt.Fprintf(c.out, "\nInvalid input: %v\n", err)
			return nil
		}
		return err
	}

	fmt.Fprintf(c.out, "\nOptions sorted by annualized return if $%.2f is reached:\n", expected)
	c.renderCandidates(result.Candidates)

	candidate, ok := c.pickCandidate(result.Candidates)
	if !ok {
		return nil
	}

	position := c.analyzer.PositionFor(kind, candidate, quote.Price)
	analysis, err := c.analyzer.BuildPayoff(position, quote.Price, expected, result.DaysToExpiration)
	if err != nil {
		return fmt.Errorf("building payoff: %w", err)
	}

	c.renderAnalysis(analysis, expected, result.DaysToExpiration)
	return nil
}

// pickExpiration lets the user choose by list number or by entering a target
// date, which resolves to the closest listed expiration.
func (c *CLI) pickExpiration(expirations []time.Time) (time.Time, bool) {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Num", "Date"})
	for i, exp := range expirations {
		table.Append([]string{strconv.Itoa(i + 1), exp.Format("2006-01-02")})
	}
	table.Render()

	for {
		input := c.prompter.String("Select expiration (number or YYYY-MM-DD)", "1")

		if idx, err := strconv.Atoi(input); err == nil {
			if idx >= 1 && idx <= len(expirations) {
				return expirations[idx-1], true
			}
			fmt.Fprintf(c.out, "Please enter a number between 1 and %d.\n", len(expirations))
			continue
		}

		target, err := time.Parse("2006-01-02", input)
		if err != nil {
			fmt.Fprintln(c.out, "Invalid format. Enter a number or a YYYY-MM-DD date.")
			continue
		}
		closest, err := services.ClosestExpiration(expirations, target)
		if err != nil {
			return time.Time{}, false
		}
		if !closest.Equal(target) {
			fmt.Fprintf(c.out, "Closest expiration to %s is %s.\n", input, closest.Format("2006-01-02"))
		}
		return closest, true
	}
}

func (c *CLI) renderCandidates(candidates []*services.RankedCandidate) {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Num", "Strike", "Premium", "Breakeven", "Capital", "Qty", "Profit", "Return %", "Annual %", "Open Int"})
	for i, candidate := range candidates {
		table.Append([]string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("$%.2f", candidate.Contract.StrikePrice),
			fmt.Sprintf("$%.2f", candidate.Contract.Premium),
			fmt.Sprintf("$%.2f", candidate.Breakeven),
			fmt.Sprintf("$%.2f", candidate.CostOrCollateral),
			strconv.Itoa(candidate.Quantity),
			fmt.Sprintf("$%.2f", candidate.ProjectedReturn),
			fmt.Sprintf("%.2f%%", candidate.ReturnOnCapital*100),
			fmt.Sprintf("%.2f%%", candidate.AnnualizedReturn*100),
			strconv.FormatInt(candidate.Contract.OpenInterest, 10),
		})
	}
	table.Render()
}

func (c *CLI) pickCandidate(candidates []*services.RankedCandidate) (*services.RankedCandidate, bool) {
	for {
		input := c.prompter.String(fmt.Sprintf("Select an option by number (1-%d) or 'q' to quit", len(candidates)), "")
		if strings.EqualFold(input, "q") || input == "" {
			return nil, false
		}
		idx, err := strconv.Atoi(input)
		if err == nil && idx >= 1 && idx <= len(candidates) {
			return candidates[idx-1], true
		}
		fmt.Fprintf(c.out, "Please enter a number between 1 and %d.\n", len(candidates))
	}
}

func (c *CLI) renderAnalysis(analysis *services.StrategyAnalysis, expected float64, days int) {
	fmt.Fprintf(c.out, "\nStrategy Summary - %s\n", analysis.Strategy.Description())
	fmt.Fprintf(c.out, "  Strike Price:      $%.2f\n", analysis.Strike)
	premiumLabel := "Premium Paid"
	if analysis.Strategy.Credit() {
		premiumLabel = "Premium Received"
	}
	fmt.Fprintf(c.out, "  %s:  $%.2f\n", premiumLabel, analysis.Premium)
	fmt.Fprintf(c.out, "  Contracts:         %d\n", analysis.Quantity)
	fmt.Fprintf(c.out, "  Breakeven Price:   $%.2f\n", analysis.Breakeven)
	if analysis.MaxGainUnbounded {
		fmt.Fprintln(c.out, "  Maximum Profit:    Unlimited")
	} else {
		fmt.Fprintf(c.out, "  Maximum Profit:    $%.2f\n", analysis.MaxGain)
	}
	fmt.Fprintf(c.out, "  Maximum Loss:      $%.2f\n", analysis.MaxLoss)
	fmt.Fprintf(c.out, "  Capital at Risk:   $%.2f\n", analysis.CapitalAtRisk)

	fmt.Fprintf(c.out, "\nAt your expected price of $%.2f (%d days to expiration):\n", expected, days)
	fmt.Fprintf(c.out, "  Profit/Loss:       $%.2f\n", analysis.ProfitAtTarget)
	fmt.Fprintf(c.out, "  Annualized Return: %.2f%%\n", analysis.AnnualizedReturn*100)

	fmt.Fprintln(c.out, "\nPayoff at expiration:")
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Price", "P&L"})
	for _, point := range analysis.Curve {
		table.Append([]string{
			fmt.Sprintf("$%.2f", point.UnderlyingPrice),
			fmt.Sprintf("$%.2f", point.ProfitLoss),
		})
	}
	table.Render()
	fmt.Fprintln(c.out, "Note: these calculations assume holding until expiration.")
}

// budgetPrompt mirrors the capital each strategy actually ties up.
func budgetPrompt(kind services.StrategyKind) string {
	switch kind {
	case services.CashSecuredPut:
		return "Maximum collateral amount for this position ($)"
	case services.CoveredCall:
		return "Maximum amount to spend on this position ($)"
	default:
		return "Maximum amount to invest in this position ($)"
	}
}
