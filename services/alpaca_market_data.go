package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/sirupsen/logrus"

	"options-analyzer/interfaces"
)

const snapshotBatchSize = 100

// AlpacaMarketDataService implements interfaces.MarketDataService against
// Alpaca's market data API: the stocks SDK client for spot quotes and the
// v1beta1 options endpoints for contract metadata and pricing.
type AlpacaMarketDataService struct {
	apiKey    string
	secretKey string
	baseURL   string
	stocks    *marketdata.Client
	logger    *logrus.Logger
	client    *http.Client
}

// NewAlpacaMarketDataService creates a new Alpaca market data service
func NewAlpacaMarketDataService(apiKey, secretKey string) *AlpacaMarketDataService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &AlpacaMarketDataService{
		apiKey:    apiKey,
		secretKey: secretKey,
		baseURL:   "https://data.alpaca.markets",
		stocks: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: secretKey,
		}),
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// alpacaOptionSnapshots represents Alpaca's options snapshot response
type alpacaOptionSnapshots struct {
	Snapshots map[string]alpacaOptionSnapshot `json:"snapshots"`
}

// alpacaOptionSnapshot represents pricing data for one contract
type alpacaOptionSnapshot struct {
	LatestQuote       alpacaQuote `json:"latestQuote"`
	LatestTrade       alpacaTrade `json:"latestTrade"`
	ImpliedVolatility float64     `json:"impliedVolatility"`
}

// alpacaQuote represents quote data
type alpacaQuote struct {
	Timestamp time.Time `json:"t"`
	BidPrice  float64   `json:"bp"`
	AskPrice  float64   `json:"ap"`
	BidSize   int       `json:"bs"`
	AskSize   int       `json:"as"`
}

// alpacaTrade represents trade data
type alpacaTrade struct {
	Timestamp time.Time `json:"t"`
	Price     float64   `json:"p"`
	Size      int       `json:"s"`
}

// alpacaContractsResponse represents the option contracts listing
type alpacaContractsResponse struct {
	OptionContracts []alpacaContract `json:"option_contracts"`
	NextPageToken   string           `json:"next_page_token"`
}

// alpacaContract represents contract metadata
type alpacaContract struct {
	Symbol           string  `json:"symbol"`
	UnderlyingSymbol string  `json:"underlying_symbol"`
	ExpirationDate   string  `json:"expiration_date"`
	StrikePrice      float64 `json:"strike_price"`
	Type             string  `json:"type"` // "call" or "put"
	Style            string  `json:"style"`
	OpenInterest     int64   `json:"open_interest"`
	ContractSize     int     `json:"contract_size"`
}

// GetQuote returns the latest trade price for an underlying symbol
func (s *AlpacaMarketDataService) GetQuote(ctx context.Context, symbol string) (*interfaces.Quote, error) {
	trade, err := s.stocks.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrTickerNotFound, symbol)
		}
		return nil, fmt.Errorf("failed to fetch latest trade for %s: %w", symbol, err)
	}

	s.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"price":  trade.Price,
	}).Debug("Fetched quote")

	return &interfaces.Quote{
		Symbol:    symbol,
		Price:     trade.Price,
		Timestamp: trade.Timestamp,
	}, nil
}

// GetExpirations lists the distinct expiration dates with contracts for an
// underlying, ascending.
func (s *AlpacaMarketDataService) GetExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	contracts, err := s.fetchContracts(ctx, symbol, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var expirations []time.Time
	for _, contract := range contracts {
		if seen[contract.ExpirationDate] {
			continue
		}
		seen[contract.ExpirationDate] = true

		expDate, err := time.Parse("2006-01-02", contract.ExpirationDate)
		if err != nil {
			continue
		}
		expirations = append(expirations, expDate)
	}

	sort.Slice(expirations, func(i, j int) bool {
		return expirations[i].Before(expirations[j])
	})

	s.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"count":  len(expirations),
	}).Debug("Fetched expirations")

	return expirations, nil
}

// GetChain returns the priced call and put contracts for one expiration.
func (s *AlpacaMarketDataService) GetChain(ctx context.Context, symbol string, expiration time.Time) (*interfaces.OptionChain, error) {
	contracts, err := s.fetchContracts(ctx, symbol, expiration.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return nil, fmt.Errorf("%w: %s %s", interfaces.ErrNoChainAvailable, symbol, expiration.Format("2006-01-02"))
	}

	quote, err := s.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(contracts))
	for i, contract := range contracts {
		symbols[i] = contract.Symbol
	}
	snapshots, err := s.fetchSnapshots(ctx, symbols)
	if err != nil {
		return nil, err
	}

	chain := &interfaces.OptionChain{
		UnderlyingSymbol: symbol,
		UnderlyingPrice:  quote.Price,
		Expiration:       expiration,
		Timestamp:        time.Now(),
	}

	for _, meta := range contracts {
		expDate, err := time.Parse("2006-01-02", meta.ExpirationDate)
		if err != nil {
			continue
		}

		contract := &interfaces.OptionContract{
			Symbol:           meta.Symbol,
			UnderlyingSymbol: meta.UnderlyingSymbol,
			ContractType:     meta.Type,
			StrikePrice:      meta.StrikePrice,
			ExpirationDate:   expDate,
			OpenInterest:     meta.OpenInterest,
			DTE:              DaysToExpiration(expDate),
		}

		if snapshot, ok := snapshots[meta.Symbol]; ok {
			contract.Bid = snapshot.LatestQuote.BidPrice
			contract.Ask = snapshot.LatestQuote.AskPrice
			contract.Premium = midPrice(snapshot)
			contract.ImpliedVolatility = snapshot.ImpliedVolatility
		}

		switch meta.Type {
		case "call":
			chain.Calls = append(chain.Calls, contract)
		case "put":
			chain.Puts = append(chain.Puts, contract)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"symbol":     symbol,
		"expiration": expiration.Format("2006-01-02"),
		"calls":      len(chain.Calls),
		"puts":       len(chain.Puts),
	}).Debug("Fetched option chain")

	return chain, nil
}

// fetchContracts pages through the contracts listing. An empty expiration
// fetches every listed contract for the underlying.
func (s *AlpacaMarketDataService) fetchContracts(ctx context.Context, symbol, expiration string) ([]alpacaContract, error) {
	var contracts []alpacaContract
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("underlying_symbols", symbol)
		q.Set("limit", "1000")
		if expiration != "" {
			q.Set("expiration_date", expiration)
		}
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var page alpacaContractsResponse
		if err := s.getJSON(ctx, fmt.Sprintf("%s/v1beta1/options/contracts?%s", s.baseURL, q.Encode()), &page); err != nil {
			return nil, fmt.Errorf("failed to fetch option contracts: %w", err)
		}

		contracts = append(contracts, page.OptionContracts...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return contracts, nil
}

// fetchSnapshots retrieves pricing for contract symbols in batches.
func (s *AlpacaMarketDataService) fetchSnapshots(ctx context.Context, symbols []string) (map[string]alpacaOptionSnapshot, error) {
	snapshots := make(map[string]alpacaOptionSnapshot)

	for start := 0; start < len(symbols); start += snapshotBatchSize {
		end := start + snapshotBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		q := url.Values{}
		q.Set("symbols", strings.Join(symbols[start:end], ","))

		var batch alpacaOptionSnapshots
		if err := s.getJSON(ctx, fmt.Sprintf("%s/v1beta1/options/snapshots?%s", s.baseURL, q.Encode()), &batch); err != nil {
			return nil, fmt.Errorf("failed to fetch option snapshots: %w", err)
		}

		for sym, snapshot := range batch.Snapshots {
			snapshots[sym] = snapshot
		}
	}

	return snapshots, nil
}

// getJSON performs an authenticated GET and decodes the response body.
func (s *AlpacaMarketDataService) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return err
	}

	req.Header.Set("APCA-API-KEY-ID", s.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", s.secretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// midPrice derives a usable premium: mid of bid/ask, one-sided quote, or the
// last trade when the book is empty.
func midPrice(snapshot alpacaOptionSnapshot) float64 {
	bid := snapshot.LatestQuote.BidPrice
	ask := snapshot.LatestQuote.AskPrice
	switch {
	case bid > 0 && ask > 0:
		return (bid + ask) / 2
	case ask > 0:
		return ask
	case bid > 0:
		return bid
	default:
		return snapshot.LatestTrade.Price
	}
}

// isNotFound matches the data API's unknown-symbol responses.
func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}
