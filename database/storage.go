package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"options-analyzer/interfaces"
	"options-analyzer/models"
)

// LocalStorage persists market data snapshots to SQLite for audit and
// debugging. Analysis results are never stored.
type LocalStorage struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewLocalStorage creates a new local storage service
func NewLocalStorage(dbPath string) (*LocalStorage, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate schemas
	if err := db.AutoMigrate(
		&models.DBQuote{},
		&models.DBContractSnapshot{},
		&models.DBChainFetch{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &LocalStorage{
		db:     db,
		logger: log,
	}, nil
}

// SaveQuote saves an underlying quote snapshot
func (s *LocalStorage) SaveQuote(quote *interfaces.Quote) error {
	dbQuote := &models.DBQuote{
		Symbol:   quote.Symbol,
		Price:    quote.Price,
		QuotedAt: quote.Timestamp,
	}

	result := s.db.Create(dbQuote)
	if result.Error != nil {
		return fmt.Errorf("failed to save quote: %w", result.Error)
	}

	return nil
}

// SaveChainSnapshot saves a fetched option chain: one fetch record plus a
// snapshot row per contract.
func (s *LocalStorage) SaveChainSnapshot(chain *interfaces.OptionChain) error {
	fetchedAt := chain.Timestamp
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	fetch := &models.DBChainFetch{
		UnderlyingSymbol: chain.UnderlyingSymbol,
		Expiration:       chain.Expiration,
		UnderlyingPrice:  chain.UnderlyingPrice,
		CallCount:        len(chain.Calls),
		PutCount:         len(chain.Puts),
		FetchedAt:        fetchedAt,
	}
	if result := s.db.Create(fetch); result.Error != nil {
		return fmt.Errorf("failed to save chain fetch: %w", result.Error)
	}

	contracts := make([]*interfaces.OptionContract, 0, len(chain.Calls)+len(chain.Puts))
	contracts = append(contracts, chain.Calls...)
	contracts = append(contracts, chain.Puts...)
	if len(contracts) == 0 {
		return nil
	}

	dbContracts := make([]*models.DBContractSnapshot, len(contracts))
	for i, contract := range contracts {
		dbContracts[i] = &models.DBContractSnapshot{
			Symbol:            contract.Symbol,
			UnderlyingSymbol:  contract.UnderlyingSymbol,
			ContractType:      contract.ContractType,
			StrikePrice:       contract.StrikePrice,
			ExpirationDate:    contract.ExpirationDate,
			Premium:           contract.Premium,
			Bid:               contract.Bid,
			Ask:               contract.Ask,
			Volume:            contract.Volume,
			OpenInterest:      contract.OpenInterest,
			ImpliedVolatility: contract.ImpliedVolatility,
			FetchedAt:         fetchedAt,
		}
	}

	result := s.db.Create(&dbContracts)
	if result.Error != nil {
		return fmt.Errorf("failed to save contract snapshots: %w", result.Error)
	}

	s.logger.WithFields(logrus.Fields{
		"symbol":    chain.UnderlyingSymbol,
		"contracts": result.RowsAffected,
	}).Debug("Chain snapshot saved")

	return nil
}

// RecentQuotes retrieves the most recent stored quotes for a symbol
func (s *LocalStorage) RecentQuotes(symbol string, limit int) ([]*interfaces.Quote, error) {
	var dbQuotes []*models.DBQuote

	result := s.db.Where("symbol = ?", symbol).
		Order("quoted_at DESC").
		Limit(limit).
		Find(&dbQuotes)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to get quotes: %w", result.Error)
	}

	quotes := make([]*interfaces.Quote, len(dbQuotes))
	for i, dbQuote := range dbQuotes {
		quotes[i] = &interfaces.Quote{
			Symbol:    dbQuote.Symbol,
			Price:     dbQuote.Price,
			Timestamp: dbQuote.QuotedAt,
		}
	}

	return quotes, nil
}

// CleanupOldData removes snapshots older than the specified time
func (s *LocalStorage) CleanupOldData(before time.Time) error {
	s.logger.WithField("before", before).Info("Cleaning up old snapshots")

	if err := s.db.Where("quoted_at < ?", before).Delete(&models.DBQuote{}).Error; err != nil {
		return fmt.Errorf("failed to delete old quotes: %w", err)
	}

	if err := s.db.Where("fetched_at < ?", before).Delete(&models.DBContractSnapshot{}).Error; err != nil {
		return fmt.Errorf("failed to delete old contract snapshots: %w", err)
	}

	if err := s.db.Where("fetched_at < ?", before).Delete(&models.DBChainFetch{}).Error; err != nil {
		return fmt.Errorf("failed to delete old chain fetches: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *LocalStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
