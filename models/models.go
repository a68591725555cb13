package models

import (
	"time"

	"gorm.io/gorm"
)

// DBQuote represents a fetched underlying quote in the database
type DBQuote struct {
	gorm.Model
	Symbol   string `gorm:"index"`
	Price    float64
	QuotedAt time.Time `gorm:"index"`
}

// DBContractSnapshot represents one option contract row as fetched
type DBContractSnapshot struct {
	gorm.Model
	Symbol            string `gorm:"index"`
	UnderlyingSymbol  string `gorm:"index:idx_underlying_expiration"`
	ContractType      string
	StrikePrice       float64
	ExpirationDate    time.Time `gorm:"index:idx_underlying_expiration"`
	Premium           float64
	Bid               float64
	Ask               float64
	Volume            int64
	OpenInterest      int64
	ImpliedVolatility float64
	FetchedAt         time.Time `gorm:"index"`
}

// DBChainFetch records one chain fetch from the market data gateway
type DBChainFetch struct {
	gorm.Model
	UnderlyingSymbol string `gorm:"index"`
	Expiration       time.Time
	UnderlyingPrice  float64
	CallCount        int
	PutCount         int
	FetchedAt        time.Time `gorm:"index"`
}

// TableName overrides for cleaner table names
func (DBQuote) TableName() string {
	return "quotes"
}

func (DBContractSnapshot) TableName() string {
	return "contract_snapshots"
}

func (DBChainFetch) TableName() string {
	return "chain_fetches"
}
