package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ActivityLogger records gateway fetches and analysis runs to daily JSON
// files for later inspection. Safe for concurrent use; the server shares one
// instance across request handlers.
type ActivityLogger struct {
	logger     *logrus.Logger
	logDir     string
	mu         sync.Mutex // guards currentLog and the log file
	currentLog *DailyActivityLog
}

// DailyActivityLog represents one day of analyzer activity
type DailyActivityLog struct {
	Date       string     `json:"date"`
	Activities []Activity `json:"activities"`
}

// Activity represents a single fetch or analysis event
type Activity struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type"` // QUOTE_FETCH, CHAIN_FETCH, ANALYSIS
	Symbol    string                 `json:"symbol,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// NewActivityLogger creates a new activity logger
func NewActivityLogger(logDir string) *ActivityLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Ensure log directory exists
	if err := os.MkdirAll(logDir, 0755); err != nil {
		logger.WithError(err).Error("Failed to create activity log directory")
	}

	return &ActivityLogger{
		logger: logger,
		logDir: logDir,
	}
}

// RecordQuoteFetch logs a spot quote fetch
func (al *ActivityLogger) RecordQuoteFetch(symbol string, price float64) {
	al.record(Activity{
		Timestamp: time.Now(),
		Type:      "QUOTE_FETCH",
		Symbol:    symbol,
		Details: map[string]interface{}{
			"price": price,
		},
	})
}

// RecordChainFetch logs an option chain fetch
func (al *ActivityLogger) RecordChainFetch(symbol string, expiration time.Time, calls, puts int) {
	al.record(Activity{
		Timestamp: time.Now(),
		Type:      "CHAIN_FETCH",
		Symbol:    symbol,
		Details: map[string]interface{}{
			"expiration": expiration.Format("2006-01-02"),
			"calls":      calls,
			"puts":       puts,
		},
	})
}

// RecordAnalysis logs one ranked analysis run
func (al *ActivityLogger) RecordAnalysis(symbol string, strategy StrategyKind, budget float64, candidates int) {
	al.record(Activity{
		Timestamp: time.Now(),
		Type:      "ANALYSIS",
		Symbol:    symbol,
		Details: map[string]interface{}{
			"strategy":          string(strategy),
			"investment_amount": budget,
			"candidates":        candidates,
		},
	})
}

func (al *ActivityLogger) record(activity Activity) {
	al.mu.Lock()
	defer al.mu.Unlock()

	date := activity.Timestamp.Format("2006-01-02")
	if al.currentLog == nil || al.currentLog.Date != date {
		al.currentLog = al.loadOrCreate(date)
	}

	al.currentLog.Activities = append(al.currentLog.Activities, activity)

	if err := al.saveLog(); err != nil {
		al.logger.WithError(err).Error("Failed to save activity log")
	}
}

// loadOrCreate reads the day's existing log file so restarts append rather
// than overwrite.
func (al *ActivityLogger) loadOrCreate(date string) *DailyActivityLog {
	log := &DailyActivityLog{
		Date:       date,
		Activities: make([]Activity, 0),
	}

	data, err := os.ReadFile(al.logPath(date))
	if err != nil {
		return log
	}
	if err := json.Unmarshal(data, log); err != nil {
		al.logger.WithError(err).Warn("Could not parse existing activity log, starting fresh")
		return &DailyActivityLog{Date: date, Activities: make([]Activity, 0)}
	}
	return log
}

func (al *ActivityLogger) saveLog() error {
	if al.currentLog == nil {
		return nil
	}

	data, err := json.MarshalIndent(al.currentLog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal activity log: %w", err)
	}

	if err := os.WriteFile(al.logPath(al.currentLog.Date), data, 0644); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}

	return nil
}

func (al *ActivityLogger) logPath(date string) string {
	return filepath.Join(al.logDir, fmt.Sprintf("activity_%s.json", date))
}
