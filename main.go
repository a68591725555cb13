package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"options-analyzer/config"
	"options-analyzer/controllers"
	"options-analyzer/database"
	"options-analyzer/interfaces"
	"options-analyzer/services"
)

var (
	cfgFile string
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "options-analyzer",
		Short: "Options strategy analyzer",
		Long: `Fetches an options chain for a ticker, filters contracts by investment
budget, ranks them by annualized return at an expected price, and shows the
payoff profile of the selected strategy.`,
		Run: runInteractive,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Run:   runServer,
	}
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

type app struct {
	cfg        *config.Config
	marketData interfaces.MarketDataService
	analyzer   *services.Analyzer
	store      *database.LocalStorage
}

// newApp loads configuration and wires the service graph shared by the CLI
// and the server.
func newApp() *app {
	// Credentials commonly live in a .env file during development.
	_ = godotenv.Load()

	logger = logrus.New()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.SecretKey == "" {
		logger.Fatal("ALPACA_API_KEY and ALPACA_SECRET_KEY must be set")
	}

	marketData := services.NewAlpacaMarketDataService(cfg.Alpaca.APIKey, cfg.Alpaca.SecretKey)

	var store *database.LocalStorage
	if cfg.Database.Enabled {
		store, err = database.NewLocalStorage(cfg.Database.Path)
		if err != nil {
			logger.WithError(err).Warn("Snapshot store unavailable, continuing without it")
			store = nil
		}
	}

	activity := services.NewActivityLogger(cfg.Logging.ActivityDir)

	payoffCfg := services.PayoffConfig{
		Multiplier:   cfg.Analysis.ContractMultiplier,
		CurveSamples: cfg.Analysis.CurveSamples,
		CurveSpan:    cfg.Analysis.CurveSpan,
	}

	return &app{
		cfg:        cfg,
		marketData: marketData,
		analyzer:   services.NewAnalyzer(marketData, store, activity, payoffCfg),
		store:      store,
	}
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close snapshot store")
		}
	}
}

func runInteractive(cmd *cobra.Command, args []string) {
	a := newApp()
	defer a.close()

	cli := NewCLI(a.analyzer, a.marketData, NewPrompter())
	if err := cli.Run(cmd.Context()); err != nil {
		logger.WithError(err).Fatal("Analyzer session failed")
	}
}

func runServer(cmd *cobra.Command, args []string) {
	a := newApp()
	defer a.close()

	router := controllers.NewRouter(controllers.NewAnalysisController(a.analyzer, a.marketData))

	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	logger.WithField("addr", addr).Info("Starting API server")
	if err := router.Run(addr); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
}
