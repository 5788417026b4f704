package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fortress/pkg/analyzer"
	"fortress/pkg/config"
	"fortress/pkg/fincache"
	"fortress/pkg/report"
	"fortress/pkg/screener"
	"fortress/pkg/trend"
	"fortress/pkg/universe"
	"fortress/pkg/yahoo"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	tickerList := flag.String("tickers", "", "comma-separated tickers to screen instead of the full universe")
	skipTrend := flag.Bool("skip-trend", false, "skip the long-term trend filter")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: no .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	runID := uuid.NewString()[:8]
	log := logger.With(zap.String("run_id", runID))

	start := time.Now()
	log.Info("starting screening run")

	// Step 1: the ticker universe.
	tickers, err := loadUniverse(*tickerList, cfg, log)
	if err != nil {
		log.Fatal("could not build ticker universe", zap.Error(err))
	}
	if len(tickers) == 0 {
		log.Fatal("ticker universe is empty, nothing to screen")
	}

	yahooClient := yahoo.NewClient(cfg.Providers.HTTPTimeout, cfg.Providers.RequestDelay, log)

	// Step 2: the lightweight bulk screen.
	candidates := screener.New(yahooClient, cfg.Screen, log).Run(tickers)

	// Step 3: deep financial analysis and tier classification.
	cache := fincache.New(cfg.CachePath, log)
	analyzed := analyzer.New(yahooClient, cache, cfg.Analyzer, log).Run(candidates)

	writer := report.NewWriter(cfg.OutputDir, log)
	writer.WriteTiers(analyzed)

	// Step 4: the long-term trend filter.
	if !*skipTrend {
		if cfg.Providers.AlpacaAPIKey == "" || cfg.Providers.AlpacaAPISecret == "" {
			log.Warn("ALPACA_API_KEY / ALPACA_SECRET_KEY not set, skipping trend filter")
		} else {
			bars := trend.NewAlpacaBars(cfg.Providers.AlpacaAPIKey, cfg.Providers.AlpacaAPISecret, log)
			uptrend := trend.New(bars, cfg.Trend, log).Run(analyzed)
			writer.WriteUptrend(uptrend)
		}
	}

	log.Info("screening run complete",
		zap.Int("universe", len(tickers)),
		zap.Int("screened", len(candidates)),
		zap.Int("analyzed", len(analyzed)),
		zap.Duration("elapsed", time.Since(start)))
}

// loadUniverse returns either the override tickers from the command line or
// the full downloaded universe.
func loadUniverse(override string, cfg *config.Config, log *zap.Logger) ([]string, error) {
	if override != "" {
		var tickers []string
		for _, t := range strings.Split(override, ",") {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t != "" {
				tickers = append(tickers, t)
			}
		}
		log.Info("using ticker override", zap.Int("tickers", len(tickers)))
		return tickers, nil
	}

	return universe.NewSource(cfg.Providers.HTTPTimeout, log).Fetch()
}
