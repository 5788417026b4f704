package trend

import (
	"sort"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fortress/pkg/analyzer"
	"fortress/pkg/config"
)

// Bar is one daily observation of adjusted closing price.
type Bar struct {
	Date  time.Time
	Close float64
}

// BarProvider returns a per-ticker series of daily bars covering the lookback
// window, oldest first.
type BarProvider interface {
	DailyBars(symbols []string, lookback time.Duration) (map[string][]Bar, error)
}

// Result is an analyzed security trading above its long-term moving average.
type Result struct {
	analyzer.Analyzed
	SMA200       float64 `json:"SMA_200"`
	TrendDistPct float64 `json:"Trend_Dist_%"`
}

// Filter keeps only securities whose latest close is above the long-window
// simple moving average.
type Filter struct {
	bars BarProvider
	cfg  config.TrendConfig
	log  *zap.Logger
}

func New(bars BarProvider, cfg config.TrendConfig, log *zap.Logger) *Filter {
	return &Filter{bars: bars, cfg: cfg, log: log}
}

// Run fetches the full price history in one bulk call and filters the input.
// A total fetch failure passes the input through unchanged rather than
// dropping everything; a single ticker's problem excludes only that ticker.
func (f *Filter) Run(input []analyzer.Analyzed) []Result {
	if len(input) == 0 {
		f.log.Info("trend filter input is empty, skipping")
		return nil
	}

	tickers := make([]string, len(input))
	for i, rec := range input {
		tickers[i] = rec.Ticker
	}

	f.log.Info("checking long-term trend",
		zap.Int("tickers", len(tickers)), zap.Int("sma_period", f.cfg.SMAPeriod))

	history, err := f.bars.DailyBars(tickers, f.cfg.Lookback)
	if err != nil {
		f.log.Warn("history fetch failed, passing input through unfiltered", zap.Error(err))
		return passthrough(input)
	}

	var uptrend []Result
	for _, rec := range input {
		bars, ok := history[rec.Ticker]
		if !ok {
			continue
		}
		if len(bars) < f.cfg.MinObservations {
			f.log.Debug("insufficient history",
				zap.String("ticker", rec.Ticker), zap.Int("observations", len(bars)))
			continue
		}

		closes := make([]float64, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
		}

		sma := talib.Sma(closes, f.cfg.SMAPeriod)
		smaVal := sma[len(sma)-1]
		latest := closes[len(closes)-1]
		if smaVal <= 0 {
			continue
		}

		// Strict inequality: a close sitting exactly on the average has not
		// reclaimed the trend.
		if latest <= smaVal {
			continue
		}

		uptrend = append(uptrend, Result{
			Analyzed:     rec,
			SMA200:       round2(smaVal),
			TrendDistPct: round2((latest - smaVal) / smaVal * 100),
		})
	}

	// Smallest distance first: names that reclaimed the trend most recently.
	sort.Slice(uptrend, func(i, j int) bool {
		return uptrend[i].TrendDistPct < uptrend[j].TrendDistPct
	})

	f.log.Info("trend filter complete",
		zap.Int("uptrend", len(uptrend)), zap.Int("checked", len(tickers)))

	return uptrend
}

// passthrough wraps the input without trend metrics when history could not be
// fetched at all.
func passthrough(input []analyzer.Analyzed) []Result {
	results := make([]Result, len(input))
	for i, rec := range input {
		results[i] = Result{Analyzed: rec}
	}
	return results
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
