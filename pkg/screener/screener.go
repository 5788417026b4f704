package screener

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fortress/pkg/config"
	"fortress/pkg/yahoo"
)

// Candidate is a security that passed the lightweight screen. Later stages
// attach more fields; identity is the ticker symbol.
type Candidate struct {
	Ticker      string  `json:"Ticker"`
	Sector      string  `json:"Sector"`
	Price       float64 `json:"Price"`
	OpMarginPct float64 `json:"Op Margin %"`
	PE          float64 `json:"P/E"`
	CurrRatio   float64 `json:"Curr Ratio"`
	MktCapB     float64 `json:"Mkt Cap (B)"`
}

// QuoteProvider supplies summary fields for a batch of up to 500 tickers.
type QuoteProvider interface {
	BulkQuotes(symbols []string) (map[string]yahoo.Quote, error)
}

// Screener runs the first, cheap filter over the full ticker universe using
// bulk quote data.
type Screener struct {
	quotes QuoteProvider
	cfg    config.ScreenConfig
	log    *zap.Logger
}

func New(quotes QuoteProvider, cfg config.ScreenConfig, log *zap.Logger) *Screener {
	return &Screener{quotes: quotes, cfg: cfg, log: log}
}

// Run screens the tickers in provider-sized batches and returns the
// survivors. A failed batch is dropped, not retried; partial results are
// expected.
func (s *Screener) Run(tickers []string) []Candidate {
	s.log.Info("running lightweight filter", zap.Int("tickers", len(tickers)))

	var survivors []Candidate
	batches := chunk(tickers, s.cfg.BatchSize)

	for i, batch := range batches {
		if i%5 == 0 {
			s.log.Info("processing batch", zap.Int("batch", i+1), zap.Int("total", len(batches)))
		}

		quotes, err := s.quotes.BulkQuotes(batch)
		if err != nil {
			s.log.Warn("batch fetch failed, dropping batch",
				zap.Int("batch", i+1), zap.Int("size", len(batch)), zap.Error(err))
			continue
		}

		for _, symbol := range batch {
			q, ok := quotes[symbol]
			if !ok {
				// Provider-side error for this symbol; treat as absent.
				continue
			}
			if !Passes(q, s.cfg) {
				continue
			}
			survivors = append(survivors, newCandidate(q))
		}
	}

	s.log.Info("lightweight filter complete",
		zap.Int("survivors", len(survivors)), zap.Int("screened", len(tickers)))

	return survivors
}

// Passes applies the screen predicate. The quote's null fields must already be
// normalized to safe defaults (the Quote type guarantees this); comparisons
// never see nulls.
func Passes(q yahoo.Quote, cfg config.ScreenConfig) bool {
	// Unknown P/E passes; a known P/E must not exceed the cap.
	if q.TrailingPE != nil && *q.TrailingPE > cfg.MaxPERatio {
		return false
	}
	if q.Price < cfg.MinPrice {
		return false
	}
	if q.MarketCap < cfg.MinCap {
		return false
	}
	if EffectiveVolume(q) < cfg.MinVolume {
		return false
	}
	for _, excluded := range cfg.ExcludedSectors {
		if strings.Contains(q.Sector, excluded) {
			return false
		}
	}
	if q.CurrentRatio < cfg.MinCurrentRatio {
		return false
	}
	if q.OperatingMargin <= 0 {
		return false
	}
	return true
}

// EffectiveVolume returns the primary average volume, falling back to the
// 10-day average when the primary is zero or absent.
func EffectiveVolume(q yahoo.Quote) float64 {
	if q.AvgVolume != 0 {
		return q.AvgVolume
	}
	return q.AvgVolume10Day
}

func newCandidate(q yahoo.Quote) Candidate {
	pe := 0.0
	if q.TrailingPE != nil {
		pe = round2(*q.TrailingPE)
	}
	return Candidate{
		Ticker:      q.Symbol,
		Sector:      q.Sector,
		Price:       q.Price,
		OpMarginPct: round2(q.OperatingMargin * 100),
		PE:          pe,
		CurrRatio:   q.CurrentRatio,
		MktCapB:     round2(q.MarketCap / 1_000_000_000),
	}
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// chunk partitions tickers into batches respecting the provider's bulk-query
// limit.
func chunk(tickers []string, size int) [][]string {
	var batches [][]string
	for i := 0; i < len(tickers); i += size {
		end := i + size
		if end > len(tickers) {
			end = len(tickers)
		}
		batches = append(batches, tickers[i:end])
	}
	return batches
}
