package analyzer

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fortress/pkg/config"
	"fortress/pkg/fincache"
	"fortress/pkg/screener"
	"fortress/pkg/yahoo"
)

// Tier is the quality classification assigned by the deep analysis.
type Tier string

const (
	// TierFortress marks high sustained margins on a safe balance sheet.
	TierFortress Tier = "Fortress"
	// TierStrong marks positive margins outside the distress zone.
	TierStrong Tier = "Strong"
	// TierRisky marks everything that fails a margin or safety gate.
	TierRisky Tier = "Risky"
)

// Analyzed merges the bulk-screen fields with the deep-analysis metrics.
type Analyzed struct {
	Ticker      string  `json:"Ticker"`
	Tier        Tier    `json:"Tier"`
	Price       float64 `json:"Price"`
	PE          float64 `json:"P/E"`
	Sector      string  `json:"Sector"`
	ZScore      float64 `json:"Z-Score"`
	ROICPct     float64 `json:"ROIC %"`
	OpMarginPct float64 `json:"Op Margin %"`
	AvgMargin4Y float64 `json:"Avg Margin (4Y)"`
	CurrRatio   float64 `json:"Curr Ratio"`
	IntCov      float64 `json:"Int Cov"`
	MktCapB     float64 `json:"Mkt Cap (B)"`
}

// StatementsProvider fetches multi-period financial statements for one ticker.
type StatementsProvider interface {
	Financials(ticker string) (*yahoo.Statements, error)
}

// Analyzer performs the deep financial analysis over the bulk-screen
// survivors and classifies each into a tier. Tiering is a classification, not
// a filter: only tickers with unavailable data are dropped.
type Analyzer struct {
	statements StatementsProvider
	cache      *fincache.Cache
	cfg        config.AnalyzerConfig
	log        *zap.Logger
}

func New(statements StatementsProvider, cache *fincache.Cache, cfg config.AnalyzerConfig, log *zap.Logger) *Analyzer {
	return &Analyzer{statements: statements, cache: cache, cfg: cfg, log: log}
}

// Run analyzes each candidate in sequence. The cache is loaded once at the
// start and saved once at the end; a crash mid-run loses in-progress updates.
func (a *Analyzer) Run(candidates []screener.Candidate) []Analyzed {
	a.log.Info("fetching deep financials", zap.Int("survivors", len(candidates)))

	a.cache.Load()
	now := time.Now()
	expiry := a.cfg.CacheExpiry()

	var results []Analyzed
	for i, cand := range candidates {
		if i%20 == 0 {
			a.log.Info("analyzing",
				zap.Int("progress", i+1),
				zap.Int("total", len(candidates)),
				zap.String("ticker", cand.Ticker))
		}

		// A fresh failed entry means the last fetch attempt came up empty;
		// don't hammer the provider again until it expires.
		if entry, ok := a.cache.Get(cand.Ticker); ok && fincache.Fresh(entry, now, expiry) && entry.Failed() {
			a.log.Debug("skipping previously failed ticker", zap.String("ticker", cand.Ticker))
			continue
		}

		result, ok := a.analyzeOne(cand, now)
		if !ok {
			continue
		}
		results = append(results, result)
	}

	if err := a.cache.Save(); err != nil {
		a.log.Warn("could not save financial cache", zap.Error(err))
	}

	a.log.Info("deep analysis complete",
		zap.Int("analyzed", len(results)), zap.Int("candidates", len(candidates)))

	return results
}

// analyzeOne fetches statements for a single candidate, derives its ratios
// and tier, and records the metrics in the cache. Returns false when the
// ticker's data is unavailable.
func (a *Analyzer) analyzeOne(cand screener.Candidate, now time.Time) (Analyzed, bool) {
	st, err := a.statements.Financials(cand.Ticker)
	if err != nil || st.Income.Empty() || st.Balance.Empty() {
		if err != nil {
			a.log.Warn("statement fetch failed", zap.String("ticker", cand.Ticker), zap.Error(err))
		} else {
			a.log.Info("no statement data", zap.String("ticker", cand.Ticker))
		}
		a.cache.Put(cand.Ticker, fincache.FailedEntry(now))
		return Analyzed{}, false
	}

	avgMargin, fortressMargin, positiveMargin := marginStats(st.Income, a.cfg.FortressMarginThreshold)

	intCov := interestCoverage(st.Income)
	roic := returnOnInvestedCapital(st.Income, st.Balance)

	// The screen stored market cap in billions for display; the Z-Score
	// needs raw dollars.
	marketCap := cand.MktCapB * 1_000_000_000
	z := altmanZ(st.Balance, st.Income, marketCap)

	a.cache.Put(cand.Ticker, fincache.Entry{
		Timestamp: now.Unix(),
		ZScore:    round2(z),
		ROIC:      roic,
		IntCov:    round2(intCov),
	})

	tier := ClassifyTier(intCov, roic, fortressMargin, positiveMargin, z, a.cfg)

	return Analyzed{
		Ticker:      cand.Ticker,
		Tier:        tier,
		Price:       cand.Price,
		PE:          cand.PE,
		Sector:      cand.Sector,
		ZScore:      round2(z),
		ROICPct:     round2(roic * 100),
		OpMarginPct: cand.OpMarginPct,
		AvgMargin4Y: round2(avgMargin * 100),
		CurrRatio:   cand.CurrRatio,
		IntCov:      round2(intCov),
		MktCapB:     cand.MktCapB,
	}, true
}

// ClassifyTier applies the tier decision rule in its fixed order:
//
//  1. Interest coverage below the floor, or ROIC below the floor, is Risky
//     regardless of anything else.
//  2. Fortress needs both a high average margin and a safe Z-Score (>= 2.99).
//  3. Strong needs a positive average margin and a Z-Score out of the
//     distress zone (>= 1.81).
//  4. Everything else is Risky.
func ClassifyTier(intCov, roic float64, fortressMargin, positiveMargin bool, z float64, cfg config.AnalyzerConfig) Tier {
	if intCov < cfg.MinInterestCoverage {
		return TierRisky
	}
	if roic < cfg.MinROIC {
		return TierRisky
	}
	if fortressMargin && z >= 2.99 {
		return TierFortress
	}
	if positiveMargin && z >= 1.81 {
		return TierStrong
	}
	return TierRisky
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
