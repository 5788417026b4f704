package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"fortress/pkg/analyzer"
	"fortress/pkg/trend"
)

// Tier output files, one CSV per quality tier.
const (
	FortressCSV = "fortress_stocks.csv"
	StrongCSV   = "strong_stocks.csv"
	RiskyCSV    = "risky_stocks.csv"
	UptrendCSV  = "uptrend_stocks.csv"
	ResultsJSON = "screen_results.json"
)

var analyzedHeader = []string{
	"Ticker", "Tier", "Price", "P/E", "Sector", "Z-Score", "ROIC %",
	"Op Margin %", "Avg Margin (4Y)", "Curr Ratio", "Int Cov", "Mkt Cap (B)",
}

// Writer persists the tiered candidate lists. Write errors are logged and
// swallowed: losing a report must never abort the run.
type Writer struct {
	dir string
	log *zap.Logger
}

func NewWriter(dir string, log *zap.Logger) *Writer {
	return &Writer{dir: dir, log: log}
}

// WriteTiers splits the analyzed records by tier and writes one CSV per tier
// plus a combined JSON dump.
func (w *Writer) WriteTiers(records []analyzer.Analyzed) {
	byTier := map[analyzer.Tier][]analyzer.Analyzed{}
	for _, rec := range records {
		byTier[rec.Tier] = append(byTier[rec.Tier], rec)
	}

	files := map[analyzer.Tier]string{
		analyzer.TierFortress: FortressCSV,
		analyzer.TierStrong:   StrongCSV,
		analyzer.TierRisky:    RiskyCSV,
	}
	for tier, name := range files {
		w.writeCSV(name, analyzedHeader, analyzedRows(byTier[tier]))
	}

	w.writeJSON(ResultsJSON, records)
}

// WriteUptrend writes the trend-filter survivors with their trend metrics.
func (w *Writer) WriteUptrend(results []trend.Result) {
	header := append(append([]string{}, analyzedHeader...), "SMA_200", "Trend_Dist_%")
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = append(analyzedRow(r.Analyzed), ftoa(r.SMA200), ftoa(r.TrendDistPct))
	}
	w.writeCSV(UptrendCSV, header, rows)
}

func analyzedRows(records []analyzer.Analyzed) [][]string {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = analyzedRow(rec)
	}
	return rows
}

func analyzedRow(rec analyzer.Analyzed) []string {
	return []string{
		rec.Ticker, string(rec.Tier), ftoa(rec.Price), ftoa(rec.PE), rec.Sector,
		ftoa(rec.ZScore), ftoa(rec.ROICPct), ftoa(rec.OpMarginPct),
		ftoa(rec.AvgMargin4Y), ftoa(rec.CurrRatio), ftoa(rec.IntCov), ftoa(rec.MktCapB),
	}
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (w *Writer) writeCSV(name string, header []string, rows [][]string) {
	if err := w.writeCSVFile(name, header, rows); err != nil {
		w.log.Warn("could not write report", zap.String("file", name), zap.Error(err))
		return
	}
	w.log.Info("wrote report", zap.String("file", name), zap.Int("rows", len(rows)))
}

func (w *Writer) writeCSVFile(name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeJSON(name string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Warn("could not marshal report", zap.String("file", name), zap.Error(err))
		return
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.log.Warn("could not create output dir", zap.Error(err))
		return
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, pretty.Pretty(b), 0644); err != nil {
		w.log.Warn("could not write report", zap.String("file", name), zap.Error(err))
		return
	}
	w.log.Info("wrote report", zap.String("file", name))
}
