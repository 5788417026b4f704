package universe

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	nasdaqTradedURL = "https://www.nasdaqtrader.com/dynamic/symdir/nasdaqtraded.txt"
	sp500URL        = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

	// Symbols of 5+ characters are usually warrants, units and other special
	// securities.
	maxSymbolLen = 4
)

// Source fetches the ticker universe to screen.
type Source struct {
	httpClient *http.Client
	log        *zap.Logger

	// Overridable for tests.
	TradedURL   string
	FallbackURL string
}

func NewSource(timeout time.Duration, log *zap.Logger) *Source {
	return &Source{
		httpClient:  &http.Client{Timeout: timeout},
		log:         log,
		TradedURL:   nasdaqTradedURL,
		FallbackURL: sp500URL,
	}
}

// Fetch downloads the NASDAQ symbol directory and returns the common-stock
// tickers in it. When the directory is unreachable it falls back to scraping
// the S&P 500 constituent list, so a screen can still run on a reduced
// universe.
func (s *Source) Fetch() ([]string, error) {
	tickers, err := s.fetchNasdaqTraded()
	if err == nil {
		s.log.Info("fetched ticker universe", zap.Int("tickers", len(tickers)))
		return tickers, nil
	}

	s.log.Warn("symbol directory unavailable, falling back to S&P 500 list", zap.Error(err))

	tickers, ferr := s.fetchSP500()
	if ferr != nil {
		return nil, fmt.Errorf("universe fetch failed: %w (fallback: %v)", err, ferr)
	}
	s.log.Info("fetched fallback universe", zap.Int("tickers", len(tickers)))
	return tickers, nil
}

// fetchNasdaqTraded parses the pipe-separated symbol directory, dropping test
// issues and ETFs.
func (s *Source) fetchNasdaqTraded() ([]string, error) {
	resp, err := s.httpClient.Get(s.TradedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch symbol directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("symbol directory returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read symbol directory: %w", err)
	}

	return ParseSymbolDirectory(string(body))
}

// ParseSymbolDirectory extracts tickers from the pipe-separated NASDAQ symbol
/// directory format: a header row naming the columns, one row per security,
// and a trailing file-creation line.
func ParseSymbolDirectory(data string) ([]string, error) {
	lines := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("symbol directory too short")
	}

	header := strings.Split(lines[0], "|")
	symbolIdx, etfIdx, testIdx := -1, -1, -1
	for i, col := range header {
		switch col {
		case "Symbol":
			symbolIdx = i
		case "ETF":
			etfIdx = i
		case "Test Issue":
			testIdx = i
		}
	}
	if symbolIdx == -1 || etfIdx == -1 || testIdx == -1 {
		return nil, fmt.Errorf("symbol directory missing expected columns")
	}

	var tickers []string
	for _, line := range lines[1:] {
		fields := strings.Split(line, "|")
		if len(fields) != len(header) {
			continue
		}
		if fields[testIdx] != "N" || fields[etfIdx] != "N" {
			continue
		}
		symbol := fields[symbolIdx]
		if symbol == "" || len(symbol) > maxSymbolLen {
			continue
		}
		// Preferred shares use $ in the directory but - on quote providers.
		tickers = append(tickers, strings.ReplaceAll(symbol, "$", "-"))
	}

	if len(tickers) == 0 {
		return nil, fmt.Errorf("symbol directory contained no usable symbols")
	}

	return tickers, nil
}

// fetchSP500 scrapes the constituents table of the S&P 500 list page.
func (s *Source) fetchSP500() ([]string, error) {
	resp, err := s.httpClient.Get(s.FallbackURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch constituent list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("constituent list returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse constituent list: %w", err)
	}

	var tickers []string
	doc.Find("table#constituents tbody tr").Each(func(i int, row *goquery.Selection) {
		symbol := strings.TrimSpace(row.Find("td").First().Text())
		if symbol == "" || len(symbol) > maxSymbolLen+1 {
			return
		}
		tickers = append(tickers, strings.ReplaceAll(symbol, ".", "-"))
	})

	if len(tickers) == 0 {
		return nil, fmt.Errorf("no constituents found in fallback page")
	}

	return tickers, nil
}
