package yahoo

import (
	"fmt"
	"math"
	"net/url"

	"go.uber.org/zap"
)

// Statement is a multi-period financial statement table keyed by line-item
// name. Values are ordered newest first; NaN marks a period the provider had
// no figure for. Line items vary by provider, so consumers resolve logical
// quantities through ordered synonym lists (see Latest and Series).
type Statement map[string][]float64

// Empty reports whether the statement has no line items at all.
func (s Statement) Empty() bool {
	return len(s) == 0
}

// Latest returns the most recent value for the first line item present in
// names. Missing items and NaN values default to 0.
func (s Statement) Latest(names ...string) float64 {
	for _, name := range names {
		vals, ok := s[name]
		if !ok || len(vals) == 0 {
			continue
		}
		if math.IsNaN(vals[0]) {
			return 0
		}
		return vals[0]
	}
	return 0
}

// Series returns the full period series for the first line item present in
// names, or nil when none match. NaN entries mark invalid periods.
func (s Statement) Series(names ...string) []float64 {
	for _, name := range names {
		if vals, ok := s[name]; ok && len(vals) > 0 {
			return vals
		}
	}
	return nil
}

// Statements bundles the per-ticker income statement and balance sheet.
type Statements struct {
	Income  Statement
	Balance Statement
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			IncomeStatementHistory struct {
				IncomeStatementHistory []map[string]interface{} `json:"incomeStatementHistory"`
			} `json:"incomeStatementHistory"`
			BalanceSheetHistory struct {
				BalanceSheetStatements []map[string]interface{} `json:"balanceSheetStatements"`
			} `json:"balanceSheetHistory"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteSummary"`
}

// Line-item translations from the provider's field names to the canonical
// names the analyzer looks up.
var incomeItems = map[string]string{
	"totalRevenue":    "Total Revenue",
	"operatingIncome": "Operating Income",
	"ebit":            "EBIT",
	"incomeBeforeTax": "Pretax Income",
	"interestExpense": "Interest Expense",
	"netIncome":       "Net Income",
}

var balanceItems = map[string]string{
	"totalAssets":             "Total Assets",
	"totalLiab":               "Total Liabilities",
	"totalCurrentLiabilities": "Current Liabilities",
	"totalCurrentAssets":      "Current Assets",
	"retainedEarnings":        "Retained Earnings",
}

// Financials fetches the multi-period income statement and balance sheet for
// one ticker. Empty tables signal data unavailability, not an error.
func (c *Client) Financials(ticker string) (*Statements, error) {
	params := url.Values{}
	params.Add("modules", "incomeStatementHistory,balanceSheetHistory")
	reqURL := c.BaseURL + "/v10/finance/quoteSummary/" + url.PathEscape(ticker) + "?" + params.Encode()

	var result quoteSummaryResponse
	if err := c.getJSON(reqURL, &result); err != nil {
		return nil, err
	}
	if result.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("quoteSummary API error for %s: %v", ticker, result.QuoteSummary.Error)
	}
	if len(result.QuoteSummary.Result) == 0 {
		return &Statements{Income: Statement{}, Balance: Statement{}}, nil
	}

	r := result.QuoteSummary.Result[0]
	st := &Statements{
		Income:  buildStatement(r.IncomeStatementHistory.IncomeStatementHistory, incomeItems),
		Balance: buildStatement(r.BalanceSheetHistory.BalanceSheetStatements, balanceItems),
	}

	c.log.Debug("fetched financial statements",
		zap.String("ticker", ticker),
		zap.Int("income_items", len(st.Income)),
		zap.Int("balance_items", len(st.Balance)))

	return st, nil
}

// buildStatement flattens quoteSummary periods (newest first) into a table of
// canonical line items. Periods missing a figure get NaN so ratio math can
// skip them.
func buildStatement(periods []map[string]interface{}, items map[string]string) Statement {
	if len(periods) == 0 {
		return Statement{}
	}

	st := make(Statement, len(items))
	for field, name := range items {
		series := make([]float64, 0, len(periods))
		seen := false
		for _, period := range periods {
			v, ok := rawValue(period, field)
			if !ok {
				series = append(series, math.NaN())
				continue
			}
			seen = true
			series = append(series, v)
		}
		if seen {
			st[name] = series
		}
	}
	return st
}

// rawValue extracts a {"raw": n} figure from a statement period.
func rawValue(period map[string]interface{}, field string) (float64, bool) {
	item, ok := period[field].(map[string]interface{})
	if !ok {
		return 0, false
	}
	raw, ok := item["raw"].(float64)
	return raw, ok
}
