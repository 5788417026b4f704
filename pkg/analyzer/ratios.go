package analyzer

import (
	"math"

	"fortress/pkg/yahoo"
)

// Ordered synonym lists for the logical quantities the ratios need. Providers
// disagree on line-item names, so each lookup tries candidates in order.
var (
	ebitNames       = []string{"EBIT", "Operating Income", "Pretax Income"}
	interestNames   = []string{"Interest Expense", "Interest Expense Non Operating"}
	currLiabNames   = []string{"Current Liabilities", "Total Current Liabilities"}
	currAssetNames  = []string{"Current Assets", "Total Current Assets"}
	totalLiabNames  = []string{"Total Liabilities Net Minority Interest", "Total Liabilities"}
	totalAssetNames = []string{"Total Assets"}
	revenueNames    = []string{"Total Revenue"}
	retainedNames   = []string{"Retained Earnings"}
	opIncomeHistory = []string{"Operating Income", "EBIT"}
)

// noDebtCoverage stands in for "effectively no debt": with zero interest
// expense the coverage ratio is undefined, so a large fixed value is reported
// instead.
const noDebtCoverage = 100

// marginStats computes the multi-year average operating margin (operating
// income over revenue, averaged over periods where both figures are valid)
// and the two booleans derived from it. Any failure yields a zero average and
// false for both.
func marginStats(income yahoo.Statement, fortressThreshold float64) (avg float64, fortress, positive bool) {
	revenue := income.Series(revenueNames...)
	if revenue == nil {
		return 0, false, false
	}

	opIncome := income.Series(opIncomeHistory...)
	if opIncome == nil {
		// No operating income at all: treat as a zero series.
		opIncome = []float64{0}
	}

	n := len(opIncome)
	if len(revenue) < n {
		n = len(revenue)
	}

	var sum float64
	var valid int
	for i := 0; i < n; i++ {
		if math.IsNaN(opIncome[i]) || math.IsNaN(revenue[i]) || revenue[i] == 0 {
			continue
		}
		sum += opIncome[i] / revenue[i]
		valid++
	}
	if valid == 0 {
		return 0, false, false
	}

	avg = sum / float64(valid)
	return avg, avg > fortressThreshold, avg > 0
}

// interestCoverage is EBIT over the absolute interest expense; zero interest
// expense reports the no-debt sentinel.
func interestCoverage(income yahoo.Statement) float64 {
	ebit := income.Latest(ebitNames...)
	intExp := math.Abs(income.Latest(interestNames...))
	if intExp == 0 {
		return noDebtCoverage
	}
	return ebit / intExp
}

// returnOnInvestedCapital is EBIT over (total assets - current liabilities),
// or zero when invested capital is not positive.
func returnOnInvestedCapital(income, balance yahoo.Statement) float64 {
	ebit := income.Latest(ebitNames...)
	investedCap := balance.Latest(totalAssetNames...) - balance.Latest(currLiabNames...)
	if investedCap <= 0 {
		return 0
	}
	return ebit / investedCap
}

// altmanZ computes the Altman Z-Score:
//
//	Z = 1.2*A + 1.4*B + 3.3*C + 0.6*D + 1.0*E
//
// where A = working capital / total assets, B = retained earnings / total
// assets, C = EBIT / total assets, D = market cap / total liabilities and
// E = revenue / total assets. Returns 0 when total assets or total
// liabilities are unavailable.
func altmanZ(balance, income yahoo.Statement, marketCap float64) float64 {
	totalAssets := balance.Latest(totalAssetNames...)
	totalLiab := balance.Latest(totalLiabNames...)
	if totalAssets == 0 || totalLiab == 0 {
		return 0
	}

	currentAssets := balance.Latest(currAssetNames...)
	currentLiab := balance.Latest(currLiabNames...)
	retained := balance.Latest(retainedNames...)
	ebit := income.Latest("EBIT", "Operating Income")
	revenue := income.Latest(revenueNames...)

	a := (currentAssets - currentLiab) / totalAssets
	b := retained / totalAssets
	c := ebit / totalAssets
	d := marketCap / totalLiab
	e := revenue / totalAssets

	return 1.2*a + 1.4*b + 3.3*c + 0.6*d + 1.0*e
}
