package yahoo

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Quote carries the summary fields used by the bulk screen. A nil TrailingPE
// means the P/E is unknown (unprofitable or no data), which is distinct from
// zero.
type Quote struct {
	Symbol          string
	Price           float64
	AvgVolume       float64
	AvgVolume10Day  float64
	MarketCap       float64
	Sector          string
	CurrentRatio    float64
	OperatingMargin float64
	TrailingPE      *float64
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []map[string]interface{} `json:"result"`
		Error  interface{}              `json:"error"`
	} `json:"quoteResponse"`
}

// quoteFields is the field list requested from the quote endpoint. Anything
// the provider has no data for is simply omitted from the result map.
const quoteFields = "symbol,regularMarketPrice,averageDailyVolume3Month," +
	"averageDailyVolume10Day,marketCap,sector,currentRatio,operatingMargins,trailingPE"

// BulkQuotes fetches summary fields for up to 500 symbols in one call.
// Symbols absent from the result map failed on the provider side and are
// treated as unavailable, not as an error.
func (c *Client) BulkQuotes(symbols []string) (map[string]Quote, error) {
	if len(symbols) == 0 {
		return map[string]Quote{}, nil
	}
	if len(symbols) > 500 {
		return nil, fmt.Errorf("bulk quote request exceeds provider limit: %d symbols", len(symbols))
	}

	params := url.Values{}
	params.Add("symbols", strings.Join(symbols, ","))
	params.Add("fields", quoteFields)
	reqURL := c.BaseURL + "/v7/finance/quote?" + params.Encode()

	var result quoteResponse
	if err := c.getJSON(reqURL, &result); err != nil {
		return nil, err
	}
	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote API error: %v", result.QuoteResponse.Error)
	}

	quotes := make(map[string]Quote, len(result.QuoteResponse.Result))
	for _, info := range result.QuoteResponse.Result {
		symbol := getString(info, "symbol", "")
		if symbol == "" {
			continue
		}
		quotes[symbol] = Quote{
			Symbol:          symbol,
			Price:           getFloat64OrZero(info, "regularMarketPrice"),
			AvgVolume:       getFloat64OrZero(info, "averageDailyVolume3Month"),
			AvgVolume10Day:  getFloat64OrZero(info, "averageDailyVolume10Day"),
			MarketCap:       getFloat64OrZero(info, "marketCap"),
			Sector:          getString(info, "sector", "Unknown"),
			CurrentRatio:    getFloat64OrZero(info, "currentRatio"),
			OperatingMargin: getFloat64OrZero(info, "operatingMargins"),
			TrailingPE:      getFloat64(info, "trailingPE"),
		}
	}

	c.log.Debug("fetched bulk quotes",
		zap.Int("requested", len(symbols)),
		zap.Int("returned", len(quotes)))

	return quotes, nil
}
