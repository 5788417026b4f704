package trend

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"go.uber.org/zap"
)

// AlpacaBars supplies daily adjusted bars from the Alpaca market data API.
type AlpacaBars struct {
	client *marketdata.Client
	log    *zap.Logger
}

func NewAlpacaBars(apiKey, apiSecret string, log *zap.Logger) *AlpacaBars {
	return &AlpacaBars{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		log: log,
	}
}

// DailyBars fetches split- and dividend-adjusted daily bars for all symbols
// in a single bulk request.
func (a *AlpacaBars) DailyBars(symbols []string, lookback time.Duration) (map[string][]Bar, error) {
	end := time.Now()
	start := end.Add(-lookback)

	multiBars, err := a.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily bars: %w", err)
	}

	history := make(map[string][]Bar, len(multiBars))
	for symbol, bars := range multiBars {
		series := make([]Bar, len(bars))
		for i, b := range bars {
			series[i] = Bar{Date: b.Timestamp, Close: b.Close}
		}
		history[symbol] = series
	}

	a.log.Debug("fetched price history",
		zap.Int("requested", len(symbols)), zap.Int("returned", len(history)))

	return history, nil
}
