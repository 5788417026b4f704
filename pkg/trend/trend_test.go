package trend

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fortress/pkg/analyzer"
	"fortress/pkg/config"
)

type fakeBars struct {
	history map[string][]Bar
	err     error
}

func (f *fakeBars) DailyBars(symbols []string, lookback time.Duration) (map[string][]Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

// flatSeries builds n daily bars ending today, all at the same close.
func flatSeries(n int, close float64) []Bar {
	bars := make([]Bar, n)
	start := time.Now().AddDate(0, 0, -n)
	for i := range bars {
		bars[i] = Bar{Date: start.AddDate(0, 0, i), Close: close}
	}
	return bars
}

// risingSeries is flat at base except for the final close.
func risingSeries(n int, base, last float64) []Bar {
	bars := flatSeries(n, base)
	bars[n-1].Close = last
	return bars
}

func analyzed(ticker string) analyzer.Analyzed {
	return analyzer.Analyzed{Ticker: ticker, Tier: analyzer.TierStrong, Price: 100}
}

func newTestFilter(bars BarProvider) *Filter {
	return New(bars, config.Default().Trend, zap.NewNop())
}

func TestRunKeepsUptrendOnly(t *testing.T) {
	fake := &fakeBars{history: map[string][]Bar{
		"UP":   risingSeries(250, 100, 120),
		"FLAT": flatSeries(250, 100),
		"DOWN": risingSeries(250, 100, 80),
	}}

	got := newTestFilter(fake).Run([]analyzer.Analyzed{
		analyzed("UP"), analyzed("FLAT"), analyzed("DOWN"),
	})

	require.Len(t, got, 1)
	assert.Equal(t, "UP", got[0].Ticker)
	// SMA over the last 200 bars: (199*100 + 120) / 200.
	assert.InDelta(t, 100.10, got[0].SMA200, 0.001)
	assert.InDelta(t, 19.88, got[0].TrendDistPct, 0.01)
}

func TestRunExactlyOnAverageIsExcluded(t *testing.T) {
	// All closes equal: latest == SMA, which does not count as an uptrend.
	fake := &fakeBars{history: map[string][]Bar{
		"EDGE": flatSeries(200, 50),
	}}

	got := newTestFilter(fake).Run([]analyzer.Analyzed{analyzed("EDGE")})
	assert.Empty(t, got)
}

func TestRunDropsShortHistory(t *testing.T) {
	fake := &fakeBars{history: map[string][]Bar{
		"NEW": risingSeries(199, 100, 200),
	}}

	got := newTestFilter(fake).Run([]analyzer.Analyzed{analyzed("NEW")})
	assert.Empty(t, got)
}

func TestRunDropsMissingTicker(t *testing.T) {
	fake := &fakeBars{history: map[string][]Bar{}}

	got := newTestFilter(fake).Run([]analyzer.Analyzed{analyzed("GONE")})
	assert.Empty(t, got)
}

func TestRunSortsByDistanceAscending(t *testing.T) {
	fake := &fakeBars{history: map[string][]Bar{
		"FAR":  risingSeries(250, 100, 140),
		"NEAR": risingSeries(250, 100, 101),
		"MID":  risingSeries(250, 100, 115),
	}}

	got := newTestFilter(fake).Run([]analyzer.Analyzed{
		analyzed("FAR"), analyzed("NEAR"), analyzed("MID"),
	})

	require.Len(t, got, 3)
	assert.Equal(t, "NEAR", got[0].Ticker)
	assert.Equal(t, "MID", got[1].Ticker)
	assert.Equal(t, "FAR", got[2].Ticker)
}

func TestRunPassthroughOnTotalFailure(t *testing.T) {
	fake := &fakeBars{err: errors.New("upstream down")}

	input := []analyzer.Analyzed{analyzed("AAA"), analyzed("BBB")}
	got := newTestFilter(fake).Run(input)

	require.Len(t, got, 2)
	for i, r := range got {
		assert.Equal(t, input[i].Ticker, r.Ticker)
		assert.Zero(t, r.SMA200)
		assert.Zero(t, r.TrendDistPct)
	}
}

func TestRunEmptyInput(t *testing.T) {
	got := newTestFilter(&fakeBars{}).Run(nil)
	assert.Nil(t, got)
}
