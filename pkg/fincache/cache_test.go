package fincache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tempCache(t *testing.T) *Cache {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "financial_cache.json"), zap.NewNop())
}

func TestFreshness(t *testing.T) {
	expiry := 7 * 24 * time.Hour
	stored := time.Now()
	entry := Entry{Timestamp: stored.Unix(), ZScore: 2.5, ROIC: 0.12, IntCov: 8}

	assert.True(t, Fresh(entry, stored, expiry))
	assert.True(t, Fresh(entry, stored.Add(expiry-time.Second), expiry))
	assert.False(t, Fresh(entry, stored.Add(expiry+time.Second), expiry))
}

func TestFailedSentinel(t *testing.T) {
	now := time.Now()

	failed := FailedEntry(now)
	assert.True(t, failed.Failed())
	assert.Equal(t, now.Unix(), failed.Timestamp)

	ok := Entry{Timestamp: now.Unix(), ROIC: 0.08}
	assert.False(t, ok.Failed())
}

func TestSaveLoadRoundtrip(t *testing.T) {
	c := tempCache(t)
	now := time.Now()

	c.Put("AAPL", Entry{Timestamp: now.Unix(), ZScore: 5.12, ROIC: 0.31, IntCov: 42.5})
	c.Put("XYZ", FailedEntry(now))
	require.NoError(t, c.Save())

	reloaded := New(c.path, zap.NewNop())
	reloaded.Load()
	require.Equal(t, 2, reloaded.Len())

	entry, ok := reloaded.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 5.12, entry.ZScore)
	assert.Equal(t, 0.31, entry.ROIC)
	assert.Equal(t, 42.5, entry.IntCov)

	failed, ok := reloaded.Get("XYZ")
	require.True(t, ok)
	assert.True(t, failed.Failed())
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	c := tempCache(t)
	c.Load()
	assert.Equal(t, 0, c.Len())
}

func TestLoadCorruptFileIsEmpty(t *testing.T) {
	c := tempCache(t)
	require.NoError(t, os.WriteFile(c.path, []byte("not json at all {{{["), 0644))

	c.Load()
	assert.Equal(t, 0, c.Len())
}

func TestLoadRepairsSalvageableFile(t *testing.T) {
	c := tempCache(t)
	// Trailing comma and unquoted key: invalid JSON, but mechanically fixable.
	damaged := `{AAPL: {"timestamp": 1700000000, "z_score": 3.1, "roic": 0.2, "int_cov": 10},}`
	require.NoError(t, os.WriteFile(c.path, []byte(damaged), 0644))

	c.Load()
	entry, ok := c.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 3.1, entry.ZScore)
}

func TestSaveOverwritesPrevious(t *testing.T) {
	c := tempCache(t)
	now := time.Now().Unix()

	c.Put("AAPL", Entry{Timestamp: now, ZScore: 1})
	require.NoError(t, c.Save())

	c.Put("AAPL", Entry{Timestamp: now, ZScore: 2})
	require.NoError(t, c.Save())

	reloaded := New(c.path, zap.NewNop())
	reloaded.Load()
	entry, ok := reloaded.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 2.0, entry.ZScore)
}
