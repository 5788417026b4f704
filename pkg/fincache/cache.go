package fincache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"
)

// FailedROIC marks an entry whose underlying fetch failed. The analyzer skips
// refetching the ticker until the entry expires instead of retrying every run.
const FailedROIC = -999

// Entry holds the metrics cached for one ticker.
type Entry struct {
	Timestamp int64   `json:"timestamp"`
	ZScore    float64 `json:"z_score"`
	ROIC      float64 `json:"roic"`
	IntCov    float64 `json:"int_cov"`
}

// Failed reports whether the entry records a previously failed fetch.
func (e Entry) Failed() bool {
	return e.ROIC == FailedROIC
}

// FailedEntry builds the sentinel entry written when a ticker's data could not
// be fetched.
func FailedEntry(now time.Time) Entry {
	return Entry{Timestamp: now.Unix(), ZScore: 0, ROIC: FailedROIC, IntCov: 0}
}

// Fresh reports whether the entry is still valid at the given time. Expired
// entries are treated as absent and must be refetched.
func Fresh(e Entry, now time.Time, expiry time.Duration) bool {
	return now.Unix()-e.Timestamp < int64(expiry.Seconds())
}

// Cache is a flat ticker-to-metrics mapping persisted as a single JSON
// document. It is loaded once at the start of an analyzer run and saved once
// at the end; there is no per-entry durability mid-run.
type Cache struct {
	path    string
	entries map[string]Entry
	log     *zap.Logger
}

func New(path string, log *zap.Logger) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]Entry),
		log:     log,
	}
}

// Load reads the persisted mapping. A missing or corrupt file is treated as an
// empty cache, never a fatal error. A corrupt file gets one repair attempt
// before being discarded.
func (c *Cache) Load() {
	b, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("could not read cache file, starting empty",
				zap.String("path", c.path), zap.Error(err))
		}
		return
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(b, &entries); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(string(b))
		if rerr != nil || json.Unmarshal([]byte(repaired), &entries) != nil {
			c.log.Warn("cache file corrupt beyond repair, starting empty",
				zap.String("path", c.path), zap.Error(err))
			return
		}
		c.log.Info("repaired corrupt cache file", zap.String("path", c.path))
	}

	c.entries = entries
}

// Get returns the entry for a ticker.
func (c *Cache) Get(ticker string) (Entry, bool) {
	e, ok := c.entries[ticker]
	return e, ok
}

// Put records the entry for a ticker. The change is not durable until Save.
func (c *Cache) Put(ticker string, e Entry) {
	c.entries[ticker] = e
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Save persists the full mapping atomically (write temp file, then rename).
// Last writer wins.
func (c *Cache) Save() error {
	b, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}

	return nil
}
