package pipeline

import (
	"sort"
	"strings"
	"sync"

	"ForecastSentinel/internal/metrics"
	"ForecastSentinel/internal/model"
)

type cacheKey struct {
	symbol    string
	timeframe model.Timeframe
}

// ResultCache holds the latest run result per instrument and timeframe.
// Entries live until they are invalidated or replaced by a newer run.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]model.RunResult
}

func NewResultCache() *ResultCache {
	return &ResultCache{entries: make(map[cacheKey]model.RunResult)}
}

func key(symbol string, tf model.Timeframe) cacheKey {
	return cacheKey{symbol: strings.ToUpper(symbol), timeframe: tf}
}

func (c *ResultCache) Get(symbol string, tf model.Timeframe) (model.RunResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key(symbol, tf)]
	return r, ok
}

func (c *ResultCache) Put(res model.RunResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(res.Instrument.Symbol, res.Timeframe)] = res
}

// Invalidate drops every timeframe cached for symbol.
func (c *ResultCache) Invalidate(symbol, trigger string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sym := strings.ToUpper(symbol)
	for k := range c.entries {
		if k.symbol == sym {
			delete(c.entries, k)
		}
	}
	metrics.CacheInvalidations.WithLabelValues(trigger).Inc()
}

// InvalidateAll empties the cache.
func (c *ResultCache) InvalidateAll(trigger string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]model.RunResult)
	metrics.CacheInvalidations.WithLabelValues(trigger).Inc()
}

// All returns the cached results ordered by symbol then timeframe.
func (c *ResultCache) All() []model.RunResult {
	c.mu.RLock()
	out := make([]model.RunResult, 0, len(c.entries))
	for _, r := range c.entries {
		out = append(out, r)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Instrument.Symbol != out[j].Instrument.Symbol {
			return out[i].Instrument.Symbol < out[j].Instrument.Symbol
		}
		return out[i].Timeframe < out[j].Timeframe
	})
	return out
}
