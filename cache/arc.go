// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/vechain/forkstate/metrics"
)

var metricCacheHitMiss = metrics.LazyLoadGaugeVec("cache_hit_miss_count", []string{"type", "event"})

// reportEvery is the number of hits between two metric reports.
const reportEvery = 2000

// ARC is a bounded adaptive replacement cache which keeps hit/miss stats.
// It is safe for concurrent use.
type ARC struct {
	name  string
	arc   *lru.ARCCache
	stats Stats
}

// NewARC creates an ARC cache holding at most size entries.
// The name labels the reported metrics. size must be > 0.
func NewARC(name string, size int) (*ARC, error) {
	c, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &ARC{name: name, arc: c}, nil
}

// Get returns the cached value for key.
func (c *ARC) Get(key interface{}) (interface{}, bool) {
	v, ok := c.arc.Get(key)
	if ok {
		if c.stats.Hit()%reportEvery == 0 {
			c.report()
		}
	} else {
		c.stats.Miss()
	}
	return v, ok
}

// Add adds a value to the cache.
func (c *ARC) Add(key, value interface{}) {
	c.arc.Add(key, value)
}

// Contains reports whether key is cached, without touching recency or stats.
func (c *ARC) Contains(key interface{}) bool {
	return c.arc.Contains(key)
}

// Len returns the number of cached entries.
func (c *ARC) Len() int {
	return c.arc.Len()
}

// Purge drops all entries and resets the stats.
func (c *ARC) Purge() {
	c.arc.Purge()
	c.stats.Reset()
}

// Stats returns the hit/miss collector of the cache.
func (c *ARC) Stats() *Stats {
	return &c.stats
}

func (c *ARC) report() {
	_, hit, miss := c.stats.Stats()
	metricCacheHitMiss().SetWithLabel(hit, map[string]string{"type": c.name, "event": "hit"})
	metricCacheHitMiss().SetWithLabel(miss, map[string]string{"type": c.name, "event": "miss"})
}
