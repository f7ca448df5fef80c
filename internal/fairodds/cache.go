package fairodds

import (
	"fmt"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/oddsedge/internal/metrics"
	"github.com/yourusername/oddsedge/internal/models"
)

// ConsensusKey identifies one consensus computation. A new quote timestamp
// produces a new key, so refreshed odds never hit a stale entry.
type ConsensusKey struct {
	FixtureID string
	Market    string
	Method    string
	Books     int
	UpdatedAt time.Time
}

// String returns string representation of cache key
func (k ConsensusKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", k.FixtureID, k.Market, k.Method, k.Books, k.UpdatedAt.UnixNano())
}

// ConsensusCache memoises consensus distributions for the lifetime of a quote refresh.
type ConsensusCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewConsensusCache creates a consensus cache with the given entry lifetime.
func NewConsensusCache(ttl time.Duration) *ConsensusCache {
	return &ConsensusCache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Get retrieves a cached distribution.
func (cc *ConsensusCache) Get(key ConsensusKey) (models.Distribution, bool) {
	if v, found := cc.cache.Get(key.String()); found {
		if dist, ok := v.(models.Distribution); ok {
			cc.hitCount.Add(1)
			metrics.RecordConsensusCache(true)
			return dist, true
		}
	}
	cc.missCount.Add(1)
	metrics.RecordConsensusCache(false)
	return models.Distribution{}, false
}

// Set stores a distribution.
func (cc *ConsensusCache) Set(key ConsensusKey, dist models.Distribution) {
	cc.cache.Set(key.String(), dist, cc.ttl)
}

// Clear flushes the entire cache
func (cc *ConsensusCache) Clear() {
	cc.cache.Flush()
	cc.hitCount.Store(0)
	cc.missCount.Store(0)
}

// Stats returns cache statistics
func (cc *ConsensusCache) Stats() (hits, misses uint64, ratio float64) {
	hits = cc.hitCount.Load()
	misses = cc.missCount.Load()
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (cc *ConsensusCache) ItemCount() int {
	return cc.cache.ItemCount()
}
