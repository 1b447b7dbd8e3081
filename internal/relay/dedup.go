package relay

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// dedupCache remembers recently accepted bid keys so a retried bid.submit
// (lost ack, client resend) is acked idempotently instead of appended
// again. Ristretto's admission policy makes this best-effort: a rare
// duplicate append is harmless because consumers rank by wager, not count.
type dedupCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func newDedupCache(ttl time.Duration) (*dedupCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100000, // 10x expected max live bids
		MaxCost:     10000,  // item-counted, not byte-counted
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &dedupCache{
		cache: cache,
		ttl:   ttl,
	}, nil
}

func (d *dedupCache) seen(key string) bool {
	_, found := d.cache.Get(key)
	return found
}

func (d *dedupCache) mark(key string) {
	d.cache.SetWithTTL(key, struct{}{}, 1, d.ttl)
}

// wait blocks until pending writes are applied. Test hook.
func (d *dedupCache) wait() {
	d.cache.Wait()
}

func (d *dedupCache) close() {
	d.cache.Close()
}
