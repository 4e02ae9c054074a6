package index

import (
	"github.com/FinesserULTRA/Search-Engine/internal/barrel"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
)

// Observe wires both shard stores to the Prometheus collectors. Call once
// after OpenStorage, before the storage is shared.
func (s *Storage) Observe(m *metrics.Metrics) {
	wire := func(st interface{ SetObserver(barrel.Observer) }, kind string) {
		st.SetObserver(barrel.Observer{
			CacheHit:  m.BarrelCacheHits.Inc,
			CacheMiss: m.BarrelCacheMisses.Inc,
			DiskLoad: func() {
				m.BarrelLoadsTotal.WithLabelValues(kind).Inc()
			},
			CorruptShard: func() {
				m.CorruptShardsTotal.WithLabelValues(kind).Inc()
			},
		})
	}
	wire(s.Forward, "forward_"+string(s.Target))
	wire(s.Inverted, "inverted_"+string(s.Target))
}
