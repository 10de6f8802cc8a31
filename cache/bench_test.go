package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkStore_Get_Hit measures cache hit performance.
func BenchmarkStore_Get_Hit(b *testing.B) {
	s, _ := NewStore(DefaultStoreConfig())

	// Pre-populate
	_ = s.Put("key", []byte("value"), time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Get("key")
	}
}

// BenchmarkStore_Get_Miss measures cache miss performance.
func BenchmarkStore_Get_Miss(b *testing.B) {
	s, _ := NewStore(DefaultStoreConfig())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Get("nonexistent")
	}
}

// BenchmarkStore_Put_Evicting measures puts that each force an eviction.
func BenchmarkStore_Put_Evicting(b *testing.B) {
	s, _ := NewStore(StoreConfig{MaxSizeBytes: 1024})
	value := make([]byte, 128)
	keys := make([]string, 1000)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Put(keys[i%len(keys)], value, time.Hour)
	}
}

// BenchmarkStore_Concurrent_ReadHeavy measures parallel hits.
func BenchmarkStore_Concurrent_ReadHeavy(b *testing.B) {
	s, _ := NewStore(DefaultStoreConfig())
	for i := 0; i < 100; i++ {
		_ = s.Put(fmt.Sprintf("key-%d", i), []byte("value"), time.Hour)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = s.Get(fmt.Sprintf("key-%d", i%100))
			i++
		}
	})
}

// BenchmarkDefaultKeyer_Key measures key generation.
func BenchmarkDefaultKeyer_Key(b *testing.B) {
	keyer := NewDefaultKeyer()
	q := Query{Category: "roster", Dimensions: Dimensions{"league": "nfl.l.1", "team": "nfl.l.1.t.3", "week": "7"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Key(q)
	}
}

// BenchmarkPolicy_Classify measures category classification.
func BenchmarkPolicy_Classify(b *testing.B) {
	p := Policy{
		VolatileTTL: time.Minute,
		Regimes:     map[string]Regime{"draft_results.history": RegimePermanent},
	}.normalized()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Classify("draft_results.history")
	}
}

// BenchmarkCoordinator_Resolve_Hit measures the read-through hit path.
func BenchmarkCoordinator_Resolve_Hit(b *testing.B) {
	s, _ := NewStore(DefaultStoreConfig())
	c, _ := NewCoordinator(s, nil, DefaultPolicy())
	ctx := context.Background()
	q := Query{Category: "standings", Dimensions: Dimensions{"league": "X"}}
	fetch := func(ctx context.Context) ([]byte, error) { return []byte("table"), nil }
	_, _ = c.Resolve(ctx, q, fetch)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Resolve(ctx, q, fetch)
	}
}
