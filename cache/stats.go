package cache

// Stats is a point-in-time snapshot of store statistics.
type Stats struct {
	Entries           int     `json:"entries"`
	PermanentEntries  int     `json:"permanent_entries"`
	VolatileEntries   int     `json:"volatile_entries"`
	SizeBytes         int64   `json:"size_bytes"`
	MaxSizeBytes      int64   `json:"max_size_bytes"`
	Hits              int64   `json:"hits"`
	Misses            int64   `json:"misses"`
	HitRate           float64 `json:"hit_rate"`
	Evictions         int64   `json:"evictions"`
	Expirations       int64   `json:"expirations"`
	CapacityAnomalies int64   `json:"capacity_anomalies"`
	Oversized         int64   `json:"oversized"`
}

// UsageRatio returns SizeBytes / MaxSizeBytes.
func (s Stats) UsageRatio() float64 {
	if s.MaxSizeBytes <= 0 {
		return 0
	}
	return float64(s.SizeBytes) / float64(s.MaxSizeBytes)
}

// CoordinatorStats adds fetch accounting to the store snapshot.
type CoordinatorStats struct {
	Stats
	Fetches     int64 `json:"fetches"`
	FetchErrors int64 `json:"fetch_errors"`
	Coalesced   int64 `json:"coalesced"`
}
