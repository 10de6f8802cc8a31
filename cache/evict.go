package cache

import "go.uber.org/zap"

// evictionResult records what one budget pass did, for logging outside the
// lock.
type evictionResult struct {
	evicted   int
	anomaly   bool
	sizeBytes int64
	maxBytes  int64
}

// enforceBudgetLocked evicts least recently used volatile entries until the
// store fits its budget. Permanent entries are never candidates; if only
// permanent entries remain and the store is still over budget, the write is
// kept and a capacity anomaly is counted. Callers hold s.mu.
func (s *Store) enforceBudgetLocked() evictionResult {
	var res evictionResult
	for s.size > s.maxSize {
		_, e, ok := s.volatile.RemoveOldest()
		if !ok {
			s.counters.capacityAnomalies++
			res.anomaly = true
			break
		}
		s.size -= e.Size
		s.counters.evictions++
		res.evicted++
	}
	res.sizeBytes = s.size
	res.maxBytes = s.maxSize
	return res
}

func (s *Store) logEviction(res evictionResult) {
	if res.evicted > 0 {
		s.logger.Debug("evicted volatile cache entries",
			zap.Int("count", res.evicted),
			zap.Int64("size_bytes", res.sizeBytes),
		)
	}
	if res.anomaly {
		s.logger.Warn("cache over budget with only permanent entries left",
			zap.Int64("size_bytes", res.sizeBytes),
			zap.Int64("max_size_bytes", res.maxBytes),
		)
	}
}
