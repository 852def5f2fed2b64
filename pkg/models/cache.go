package models

// CacheStats reports response-cache performance counters.
type CacheStats struct {
	Entries    int64 `json:"entries"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	StaleHits  int64 `json:"stale_hits"`
	Evictions  int64 `json:"evictions"`
}
