package cache

// DefaultCapacity is the number of sentences kept when no capacity is
// configured.
const DefaultCapacity = 50

// Stats holds cache performance metrics.
type Stats struct {
	Capacity  int     // Maximum number of entries
	Entries   int     // Current number of entries
	Hits      int64   // Number of cache hits
	Misses    int64   // Number of cache misses
	Evictions int64   // Number of LRU evictions
	HitRate   float64 // hits / (hits + misses)
}
