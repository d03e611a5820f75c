package cache

import "time"

// Stats holds cache counters.
type Stats struct {
	ItemCount     int64 // Entries currently held
	Size          int64 // Bytes of sample data held
	Hits          int64
	Misses        int64
	Invalidations int64 // Entries removed by Invalidate
	Clears        int64
	HitRate       float64 // hits / (hits + misses)

	LastAccess time.Time
	LastClear  time.Time
}
