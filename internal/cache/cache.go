package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
}

// Stats counts cache lookups
type Stats struct {
	Hits     int64
	Misses   int64
	DiskHits int64 // subset of Hits served by the disk layer
	Entries  int   // live entries in memory
}

// StatsReporter is implemented by caches that count lookups
type StatsReporter interface {
	Stats() Stats
}

// Key derives a cache key from the parts that determine a value.
// Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		size := uint64(len(p))
		for i := range n {
			n[i] = byte(size >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return "patrace:v1:" + hex.EncodeToString(h.Sum(nil))
}
