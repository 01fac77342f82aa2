package index

import (
	"math"
	"tzf/geometry"

	"github.com/pkg/errors"
)

const DefaultRingCacheSize = 1000

// lruRingCache is a simple LRU (least recently used) cache for decoded polygon rings. The recency of an entry is a
// counter value that increases with every access. It has no locking since an Index is used by one goroutine only.
// A cache with a maximum size of 0 never stores anything.
type lruRingCache struct {
	rings           map[int]geometry.FixedRing // Polygon id to its outer ring
	lastAccessTimes map[int]uint64             // Polygon id to counter value of last access
	accessCounter   uint64
	maxSize         int // Maximum number of rings this cache should hold
}

func newLruRingCache(maxSize int) *lruRingCache {
	return &lruRingCache{
		rings:           map[int]geometry.FixedRing{},
		lastAccessTimes: map[int]uint64{},
		maxSize:         maxSize,
	}
}

func (c *lruRingCache) has(polygonID int) bool {
	_, ok := c.rings[polygonID]
	return ok
}

func (c *lruRingCache) get(polygonID int) (geometry.FixedRing, bool) {
	ring, ok := c.rings[polygonID]
	if ok {
		c.touch(polygonID)
	}
	return ring, ok
}

// insert adds the ring to the cache. If the cache is full, the ring that hasn't been used longest will be evicted.
func (c *lruRingCache) insert(polygonID int, ring geometry.FixedRing) error {
	if c.has(polygonID) {
		return errors.Errorf("Ring of polygon %d is already in the cache", polygonID)
	}
	if c.maxSize <= 0 {
		return nil
	}

	if len(c.rings) >= c.maxSize {
		longestUnusedPolygonID := c.getMinEntry()
		delete(c.rings, longestUnusedPolygonID)
		delete(c.lastAccessTimes, longestUnusedPolygonID)
	}

	c.rings[polygonID] = ring
	c.touch(polygonID)
	return nil
}

func (c *lruRingCache) touch(polygonID int) {
	c.accessCounter++
	c.lastAccessTimes[polygonID] = c.accessCounter
}

// getMinEntry returns the polygon id of the ring that hasn't been used longest.
func (c *lruRingCache) getMinEntry() int {
	minAccessTime := uint64(math.MaxUint64)
	minPolygonID := -1

	for polygonID, accessTime := range c.lastAccessTimes {
		if accessTime < minAccessTime {
			minAccessTime = accessTime
			minPolygonID = polygonID
		}
	}

	return minPolygonID
}
