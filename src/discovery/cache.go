package discovery

import (
	"sync"

	"restic-backup-service/src/repository"
)

// Cache holds successful scan results for one invocation. Entries are
// written once per address; failed scans are never stored.
type Cache struct {
	mu      sync.RWMutex
	entries map[repository.Address]repository.Data
}

func NewCache() *Cache {
	return &Cache{entries: make(map[repository.Address]repository.Data)}
}

// Get returns the cached data for addr.
func (c *Cache) Get(addr repository.Address) (repository.Data, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[addr]
	return d, ok
}

// Put stores d. Storing the same snapshot set again is a no-op; a different
// set for an address already present returns a CacheConsistencyError.
func (c *Cache) Put(d repository.Data) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[d.Address]; ok {
		if sameSnapshots(existing, d) {
			return nil
		}
		return &CacheConsistencyError{Address: d.Address, Cached: len(existing.Snapshots), Incoming: len(d.Snapshots)}
	}
	c.entries[d.Address] = d
	return nil
}

// OriginalPath returns the path addr backs up, read from the recorded paths
// of its most recent snapshot. The segment is never decoded.
func (c *Cache) OriginalPath(addr repository.Address) (string, bool) {
	d, ok := c.Get(addr)
	if !ok {
		return "", false
	}
	p := d.OriginalPath()
	return p, p != ""
}

// Len returns the number of cached repositories.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func sameSnapshots(a, b repository.Data) bool {
	if len(a.Snapshots) != len(b.Snapshots) {
		return false
	}
	for i := range a.Snapshots {
		if a.Snapshots[i].ID != b.Snapshots[i].ID {
			return false
		}
	}
	return true
}
