package records

import "sync"

// IdentityCache maps (entity type, id) to the live Record so stores loading
// overlapping data converge on one instance. Records insert themselves when
// they first hold an id and evict themselves on destruction.
type IdentityCache interface {
	Get(typ, id string) (*Record, bool)
	Put(rec *Record)
	Evict(typ, id string)
	Len() int
}

type identityKey struct {
	typ string
	id  string
}

// MemoryIdentityCache is the default IdentityCache.
type MemoryIdentityCache struct {
	mu      sync.RWMutex
	records map[identityKey]*Record
}

// NewMemoryIdentityCache constructs an empty cache.
func NewMemoryIdentityCache() *MemoryIdentityCache {
	return &MemoryIdentityCache{records: map[identityKey]*Record{}}
}

func (c *MemoryIdentityCache) Get(typ, id string) (*Record, bool) {
	if typ == "" || id == "" {
		return nil, false
	}
	c.mu.RLock()
	rec, ok := c.records[identityKey{typ, id}]
	c.mu.RUnlock()
	return rec, ok
}

// Put stores rec under its type and id. Untyped or id-less records are ignored.
func (c *MemoryIdentityCache) Put(rec *Record) {
	if rec == nil || rec.model == nil || rec.model.Type == "" || rec.id == "" {
		return
	}
	c.mu.Lock()
	if c.records == nil {
		c.records = map[identityKey]*Record{}
	}
	c.records[identityKey{rec.model.Type, rec.id}] = rec
	c.mu.Unlock()
}

func (c *MemoryIdentityCache) Evict(typ, id string) {
	c.mu.Lock()
	delete(c.records, identityKey{typ, id})
	c.mu.Unlock()
}

func (c *MemoryIdentityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
