package devices

import (
	"sync"
	"time"

	"github.com/KevinKickass/HomeGateway/internal/helios"
)

// Entry is the last known state of one parameter.
type Entry struct {
	Name      string        `json:"name"`
	Key       string        `json:"key"`
	Value     helios.Value  `json:"value"`
	Status    helios.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"` // last Good read or write
	CheckedAt time.Time     `json:"checked_at"` // last attempt
}

// Change is a parameter whose value differs from the cached one.
type Change struct {
	Name     string       `json:"name"`
	Key      string       `json:"key"`
	Value    helios.Value `json:"value"`
	Previous helios.Value `json:"previous"`
	At       time.Time    `json:"at"`
}

// Cache holds the last Good value of every parameter. Failed reads only
// update the status so a flaky link does not wipe known values.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Update records the outcome of one read or write.
func (c *Cache) Update(desc helios.Descriptor, v helios.Value, st helios.Status, at time.Time) (Change, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, known := c.entries[desc.Name]
	e.Name = desc.Name
	e.Key = desc.Key
	e.Status = st
	e.CheckedAt = at

	if st != helios.Good {
		c.entries[desc.Name] = e
		return Change{}, false
	}

	prev := e.Value
	e.Value = v
	e.UpdatedAt = at
	c.entries[desc.Name] = e

	if known && prev.Equal(v) {
		return Change{}, false
	}
	return Change{Name: desc.Name, Key: desc.Key, Value: v, Previous: prev, At: at}, true
}

// Merge folds a full read into the cache and returns the changed parameters
// in registry order.
func (c *Cache) Merge(r *helios.Registry, snap *helios.Snapshot) []Change {
	changes := make([]Change, 0)
	for _, name := range r.Names() {
		st, read := snap.Status(name)
		if !read {
			continue
		}
		desc, err := r.Descriptor(name)
		if err != nil {
			continue
		}
		v, _ := snap.Get(name)
		if ch, changed := c.Update(desc, v, st, snap.ReadAt); changed {
			changes = append(changes, ch)
		}
	}
	return changes
}

func (c *Cache) Get(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// All returns a copy of all entries.
func (c *Cache) All() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
