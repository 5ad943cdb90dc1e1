package cache

import (
	"sort"
	"sync"

	"github.com/rcsfx/extension/internal/part"
)

// PartCache holds the thruster parts registered by the host, keyed by part id.
// Lookups happen on every tick so they never touch storage.
type PartCache struct {
	m     sync.Mutex
	Parts map[string]*part.Part
}

func NewPartCache() *PartCache {
	return &PartCache{
		m:     sync.Mutex{},
		Parts: make(map[string]*part.Part),
	}
}

func (c *PartCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Parts = make(map[string]*part.Part)
}

func (c *PartCache) Get(id string) (*part.Part, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	p, ok := c.Parts[id]
	return p, ok
}

// Add registers p, replacing any part with the same id.
func (c *PartCache) Add(p *part.Part) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Parts[p.ID] = p
}

func (c *PartCache) Remove(id string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.Parts, id)
}

func (c *PartCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Parts)
}

// All returns the parts ordered by id, so ticks touch the propellant pool in
// a stable order.
func (c *PartCache) All() []*part.Part {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]*part.Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
