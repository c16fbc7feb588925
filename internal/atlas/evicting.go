package atlas

// evictPolicy sweeps unused entries at most once between successful
// allocations, and grows the atlas otherwise.
type evictPolicy struct {
	canEvict bool
}

func (p *evictPolicy) allocated() {
	p.canEvict = true
}

func (p *evictPolicy) outOfSpace(c *Cache) {
	if p.canEvict {
		c.evict()
		p.canEvict = false
		return
	}
	c.addPage()
}

// NewEvictingCache returns a cache that, when full, first drops every entry
// no tile graphic holds before adding a page.
func NewEvictingCache(info InfoProvider, opts ...Option) *Cache {
	return newCache(info, &evictPolicy{canEvict: true}, opts)
}

// evict removes every entry with a zero ref count and returns how many went.
func (c *Cache) evict() int {
	var victims []*Entry
	for _, e := range c.entries {
		if e.refCount == 0 {
			victims = append(victims, e)
		}
	}
	for _, e := range victims {
		c.evictEntry(e)
	}
	c.log.Debugf("evicted %d unused assets, %d remain", len(victims), len(c.entries))
	return len(victims)
}
