package cursor

// Lookup is the outcome of presenting a shape to the cache
type Lookup struct {
	Slot    int
	Hit     bool
	Evicted bool
	// EvictedKey is the key that previously owned Slot when Evicted is set.
	EvictedKey Key
}

// MaxCacheSize caps the slot count a viewer may request
const MaxCacheSize = 64

type entry struct {
	key    Key
	used   bool
	recent uint64
}

// Cache maps cursor shapes to viewer-side cache slots.
//
// The capacity is the size advertised by the viewer and is never exceeded:
// at capacity the least recently used slot is evicted before insertion,
// ties going to the lowest slot index.
type Cache struct {
	slots []entry
	index map[Key]int
	clock uint64
}

// NewCache creates a cache with the given number of slots, clamped to
// [0, MaxCacheSize]
func NewCache(capacity int) *Cache {
	capacity = min(max(capacity, 0), MaxCacheSize)
	return &Cache{
		slots: make([]entry, capacity),
		index: make(map[Key]int, capacity),
	}
}

// Capacity returns the slot count
func (c *Cache) Capacity() int {
	return len(c.slots)
}

// Len returns the number of occupied slots
func (c *Cache) Len() int {
	return len(c.index)
}

// Touch looks up key, inserting it when absent, and marks it most recent.
// With zero capacity it always reports a miss on slot -1.
func (c *Cache) Touch(key Key) Lookup {
	if len(c.slots) == 0 {
		return Lookup{Slot: -1}
	}
	c.clock++

	if slot, ok := c.index[key]; ok {
		c.slots[slot].recent = c.clock
		return Lookup{Slot: slot, Hit: true}
	}

	slot := c.freeSlot()
	res := Lookup{Slot: slot}
	if slot < 0 {
		slot = c.lruSlot()
		old := c.slots[slot]
		delete(c.index, old.key)
		res = Lookup{Slot: slot, Evicted: true, EvictedKey: old.key}
	}

	c.slots[slot] = entry{key: key, used: true, recent: c.clock}
	c.index[key] = slot
	return res
}

// Forget releases the slot held by key, if any. Used when the shape never
// reached the viewer.
func (c *Cache) Forget(key Key) {
	if slot, ok := c.index[key]; ok {
		delete(c.index, key)
		c.slots[slot] = entry{}
	}
}

// Reset forgets every slot
func (c *Cache) Reset() {
	for i := range c.slots {
		c.slots[i] = entry{}
	}
	c.index = make(map[Key]int, len(c.slots))
	c.clock = 0
}

func (c *Cache) freeSlot() int {
	for i, e := range c.slots {
		if !e.used {
			return i
		}
	}
	return -1
}

func (c *Cache) lruSlot() int {
	best := 0
	for i := 1; i < len(c.slots); i++ {
		if c.slots[i].recent < c.slots[best].recent {
			best = i
		}
	}
	return best
}
