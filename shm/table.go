package shm

// table maps segment ids to their mappings. Slots are reused through a free
// list; each reuse bumps the slot generation, which is part of the id.
type table struct {
	entries  []entry
	freeList []uint32
	live     int
}

type entry struct {
	mapping Mapping
	size    int
	gen     uint32
	borrows uint32
	owned   bool
	onWire  bool
	valid   bool
}

func newTable() *table {
	return &table{
		entries:  make([]entry, 0, 16),
		freeList: make([]uint32, 0, 8),
	}
}

func makeID(slot, gen uint32) uint64 {
	return uint64(gen)<<32 | uint64(slot+1)
}

func splitID(id uint64) (slot, gen uint32, ok bool) {
	lo := uint32(id)
	if lo == 0 {
		return 0, 0, false
	}
	return lo - 1, uint32(id >> 32), true
}

// insert stores an owned mapping and returns its id.
func (t *table) insert(m Mapping, size int) uint64 {
	var slot uint32
	if n := len(t.freeList); n > 0 {
		slot = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
	} else {
		t.entries = append(t.entries, entry{})
		slot = uint32(len(t.entries) - 1)
	}
	e := &t.entries[slot]
	*e = entry{
		mapping: m,
		size:    size,
		gen:     e.gen + 1,
		owned:   true,
		valid:   true,
	}
	t.live++
	return makeID(slot, e.gen)
}

// get returns the live entry for id.
func (t *table) get(id uint64) *entry {
	slot, gen, ok := splitID(id)
	if !ok || int(slot) >= len(t.entries) {
		return nil
	}
	e := &t.entries[slot]
	if !e.valid || e.gen != gen {
		return nil
	}
	return e
}

// collect removes e if nothing holds it and returns its mapping for
// unmapping, or nil if e is still held.
func (t *table) collect(id uint64, e *entry) Mapping {
	if e.owned || e.onWire || e.borrows > 0 {
		return nil
	}
	m := e.mapping
	slot, _, _ := splitID(id)
	gen := e.gen
	*e = entry{gen: gen}
	t.freeList = append(t.freeList, slot)
	t.live--
	return m
}

// each calls fn for every live entry.
func (t *table) each(fn func(id uint64, e *entry)) {
	for i := range t.entries {
		if e := &t.entries[i]; e.valid {
			fn(makeID(uint32(i), e.gen), e)
		}
	}
}
