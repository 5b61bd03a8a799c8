package ecs

import "fmt"

// EntityID encodes a 32-bit spawn index in the lower bits and a 32-bit
// generation in the upper bits. Generation increments when the index is
// released so stale ids stop resolving.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }

// SpawnPool hands out spawn indices in [0, limit). Automatic allocation
// takes the lowest free index; Claim reserves a specific one so saved maps
// can restore their spawn numbers.
type SpawnPool struct {
	limit       uint32
	generations []uint32
	used        []bool
	firstFree   uint32
	count       int
}

func NewSpawnPool(limit uint32) *SpawnPool {
	return &SpawnPool{
		limit:       limit,
		generations: make([]uint32, 0, 1024),
		used:        make([]bool, 0, 1024),
	}
}

func (p *SpawnPool) grow(index uint32) {
	for uint32(len(p.used)) <= index {
		p.used = append(p.used, false)
		p.generations = append(p.generations, 0)
	}
}

// Create allocates the lowest free index. It panics when the pool is full.
func (p *SpawnPool) Create() EntityID {
	for p.firstFree < uint32(len(p.used)) && p.used[p.firstFree] {
		p.firstFree++
	}
	if p.firstFree >= p.limit {
		panic(fmt.Sprintf("ecs: no free spawn index below %d", p.limit))
	}
	idx := p.firstFree
	p.firstFree++
	return p.take(idx)
}

// Claim allocates a specific index. ok is false if the index is out of
// range or already taken.
func (p *SpawnPool) Claim(index uint32) (EntityID, bool) {
	if index >= p.limit {
		return 0, false
	}
	if index < uint32(len(p.used)) && p.used[index] {
		return 0, false
	}
	return p.take(index), true
}

func (p *SpawnPool) take(idx uint32) EntityID {
	p.grow(idx)
	p.used[idx] = true
	p.count++
	return NewEntityID(idx, p.generations[idx])
}

func (p *SpawnPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= uint32(len(p.used)) || !p.used[idx] {
		return false
	}
	return p.generations[idx] == id.Generation()
}

// Lookup returns the live id at index, if any.
func (p *SpawnPool) Lookup(index uint32) (EntityID, bool) {
	if index >= uint32(len(p.used)) || !p.used[index] {
		return 0, false
	}
	return NewEntityID(index, p.generations[index]), true
}

func (p *SpawnPool) Destroy(id EntityID) {
	if !p.Alive(id) {
		return // already destroyed (stale reference)
	}
	idx := id.Index()
	p.generations[idx]++
	p.used[idx] = false
	p.count--
	if idx < p.firstFree {
		p.firstFree = idx
	}
}

// Len returns the number of live indices.
func (p *SpawnPool) Len() int { return p.count }

// Reset releases every index. Generations are kept so old ids stay dead.
func (p *SpawnPool) Reset() {
	for i := range p.used {
		if p.used[i] {
			p.used[i] = false
			p.generations[i]++
		}
	}
	p.firstFree = 0
	p.count = 0
}
