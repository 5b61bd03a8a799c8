package ecs

// Table is the entity bookkeeping behind a game world: the spawn pool, the
// per-entity stores released together, and a deferred destruction queue
// flushed at the end of each frame.
type Table struct {
	pool         *SpawnPool
	stores       []Removable
	destroyQueue []EntityID
}

func NewTable(limit uint32) *Table {
	return &Table{
		pool:         NewSpawnPool(limit),
		stores:       make([]Removable, 0, 4),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (t *Table) Pool() *SpawnPool { return t.pool }

// Track adds stores whose entries are dropped when an id is released.
func (t *Table) Track(stores ...Removable) {
	t.stores = append(t.stores, stores...)
}

func (t *Table) Alive(id EntityID) bool {
	return t.pool.Alive(id)
}

// Release frees the spawn index and drops id from every store.
func (t *Table) Release(id EntityID) {
	for _, s := range t.stores {
		s.Remove(id)
	}
	t.pool.Destroy(id)
}

// MarkForDestruction queues an id for end-of-frame cleanup. Queuing the same
// id twice is harmless.
func (t *Table) MarkForDestruction(id EntityID) {
	t.destroyQueue = append(t.destroyQueue, id)
}

// Pending returns the number of queued ids.
func (t *Table) Pending() int { return len(t.destroyQueue) }

// FlushDestroyQueue hands every queued id that is still alive to destroy,
// in queue order, then clears the queue. destroy is expected to Release.
func (t *Table) FlushDestroyQueue(destroy func(EntityID)) {
	queue := t.destroyQueue
	t.destroyQueue = make([]EntityID, 0, cap(queue))
	for _, id := range queue {
		if t.pool.Alive(id) {
			destroy(id)
		}
	}
}
