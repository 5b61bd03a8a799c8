package ecs

import "sort"

// Index maps a string key (entity name, tag) to the ids carrying it. Each
// id has at most one key. Lookups return ids in spawn index order so the
// result does not depend on insertion history.
type Index struct {
	byKey map[string]map[EntityID]struct{}
	keys  map[EntityID]string
}

func NewIndex() *Index {
	return &Index{
		byKey: make(map[string]map[EntityID]struct{}),
		keys:  make(map[EntityID]string),
	}
}

// Set files id under key, replacing any previous key.
func (x *Index) Set(id EntityID, key string) {
	x.Remove(id)
	ids, ok := x.byKey[key]
	if !ok {
		ids = make(map[EntityID]struct{}, 1)
		x.byKey[key] = ids
	}
	ids[id] = struct{}{}
	x.keys[id] = key
}

func (x *Index) Remove(id EntityID) {
	key, ok := x.keys[id]
	if !ok {
		return
	}
	delete(x.keys, id)
	ids := x.byKey[key]
	delete(ids, id)
	if len(ids) == 0 {
		delete(x.byKey, key)
	}
}

// Key returns the key id is filed under.
func (x *Index) Key(id EntityID) (string, bool) {
	k, ok := x.keys[id]
	return k, ok
}

// First returns the id with the lowest spawn index under key.
func (x *Index) First(key string) (EntityID, bool) {
	var best EntityID
	found := false
	for id := range x.byKey[key] {
		if !found || id.Index() < best.Index() {
			best, found = id, true
		}
	}
	return best, found
}

// All returns every id under key, sorted by spawn index.
func (x *Index) All(key string) []EntityID {
	ids := make([]EntityID, 0, len(x.byKey[key]))
	for id := range x.byKey[key] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Index() < ids[j].Index() })
	return ids
}
