package world

import (
	"slices"

	"github.com/chewxy/math32"

	"github.com/blueshift/engine/internal/geom"
)

// updateProxy keeps e's broad-phase proxy in step with its world bounds.
// Entities without bounds or inactive in hierarchy have no proxy.
func (w *GameWorld) updateProxy(e *Entity) {
	if !e.IsRegistered() || !e.activeInHierarchy || len(e.components) == 0 {
		w.removeProxy(e)
		return
	}
	local := e.LocalAABB(false)
	if local.IsZero() {
		w.removeProxy(e)
		return
	}
	box := local.Transform(e.Transform().WorldMatrix())
	center := box.Center()
	if e.proxy < 0 {
		e.proxy = w.tree.CreateProxy(box, w.cfg.ProxyExpansion, e)
	} else {
		w.tree.MoveProxy(e.proxy, box, w.cfg.ProxyExpansion, center.Sub(e.proxyCenter))
	}
	e.proxyCenter = center
}

func (w *GameWorld) removeProxy(e *Entity) {
	if e.proxy < 0 {
		return
	}
	w.tree.DestroyProxy(e.proxy)
	e.proxy = -1
}

// SyncBroadphase refreshes the proxy of every entity and returns the number
// of live proxies.
func (w *GameWorld) SyncBroadphase() int {
	w.IterateEntities(func(e *Entity) bool {
		w.updateProxy(e)
		return true
	})
	return w.tree.ProxyCount()
}

// QueryEntities returns the entities whose world bounds overlap box, in
// spawn number order.
func (w *GameWorld) QueryEntities(box geom.AABB) []*Entity {
	var out []*Entity
	w.tree.QueryAABB(box, func(id int32) bool {
		e := w.tree.UserData(id)
		if e.WorldAABB(false).Intersects(box) {
			out = append(out, e)
		}
		return true
	})
	slices.SortFunc(out, func(a, b *Entity) int { return a.entityNum - b.entityNum })
	return out
}

// RayIntersection finds the closest entity hit by ray whose layer bit is set
// in layerMask. Entities in excluding are ignored. The hit distance is
// returned along with the entity; nil means no hit.
func (w *GameWorld) RayIntersection(ray geom.Ray, layerMask int, excluding ...*Entity) (*Entity, float32) {
	var hit *Entity
	minDist := float32(math32.MaxFloat32)
	w.tree.QueryRay(ray, minDist, func(id int32, _ float32) float32 {
		e := w.tree.UserData(id)
		if layerMask&(1<<uint(e.layer)) == 0 || slices.Contains(excluding, e) {
			return minDist
		}
		if e.IntersectRay(ray, true, &minDist) {
			hit = e
		}
		return minDist
	})
	return hit, minDist
}

// BroadphaseStats summarizes the shape of the broad-phase tree.
type BroadphaseStats struct {
	Proxies    int
	Nodes      int
	Capacity   int
	Height     int
	MaxBalance int
	AreaRatio  float32
	Insertions int
	Bytes      uintptr

	// NodesByDepth[d] counts the tree nodes at depth d.
	NodesByDepth []int
}

func (w *GameWorld) BroadphaseStats() BroadphaseStats {
	s := BroadphaseStats{
		Proxies:    w.tree.ProxyCount(),
		Nodes:      int(w.tree.NodeCount()),
		Capacity:   int(w.tree.Capacity()),
		Height:     w.tree.Height(),
		MaxBalance: w.tree.MaxBalance(),
		AreaRatio:  w.tree.AreaRatio(),
		Insertions: w.tree.InsertionCount(),
		Bytes:      w.tree.Allocated(),
	}
	if s.Nodes > 0 {
		s.NodesByDepth = make([]int, s.Height+1)
		w.tree.QueryDepthRange(0, s.Height, func(_ int32, depth int) bool {
			s.NodesByDepth[depth]++
			return true
		})
	}
	return s
}

// RebuildBroadphase rebuilds the tree bottom-up from the current proxies.
// Proxy ids are kept. Slow; meant for offline tools.
func (w *GameWorld) RebuildBroadphase() {
	w.tree.RebuildBottomUp()
}
