package aabbtree

import (
	"github.com/chewxy/math32"

	"github.com/blueshift/engine/internal/geom"
)

// Query visits every proxy whose fat AABB satisfies overlaps. Subtrees whose
// bounds fail overlaps are pruned. fn returns false to stop the walk.
func (t *Tree[T]) Query(overlaps func(geom.AABB) bool, fn func(id int32) bool) {
	if t.root == NullNode {
		return
	}

	stack := make([]int32, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		if !overlaps(n.aabb) {
			continue
		}
		if n.isLeaf() {
			if !fn(id) {
				return
			}
			continue
		}
		stack = append(stack, n.child1, n.child2)
	}
}

// QueryAABB visits proxies whose fat AABB overlaps aabb.
func (t *Tree[T]) QueryAABB(aabb geom.AABB, fn func(id int32) bool) {
	t.Query(aabb.Intersects, fn)
}

// QuerySphere visits proxies whose fat AABB touches the sphere.
func (t *Tree[T]) QuerySphere(s geom.Sphere, fn func(id int32) bool) {
	t.Query(s.IntersectsAABB, fn)
}

// QueryPoint visits proxies whose fat AABB contains p.
func (t *Tree[T]) QueryPoint(p geom.Vec3, fn func(id int32) bool) {
	t.Query(func(b geom.AABB) bool { return b.ContainsPoint(p) }, fn)
}

// QueryRay visits proxies whose fat AABB is hit by ray within maxDist.
// fn receives the entry distance into the fat AABB and returns the new
// maximum distance: returning a smaller value clips the ray (closest-hit
// search), returning a negative value stops the walk. Pass math32.Inf(1)
// for an unbounded ray.
func (t *Tree[T]) QueryRay(ray geom.Ray, maxDist float32, fn func(id int32, dist float32) float32) {
	if t.root == NullNode {
		return
	}

	stack := make([]int32, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		dist, ok := n.aabb.IntersectRay(ray)
		if !ok || dist > maxDist {
			continue
		}
		if n.isLeaf() {
			next := fn(id, dist)
			if next < 0 {
				return
			}
			maxDist = math32.Min(maxDist, next)
			continue
		}
		stack = append(stack, n.child1, n.child2)
	}
}

// QueryDepthRange visits every node whose depth from the root lies in
// [minDepth, maxDepth], parents before children. The root has depth 0.
// Used by debug drawing to show a slice of the hierarchy.
func (t *Tree[T]) QueryDepthRange(minDepth, maxDepth int, fn func(id int32, depth int) bool) {
	if t.root == NullNode || maxDepth < minDepth {
		return
	}

	type entry struct {
		id    int32
		depth int
	}
	stack := []entry{{t.root, 0}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if e.depth >= minDepth {
			if !fn(e.id, e.depth) {
				return
			}
		}
		if e.depth == maxDepth {
			continue
		}
		n := &t.nodes[e.id]
		if !n.isLeaf() {
			stack = append(stack, entry{n.child2, e.depth + 1}, entry{n.child1, e.depth + 1})
		}
	}
}

// Proxies calls fn for every live proxy in pool order.
func (t *Tree[T]) Proxies(fn func(id int32, userData T) bool) {
	for i := int32(0); i < t.nodeCapacity; i++ {
		n := &t.nodes[i]
		if n.height == 0 {
			if !fn(i, n.userData) {
				return
			}
		}
	}
}
