package world

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/geom"
)

// Parent returns the parent entity, nil for a scene root or a detached
// entity.
func (e *Entity) Parent() *Entity {
	p := e.node.Parent()
	if p == nil {
		return nil
	}
	return p.Owner()
}

// Root returns the topmost ancestor, e itself when it is a root.
func (e *Entity) Root() *Entity {
	r := e
	for p := r.Parent(); p != nil; p = r.Parent() {
		r = p
	}
	return r
}

func (e *Entity) IsRoot() bool { return e.Parent() == nil }

func (e *Entity) ParentGUID() uuid.UUID {
	if p := e.Parent(); p != nil {
		return p.guid
	}
	return uuid.Nil
}

// SetParent moves e under parent, or to its scene root when parent is nil.
func (e *Entity) SetParent(parent *Entity) {
	id := uuid.Nil
	if parent != nil {
		id = parent.guid
	}
	e.SetParentGUID(id)
}

// SetParentGUID reparents e under the entity with the given GUID. An
// unknown GUID puts e at the root of its scene. Once initialized, the world
// transform is kept across the move when the world is configured to do so,
// and activeInHierarchy follows the new parent.
func (e *Entity) SetParentGUID(id uuid.UUID) {
	var parent *Entity
	if id != uuid.Nil && e.world != nil {
		parent = e.world.FindEntityByGUID(id)
		if parent == nil {
			e.Logger().Warn("parent entity not found",
				zap.String("entity", e.name), zap.String("parent", id.String()))
		}
	}
	if parent != nil && (parent == e || parent.node.IsParentedBy(&e.node)) {
		e.Logger().Warn("cannot parent entity under itself or its descendant",
			zap.String("entity", e.name), zap.String("parent", parent.name))
		return
	}

	keep := e.initialized && e.world != nil && e.world.cfg.KeepWorldTransformOnReparent && len(e.components) > 0
	var worldMatrix geom.Mat3x4
	if keep {
		worldMatrix = e.Transform().WorldMatrix()
	}

	switch {
	case parent != nil:
		e.node.SetParent(&parent.node)
	case e.world != nil:
		e.node.SetParent(e.world.sceneRoot(e.sceneIndex))
	default:
		e.node.RemoveFromParent()
	}

	if keep {
		e.Transform().SetWorldMatrix(worldMatrix)
	}

	if e.initialized {
		e.setActiveInHierarchy(e.activeSelf && (parent == nil || parent.activeInHierarchy))
		emit(e, ParentChanged{Entity: e, Parent: parent})
	}
}

func (e *Entity) SiblingIndex() int { return e.node.SiblingIndex() }

// SetSiblingIndex reorders e among its siblings. Negative indices are
// ignored.
func (e *Entity) SetSiblingIndex(index int) {
	if index < 0 {
		return
	}
	e.node.SetSiblingIndex(index)
	if e.initialized {
		emit(e, SiblingIndexChanged{Entity: e, Index: index})
	}
}

func (e *Entity) HasChildren() bool { return e.node.FirstChild() != nil }

func (e *Entity) ChildCount(includingDescendants bool) int {
	return e.node.ChildCount(includingDescendants)
}

// Child returns the i-th direct child or nil.
func (e *Entity) Child(i int) *Entity {
	if n := e.node.Child(i); n != nil {
		return n.Owner()
	}
	return nil
}

// Children returns the direct children in order.
func (e *Entity) Children() []*Entity {
	var out []*Entity
	for c := e.node.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, c.Owner())
	}
	return out
}

// GetChildren returns every descendant in depth-first pre-order.
func (e *Entity) GetChildren() []*Entity {
	var out []*Entity
	e.node.Walk(func(n *hierarchyNode) bool {
		out = append(out, n.Owner())
		return true
	})
	return out
}

// FindChild returns the first child named name. Whether grandchildren are
// searched is a world setting; detached entities search recursively.
func (e *Entity) FindChild(name string) *Entity {
	recursive := e.world == nil || e.world.cfg.FindChildRecursive
	for c := e.node.FirstChild(); c != nil; c = c.NextSibling() {
		child := c.Owner()
		if child.name == name {
			return child
		}
		if recursive {
			if found := child.FindChild(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// LocalAABB unions the bounds of components 1..n in the entity's local
// space. With includingChildren every descendant's own bounds are brought
// into this space too. An entity without bounds reports a zero box.
func (e *Entity) LocalAABB(includingChildren bool) geom.AABB {
	out := geom.Cleared()
	for i := 1; i < len(e.components); i++ {
		out.AddAABB(e.components[i].AABB())
	}

	if includingChildren {
		rootInverse := e.Transform().WorldMatrix().Inverse()
		for _, child := range e.GetChildren() {
			local := child.LocalAABB(false)
			if local.IsZero() {
				continue
			}
			m := rootInverse.Mul(child.Transform().WorldMatrix())
			out.AddAABB(local.Transform(m))
		}
	}

	if out.IsCleared() {
		return geom.AABB{}
	}
	return out
}

// WorldAABB is LocalAABB carried through the world matrix.
func (e *Entity) WorldAABB(includingChildren bool) geom.AABB {
	return e.LocalAABB(includingChildren).Transform(e.Transform().WorldMatrix())
}

// WorldPosTrait selects the reference point WorldPosition reports.
type WorldPosTrait int

const (
	Pivot WorldPosTrait = iota
	Center
	Minimum
	Maximum
)

func (e *Entity) WorldPosition(trait WorldPosTrait, includingChildren bool) geom.Vec3 {
	if trait == Pivot {
		return e.Transform().Origin()
	}
	box := e.WorldAABB(includingChildren)
	switch trait {
	case Minimum:
		return box.Min
	case Maximum:
		return box.Max
	default:
		return box.Center()
	}
}

// IntersectRay tests the ray against components 1..n active in hierarchy.
// It returns true and lowers *lastDist when a hit is closer than *lastDist.
func (e *Entity) IntersectRay(ray geom.Ray, backFaceCull bool, lastDist *float32) bool {
	minDist := *lastDist
	for i := 1; i < len(e.components); i++ {
		c := e.components[i]
		if !c.IsActiveInHierarchy() {
			continue
		}
		if d, ok := c.IntersectRay(ray, backFaceCull); ok && d < minDist {
			minDist = d
		}
	}
	if minDist < *lastDist {
		*lastDist = minDist
		return true
	}
	return false
}
