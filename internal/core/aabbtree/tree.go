// Package aabbtree implements a dynamic AABB tree, a self-balancing bounding
// volume hierarchy used as the broad phase for overlap and ray queries over
// moving objects.
//
// Leaves are proxies with a fattened AABB: the tight object bounds expanded
// by a margin, so that the object can move by small amounts without
// restructuring the tree. Nodes are pooled and relocatable, so they are
// addressed by index rather than by pointer.
//
// A Tree is not safe for concurrent use; it is owned by the game loop.
package aabbtree

import (
	"unsafe"

	"github.com/blueshift/engine/internal/geom"
)

// DisplacementMultiplier scales the predicted displacement added to the fat
// AABB of a moved proxy.
const DisplacementMultiplier float32 = 2.0

// Tree is a dynamic AABB tree whose leaves carry user data of type T. The
// tree never inspects the user data.
type Tree[T any] struct {
	root           int32
	nodeCount      int32
	nodeCapacity   int32
	freeList       int32
	nodes          []node[T]
	insertionCount int
}

// New returns an empty tree with the default pool capacity.
func New[T any]() *Tree[T] {
	return NewWithCapacity[T](DefaultCapacity)
}

// NewWithCapacity returns an empty tree with room for capacity nodes before
// the pool has to grow.
func NewWithCapacity[T any](capacity int32) *Tree[T] {
	if capacity < 2 {
		capacity = 2
	}
	t := &Tree[T]{}
	t.reset(capacity)
	return t
}

func (t *Tree[T]) reset(capacity int32) {
	t.nodeCapacity = capacity
	t.nodes = make([]node[T], capacity)
	formatFreeList(t.nodes, 0)
	t.nodeCount = 0
	t.freeList = 0
	t.root = NullNode
	t.insertionCount = 0
}

// Clear drops every proxy and shrinks the pool back to its default size.
func (t *Tree[T]) Clear() {
	t.reset(DefaultCapacity)
}

// CreateProxy inserts a leaf for a tight-fitting aabb expanded by expansion
// on every side and returns its handle. The handle stays valid until
// DestroyProxy.
func (t *Tree[T]) CreateProxy(aabb geom.AABB, expansion float32, userData T) int32 {
	id := t.allocNode()

	n := &t.nodes[id]
	n.aabb = aabb.Expand(expansion)
	n.userData = userData
	n.height = 0

	t.insertLeaf(id)
	return id
}

// DestroyProxy removes a proxy from the tree. It panics if id is not a live
// proxy handle.
func (t *Tree[T]) DestroyProxy(id int32) {
	t.checkProxy(id)

	t.removeLeaf(id)
	t.freeNode(id)
}

// MoveProxy updates a proxy whose tight bounds are now aabb and which moved
// by displacement since the last update. If the fat AABB still contains
// aabb nothing happens and false is returned. Otherwise the leaf is
// reinserted with a new fat AABB and MoveProxy returns true.
func (t *Tree[T]) MoveProxy(id int32, aabb geom.AABB, expansion float32, displacement geom.Vec3) bool {
	t.checkProxy(id)

	if t.nodes[id].aabb.ContainsAABB(aabb) {
		return false
	}

	t.removeLeaf(id)

	b := aabb.Expand(expansion)

	// Predict where the proxy is heading.
	d := displacement.Mul(DisplacementMultiplier)
	for i := 0; i < 3; i++ {
		if c := d.At(i); c < 0 {
			b.Min.Set(i, b.Min.At(i)+c)
		} else {
			b.Max.Set(i, b.Max.At(i)+c)
		}
	}

	t.nodes[id].aabb = b

	t.insertLeaf(id)
	return true
}

// SetUserData replaces the user data of a proxy.
func (t *Tree[T]) SetUserData(id int32, userData T) {
	t.checkProxy(id)
	t.nodes[id].userData = userData
}

// UserData returns the user data of a proxy.
func (t *Tree[T]) UserData(id int32) T {
	t.checkIndex(id)
	return t.nodes[id].userData
}

// FatAABB returns the fattened AABB stored for a node.
func (t *Tree[T]) FatAABB(id int32) geom.AABB {
	t.checkIndex(id)
	return t.nodes[id].aabb
}

// RootFatAABB returns the bounds of the whole tree, or a cleared box when
// the tree is empty.
func (t *Tree[T]) RootFatAABB() geom.AABB {
	if t.root == NullNode {
		return geom.Cleared()
	}
	return t.nodes[t.root].aabb
}

// Root returns the root node index or NullNode.
func (t *Tree[T]) Root() int32 { return t.root }

// NodeCount returns the number of nodes in use (leaves and internal nodes).
func (t *Tree[T]) NodeCount() int32 { return t.nodeCount }

// Capacity returns the size of the node pool.
func (t *Tree[T]) Capacity() int32 { return t.nodeCapacity }

// InsertionCount returns how many leaf insertions happened since the last
// Clear. Diagnostic only.
func (t *Tree[T]) InsertionCount() int { return t.insertionCount }

// ProxyCount returns the number of leaves.
func (t *Tree[T]) ProxyCount() int {
	if t.root == NullNode {
		return 0
	}
	// A full binary tree with n leaves has n-1 internal nodes.
	return int(t.nodeCount+1) / 2
}

// Allocated returns the number of bytes held by the node pool.
func (t *Tree[T]) Allocated() uintptr {
	var n node[T]
	return uintptr(t.nodeCapacity) * unsafe.Sizeof(n)
}

// NodeInfo is a read-only view of one node, used to build custom traversals.
type NodeInfo struct {
	AABB   geom.AABB
	Parent int32
	Child1 int32
	Child2 int32
	Height int32
}

// IsLeaf reports whether the node is a proxy.
func (n NodeInfo) IsLeaf() bool { return n.Child1 == NullNode }

// Node returns a view of the node at index id.
func (t *Tree[T]) Node(id int32) NodeInfo {
	t.checkIndex(id)
	n := &t.nodes[id]
	parent := n.parent
	if n.height < 0 {
		parent = NullNode
	}
	return NodeInfo{AABB: n.aabb, Parent: parent, Child1: n.child1, Child2: n.child2, Height: n.height}
}

func (t *Tree[T]) checkProxy(id int32) {
	t.checkIndex(id)
	if n := &t.nodes[id]; n.height != 0 || !n.isLeaf() {
		panic("aabbtree: node is not a proxy")
	}
}

func (t *Tree[T]) insertLeaf(leaf int32) {
	t.insertionCount++

	if t.root == NullNode {
		t.root = leaf
		t.nodes[leaf].parent = NullNode
		return
	}

	// Find the best sibling for this node.
	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].aabb.Area()
		combinedArea := t.nodes[index].aabb.Union(leafAABB).Area()

		// Cost of creating a new parent for this node and the new leaf.
		cost := 2 * combinedArea

		// Minimum cost of pushing the leaf further down the tree.
		inheritanceCost := 2 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafAABB) + inheritanceCost
		cost2 := t.descendCost(child2, leafAABB) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}

		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index

	// Create a new parent.
	oldParent := t.nodes[sibling].parent
	newParent := t.allocNode()
	var zero T
	np := &t.nodes[newParent]
	np.parent = oldParent
	np.userData = zero
	np.aabb = leafAABB.Union(t.nodes[sibling].aabb)
	np.height = t.nodes[sibling].height + 1

	if oldParent != NullNode {
		// The sibling was not the root.
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}
	np.child1 = sibling
	np.child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	t.refit(t.nodes[leaf].parent)
}

// descendCost is the cost of pushing leafAABB into the subtree at child.
func (t *Tree[T]) descendCost(child int32, leafAABB geom.AABB) float32 {
	c := &t.nodes[child]
	combined := leafAABB.Union(c.aabb).Area()
	if c.isLeaf() {
		return combined
	}
	return combined - c.aabb.Area()
}

// refit walks from index to the root, rebalancing every ancestor and
// recomputing its height and bounds.
func (t *Tree[T]) refit(index int32) {
	for index != NullNode {
		index = t.balance(index)

		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2
		if child1 == NullNode || child2 == NullNode {
			panic("aabbtree: internal node with missing child")
		}

		n := &t.nodes[index]
		n.height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
		n.aabb = t.nodes[child1].aabb.Union(t.nodes[child2].aabb)

		index = n.parent
	}
}

func (t *Tree[T]) removeLeaf(leaf int32) {
	if leaf == t.root {
		t.root = NullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent != NullNode {
		// Destroy parent and connect sibling to grandParent.
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)

		t.refit(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = NullNode
		t.freeNode(parent)
	}
	t.nodes[leaf].parent = NullNode
}

// balance performs a left or right rotation if node iA is imbalanced and
// returns the index of the subtree's new root.
func (t *Tree[T]) balance(iA int32) int32 {
	A := &t.nodes[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB := A.child1
	iC := A.child2
	t.checkIndex(iB)
	t.checkIndex(iC)

	B := &t.nodes[iB]
	C := &t.nodes[iC]

	balance := C.height - B.height

	// Rotate C up.
	if balance > 1 {
		iF := C.child1
		iG := C.child2
		t.checkIndex(iF)
		t.checkIndex(iG)
		F := &t.nodes[iF]
		G := &t.nodes[iG]

		// Swap A and C.
		C.child1 = iA
		C.parent = A.parent
		A.parent = iC

		// A's old parent should point to C.
		t.replaceChild(C.parent, iA, iC)

		if F.height > G.height {
			C.child2 = iF
			A.child2 = iG
			G.parent = iA
			A.aabb = B.aabb.Union(G.aabb)
			C.aabb = A.aabb.Union(F.aabb)

			A.height = 1 + max(B.height, G.height)
			C.height = 1 + max(A.height, F.height)
		} else {
			C.child2 = iG
			A.child2 = iF
			F.parent = iA
			A.aabb = B.aabb.Union(F.aabb)
			C.aabb = A.aabb.Union(G.aabb)

			A.height = 1 + max(B.height, F.height)
			C.height = 1 + max(A.height, G.height)
		}
		return iC
	}

	// Rotate B up.
	if balance < -1 {
		iD := B.child1
		iE := B.child2
		t.checkIndex(iD)
		t.checkIndex(iE)
		D := &t.nodes[iD]
		E := &t.nodes[iE]

		// Swap A and B.
		B.child1 = iA
		B.parent = A.parent
		A.parent = iB

		// A's old parent should point to B.
		t.replaceChild(B.parent, iA, iB)

		if D.height > E.height {
			B.child2 = iD
			A.child1 = iE
			E.parent = iA
			A.aabb = C.aabb.Union(E.aabb)
			B.aabb = A.aabb.Union(D.aabb)

			A.height = 1 + max(C.height, E.height)
			B.height = 1 + max(A.height, D.height)
		} else {
			B.child2 = iE
			A.child1 = iD
			D.parent = iA
			A.aabb = C.aabb.Union(D.aabb)
			B.aabb = A.aabb.Union(E.aabb)

			A.height = 1 + max(C.height, D.height)
			B.height = 1 + max(A.height, E.height)
		}
		return iB
	}

	return iA
}

// replaceChild points parent's link from oldChild to newChild, or makes
// newChild the root when parent is NullNode.
func (t *Tree[T]) replaceChild(parent, oldChild, newChild int32) {
	if parent == NullNode {
		t.root = newChild
		return
	}
	p := &t.nodes[parent]
	if p.child1 == oldChild {
		p.child1 = newChild
	} else {
		if p.child2 != oldChild {
			panic("aabbtree: parent does not link to rotated node")
		}
		p.child2 = newChild
	}
}
