package aabbtree

import (
	"fmt"

	"github.com/blueshift/engine/internal/geom"
)

// NullNode marks an absent parent, child or free-list link.
const NullNode int32 = -1

// DefaultCapacity is the initial node pool size.
const DefaultCapacity int32 = 16

// node is stored by value in the pool and addressed by index so that handles
// survive pool growth.
type node[T any] struct {
	aabb     geom.AABB
	userData T
	// parent doubles as the free-list "next" link while the node is pooled.
	parent int32
	child1 int32
	child2 int32
	// leaf = 0, free node = -1
	height int32
}

func (n *node[T]) isLeaf() bool { return n.child1 == NullNode }

// next reads the free-list link stored in the parent slot.
func (n *node[T]) next() int32 { return n.parent }

func (n *node[T]) setNext(i int32) { n.parent = i }

// formatFreeList links nodes [from, len(nodes)) into a free list.
func formatFreeList[T any](nodes []node[T], from int32) {
	last := int32(len(nodes)) - 1
	for i := from; i < last; i++ {
		nodes[i] = node[T]{}
		nodes[i].setNext(i + 1)
		nodes[i].height = -1
	}
	nodes[last] = node[T]{}
	nodes[last].setNext(NullNode)
	nodes[last].height = -1
}

// allocNode peels a node off the free list, doubling the pool when empty.
func (t *Tree[T]) allocNode() int32 {
	if t.freeList == NullNode {
		if t.nodeCount != t.nodeCapacity {
			panic(fmt.Sprintf("aabbtree: free list empty with %d/%d nodes in use", t.nodeCount, t.nodeCapacity))
		}
		grown := make([]node[T], t.nodeCapacity*2)
		copy(grown, t.nodes[:t.nodeCount])
		t.nodes = grown
		t.nodeCapacity *= 2
		formatFreeList(t.nodes, t.nodeCount)
		t.freeList = t.nodeCount
	}

	id := t.freeList
	n := &t.nodes[id]
	t.freeList = n.next()
	var zero T
	n.parent = NullNode
	n.child1 = NullNode
	n.child2 = NullNode
	n.height = 0
	n.userData = zero
	t.nodeCount++
	return id
}

// freeNode returns a node to the pool.
func (t *Tree[T]) freeNode(id int32) {
	t.checkIndex(id)
	if t.nodeCount <= 0 {
		panic("aabbtree: freeing a node from an empty pool")
	}
	var zero T
	n := &t.nodes[id]
	n.userData = zero
	n.child1 = NullNode
	n.child2 = NullNode
	n.setNext(t.freeList)
	n.height = -1
	t.freeList = id
	t.nodeCount--
}

func (t *Tree[T]) checkIndex(id int32) {
	if id < 0 || id >= t.nodeCapacity {
		panic(fmt.Sprintf("aabbtree: node index %d out of range [0, %d)", id, t.nodeCapacity))
	}
}
