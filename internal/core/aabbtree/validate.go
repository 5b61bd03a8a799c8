package aabbtree

import (
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/multierr"

	"github.com/blueshift/engine/internal/geom"
)

// Validate checks the structure and metrics of the whole tree and the free
// list accounting. Every violation found is returned, combined.
func (t *Tree[T]) Validate() error {
	var err error
	if t.root != NullNode && t.nodes[t.root].parent != NullNode {
		err = multierr.Append(err, fmt.Errorf("root %d has parent %d", t.root, t.nodes[t.root].parent))
	}
	err = multierr.Append(err, t.validateStructure(t.root))
	err = multierr.Append(err, t.validateMetrics(t.root))

	freeCount := int32(0)
	for i := t.freeList; i != NullNode; i = t.nodes[i].next() {
		if i < 0 || i >= t.nodeCapacity {
			err = multierr.Append(err, fmt.Errorf("free list link %d out of range", i))
			break
		}
		if t.nodes[i].height != -1 {
			err = multierr.Append(err, fmt.Errorf("free node %d has height %d", i, t.nodes[i].height))
		}
		freeCount++
		if freeCount > t.nodeCapacity {
			err = multierr.Append(err, fmt.Errorf("free list has a cycle"))
			break
		}
	}

	if h, c := t.Height(), t.ComputeHeight(); h != c {
		err = multierr.Append(err, fmt.Errorf("stored height %d, computed %d", h, c))
	}
	if t.nodeCount+freeCount != t.nodeCapacity {
		err = multierr.Append(err, fmt.Errorf("node count %d + free count %d != capacity %d", t.nodeCount, freeCount, t.nodeCapacity))
	}
	return err
}

func (t *Tree[T]) validateStructure(index int32) error {
	if index == NullNode {
		return nil
	}

	n := &t.nodes[index]
	child1, child2 := n.child1, n.child2

	if n.isLeaf() {
		var err error
		if child2 != NullNode {
			err = multierr.Append(err, fmt.Errorf("leaf %d has child2 %d", index, child2))
		}
		if n.height != 0 {
			err = multierr.Append(err, fmt.Errorf("leaf %d has height %d", index, n.height))
		}
		return err
	}

	if child1 < 0 || child1 >= t.nodeCapacity || child2 < 0 || child2 >= t.nodeCapacity {
		return fmt.Errorf("node %d has children out of range (%d, %d)", index, child1, child2)
	}

	var err error
	if t.nodes[child1].parent != index {
		err = multierr.Append(err, fmt.Errorf("node %d: child1 %d links to parent %d", index, child1, t.nodes[child1].parent))
	}
	if t.nodes[child2].parent != index {
		err = multierr.Append(err, fmt.Errorf("node %d: child2 %d links to parent %d", index, child2, t.nodes[child2].parent))
	}
	return multierr.Combine(err, t.validateStructure(child1), t.validateStructure(child2))
}

func (t *Tree[T]) validateMetrics(index int32) error {
	if index == NullNode {
		return nil
	}

	n := &t.nodes[index]
	if n.isLeaf() {
		return nil
	}
	child1, child2 := n.child1, n.child2
	if child1 < 0 || child1 >= t.nodeCapacity || child2 < 0 || child2 >= t.nodeCapacity {
		// Reported by validateStructure.
		return nil
	}

	var err error
	height := 1 + max(t.nodes[child1].height, t.nodes[child2].height)
	if n.height != height {
		err = multierr.Append(err, fmt.Errorf("node %d has height %d, want %d", index, n.height, height))
	}
	if union := t.nodes[child1].aabb.Union(t.nodes[child2].aabb); union != n.aabb {
		err = multierr.Append(err, fmt.Errorf("node %d has aabb %v, want %v", index, n.aabb, union))
	}
	return multierr.Combine(err, t.validateMetrics(child1), t.validateMetrics(child2))
}

// Height returns the stored height of the root, 0 when empty.
func (t *Tree[T]) Height() int {
	if t.root == NullNode {
		return 0
	}
	return int(t.nodes[t.root].height)
}

// ComputeHeight recomputes the height by walking the tree.
func (t *Tree[T]) ComputeHeight() int {
	if t.root == NullNode {
		return 0
	}
	return t.computeHeight(t.root)
}

func (t *Tree[T]) computeHeight(index int32) int {
	n := &t.nodes[index]
	if n.isLeaf() {
		return 0
	}
	return 1 + max(t.computeHeight(n.child1), t.computeHeight(n.child2))
}

// MaxBalance returns the largest height difference between the two children
// of any internal node.
func (t *Tree[T]) MaxBalance() int {
	maxBalance := int32(0)
	for i := int32(0); i < t.nodeCapacity; i++ {
		n := &t.nodes[i]
		if n.height <= 1 {
			continue
		}
		balance := t.nodes[n.child2].height - t.nodes[n.child1].height
		if balance < 0 {
			balance = -balance
		}
		maxBalance = max(maxBalance, balance)
	}
	return int(maxBalance)
}

// AreaRatio returns the summed surface area of all nodes over the root
// area. Lower is a tighter tree.
func (t *Tree[T]) AreaRatio() float32 {
	if t.root == NullNode {
		return 0
	}

	rootArea := t.nodes[t.root].aabb.Area()
	if rootArea == 0 {
		return 0
	}

	total := float32(0)
	for i := int32(0); i < t.nodeCapacity; i++ {
		if n := &t.nodes[i]; n.height >= 0 {
			total += n.aabb.Area()
		}
	}
	return total / rootArea
}

// RebuildBottomUp rebuilds the tree from its leaves by repeatedly pairing
// the two subtrees whose union has the smallest area. It is cubic in the
// number of proxies and meant for offline optimization. Proxy handles are
// preserved.
func (t *Tree[T]) RebuildBottomUp() {
	leaves := make([]int32, 0, t.nodeCount)

	// Free the internal nodes and collect the leaves.
	for i := int32(0); i < t.nodeCapacity; i++ {
		n := &t.nodes[i]
		if n.height < 0 {
			continue
		}
		if n.isLeaf() {
			n.parent = NullNode
			leaves = append(leaves, i)
		} else {
			t.freeNode(i)
		}
	}

	count := len(leaves)
	if count == 0 {
		t.root = NullNode
		return
	}

	for count > 1 {
		minCost := math32.Inf(1)
		iMin, jMin := -1, -1
		for i := 0; i < count; i++ {
			aabbi := t.nodes[leaves[i]].aabb
			for j := i + 1; j < count; j++ {
				cost := aabbi.Union(t.nodes[leaves[j]].aabb).Area()
				if cost < minCost {
					iMin, jMin = i, j
					minCost = cost
				}
			}
		}

		index1, index2 := leaves[iMin], leaves[jMin]
		parentIndex := t.allocNode()

		p := &t.nodes[parentIndex]
		p.child1 = index1
		p.child2 = index2
		p.height = 1 + max(t.nodes[index1].height, t.nodes[index2].height)
		p.aabb = t.nodes[index1].aabb.Union(t.nodes[index2].aabb)
		p.parent = NullNode

		t.nodes[index1].parent = parentIndex
		t.nodes[index2].parent = parentIndex

		leaves[jMin] = leaves[count-1]
		leaves[iMin] = parentIndex
		count--
	}

	t.root = leaves[0]
}

// ShiftOrigin translates every node by -newOrigin, used when the world
// origin is recentered.
func (t *Tree[T]) ShiftOrigin(newOrigin geom.Vec3) {
	offset := newOrigin.Neg()
	for i := int32(0); i < t.nodeCapacity; i++ {
		if n := &t.nodes[i]; n.height >= 0 {
			n.aabb = n.aabb.Translate(offset)
		}
	}
}
