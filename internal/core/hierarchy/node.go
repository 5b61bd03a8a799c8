// Package hierarchy provides an intrusive tree link: a parent, an ordered
// child list and a next-sibling pointer embedded in the owning object.
//
// Links express relations only. Whoever owns the objects (the game world)
// decides their lifetime; a Node never frees anything.
package hierarchy

// Node links an owner of type T into a tree. The zero value is a detached
// node without an owner; use Init or New to set the owner.
type Node[T any] struct {
	owner   T
	parent  *Node[T]
	child   *Node[T] // first child
	sibling *Node[T] // next sibling
}

func New[T any](owner T) *Node[T] {
	return &Node[T]{owner: owner}
}

// Init sets the owner of an embedded node.
func (n *Node[T]) Init(owner T) {
	n.owner = owner
}

func (n *Node[T]) Owner() T { return n.owner }

// Parent returns the parent node or nil.
func (n *Node[T]) Parent() *Node[T] { return n.parent }

// FirstChild returns the first child node or nil.
func (n *Node[T]) FirstChild() *Node[T] { return n.child }

// NextSibling returns the next sibling node or nil.
func (n *Node[T]) NextSibling() *Node[T] { return n.sibling }

// PriorSibling returns the sibling before n or nil.
func (n *Node[T]) PriorSibling() *Node[T] {
	if n.parent == nil || n.parent.child == n {
		return nil
	}
	prev := n.parent.child
	for prev != nil && prev.sibling != n {
		prev = prev.sibling
	}
	return prev
}

// IsParentedBy reports whether p is an ancestor of n. A node does not
// parent itself.
func (n *Node[T]) IsParentedBy(p *Node[T]) bool {
	for a := n.parent; a != nil; a = a.parent {
		if a == p {
			return true
		}
	}
	return false
}

// SetParent detaches n and appends it as the last child of p. A nil parent
// only detaches.
func (n *Node[T]) SetParent(p *Node[T]) {
	n.RemoveFromParent()
	if p == nil {
		return
	}
	if p == n || p.IsParentedBy(n) {
		panic("hierarchy: cycle in SetParent")
	}

	n.parent = p
	if p.child == nil {
		p.child = n
		return
	}
	last := p.child
	for last.sibling != nil {
		last = last.sibling
	}
	last.sibling = n
}

// MakeSiblingAfter detaches n and places it directly after s under s's
// parent.
func (n *Node[T]) MakeSiblingAfter(s *Node[T]) {
	if s == n {
		return
	}
	n.RemoveFromParent()
	if s.parent == nil {
		panic("hierarchy: sibling has no parent")
	}
	n.parent = s.parent
	n.sibling = s.sibling
	s.sibling = n
}

// RemoveFromParent unlinks n from its parent, keeping n's own children.
func (n *Node[T]) RemoveFromParent() {
	if n.parent != nil {
		if prev := n.PriorSibling(); prev != nil {
			prev.sibling = n.sibling
		} else {
			n.parent.child = n.sibling
		}
	}
	n.parent = nil
	n.sibling = nil
}

// RemoveFromHierarchy unlinks n and hands its children over to n's parent,
// or detaches them when n was a root.
func (n *Node[T]) RemoveFromHierarchy() {
	parent := n.parent
	n.RemoveFromParent()

	for n.child != nil {
		c := n.child
		if parent != nil {
			c.SetParent(parent)
		} else {
			c.RemoveFromParent()
		}
	}
}

// Child returns the i-th direct child or nil.
func (n *Node[T]) Child(i int) *Node[T] {
	c := n.child
	for ; c != nil && i > 0; i-- {
		c = c.sibling
	}
	if i != 0 {
		return nil
	}
	return c
}

// ChildCount counts direct children, or every descendant when recursive.
func (n *Node[T]) ChildCount(recursive bool) int {
	count := 0
	for c := n.child; c != nil; c = c.sibling {
		count++
		if recursive {
			count += c.ChildCount(true)
		}
	}
	return count
}

// SiblingIndex returns n's position among its parent's children, 0 for a
// root.
func (n *Node[T]) SiblingIndex() int {
	if n.parent == nil {
		return 0
	}
	i := 0
	for c := n.parent.child; c != nil && c != n; c = c.sibling {
		i++
	}
	return i
}

// SetSiblingIndex moves n to position index among its siblings. Indices past
// the end move n to the last position.
func (n *Node[T]) SetSiblingIndex(index int) {
	parent := n.parent
	if parent == nil || index == n.SiblingIndex() {
		return
	}

	n.RemoveFromParent()
	n.parent = parent
	if index <= 0 || parent.child == nil {
		n.sibling = parent.child
		parent.child = n
		return
	}
	prev := parent.child
	for i := 1; i < index && prev.sibling != nil; i++ {
		prev = prev.sibling
	}
	n.sibling = prev.sibling
	prev.sibling = n
}

// Next returns the pre-order successor of n within the tree of its topmost
// ancestor, or nil at the end.
func (n *Node[T]) Next() *Node[T] {
	if n.child != nil {
		return n.child
	}
	node := n
	for node != nil && node.sibling == nil {
		node = node.parent
	}
	if node == nil {
		return nil
	}
	return node.sibling
}

// NextLeaf returns the next node without children in pre-order, or nil.
func (n *Node[T]) NextLeaf() *Node[T] {
	var node *Node[T]
	if n.child != nil {
		node = n.child
	} else {
		node = n
		for node != nil && node.sibling == nil {
			node = node.parent
		}
		if node == nil {
			return nil
		}
		node = node.sibling
	}
	for node.child != nil {
		node = node.child
	}
	return node
}

// Walk visits every descendant of n in depth-first pre-order. fn returns
// false to skip the subtree under the visited node.
func (n *Node[T]) Walk(fn func(*Node[T]) bool) {
	for c := n.child; c != nil; c = c.sibling {
		if fn(c) {
			c.Walk(fn)
		}
	}
}
