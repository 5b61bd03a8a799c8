package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func owners(nodes ...*Node[string]) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Owner())
	}
	return out
}

func children(n *Node[string]) []string {
	var out []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, c.Owner())
	}
	return out
}

// root
// ├── a
// │   └── a1
// └── b
func sample() (root, a, a1, b *Node[string]) {
	root, a, a1, b = New("root"), New("a"), New("a1"), New("b")
	a.SetParent(root)
	a1.SetParent(a)
	b.SetParent(root)
	return
}

func TestSetParentAppends(t *testing.T) {
	root, a, a1, b := sample()

	assert.Equal(t, []string{"a", "b"}, children(root))
	assert.Same(t, root, b.Parent())
	assert.True(t, a1.IsParentedBy(root))
	assert.False(t, root.IsParentedBy(root))
	assert.Equal(t, 3, root.ChildCount(true))
	assert.Equal(t, 2, root.ChildCount(false))
	assert.Same(t, a, b.PriorSibling())
	assert.Nil(t, a.PriorSibling())
	assert.Same(t, b, root.Child(1))
	assert.Nil(t, root.Child(2))

	// Reparenting detaches first.
	a1.SetParent(b)
	assert.Empty(t, children(a))
	assert.Equal(t, []string{"a1"}, children(b))
}

func TestSetParentCyclePanics(t *testing.T) {
	root, a, _, _ := sample()
	assert.Panics(t, func() { root.SetParent(a) })
}

func TestPreOrderTraversal(t *testing.T) {
	root, _, _, _ := sample()

	var order []*Node[string]
	for n := root.Next(); n != nil; n = n.Next() {
		order = append(order, n)
	}
	assert.Equal(t, []string{"a", "a1", "b"}, owners(order...))

	var walked []string
	root.Walk(func(n *Node[string]) bool {
		walked = append(walked, n.Owner())
		return true
	})
	assert.Equal(t, []string{"a", "a1", "b"}, walked)

	assert.Equal(t, "a1", root.NextLeaf().Owner())
	assert.Equal(t, "b", root.NextLeaf().NextLeaf().Owner())
	assert.Nil(t, root.NextLeaf().NextLeaf().NextLeaf())
}

func TestSiblingIndex(t *testing.T) {
	root := New("root")
	nodes := []*Node[string]{New("0"), New("1"), New("2"), New("3")}
	for _, n := range nodes {
		n.SetParent(root)
	}
	assert.Equal(t, 2, nodes[2].SiblingIndex())

	nodes[3].SetSiblingIndex(0)
	assert.Equal(t, []string{"3", "0", "1", "2"}, children(root))

	nodes[3].SetSiblingIndex(2)
	assert.Equal(t, []string{"0", "1", "3", "2"}, children(root))

	nodes[0].SetSiblingIndex(10)
	assert.Equal(t, []string{"1", "3", "2", "0"}, children(root))
	assert.Equal(t, 3, nodes[0].SiblingIndex())
}

func TestMakeSiblingAfter(t *testing.T) {
	root, a, _, _ := sample()
	c := New("c")
	c.MakeSiblingAfter(a)
	assert.Equal(t, []string{"a", "c", "b"}, children(root))
	assert.Same(t, root, c.Parent())
}

func TestRemoveFromHierarchyReparentsChildren(t *testing.T) {
	root, a, a1, _ := sample()

	a.RemoveFromHierarchy()
	assert.Nil(t, a.Parent())
	assert.Empty(t, children(a))
	assert.Equal(t, []string{"b", "a1"}, children(root))
	assert.Same(t, root, a1.Parent())
}

func TestRemoveRootDetachesChildren(t *testing.T) {
	root, a, _, b := sample()

	root.RemoveFromHierarchy()
	require.Empty(t, children(root))
	assert.Nil(t, a.Parent())
	assert.Nil(t, b.Parent())
	assert.Nil(t, a.NextSibling())
}
