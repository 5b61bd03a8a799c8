package component

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Factory builds a zero-configured component of one class.
type Factory func() Component

// Registry maps class names to factories. Each game world owns one.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in class.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ClassTransform, func() Component { return NewTransform() })
	r.Register(ClassMeshRenderer, func() Component { return NewMeshRenderer() })
	r.Register(ClassLight, func() Component { return NewLight() })
	r.Register(ClassCamera, func() Component { return NewCamera() })
	r.Register(ClassScript, func() Component { return NewScript() })
	return r
}

// Register adds or replaces a class.
func (r *Registry) Register(class string, f Factory) {
	r.factories[class] = f
}

func (r *Registry) Has(class string) bool {
	_, ok := r.factories[class]
	return ok
}

// Classes lists registered class names in sorted order.
func (r *Registry) Classes() []string {
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New creates a component of class with a fresh GUID.
func (r *Registry) New(class string) (Component, error) {
	f, ok := r.factories[class]
	if !ok {
		return nil, fmt.Errorf("unknown component class %q", class)
	}
	c := f()
	c.SetGUID(uuid.New())
	return c, nil
}

// FromValue creates a component from its serialized form. The GUID stored
// in v is kept; a missing one is generated.
func (r *Registry) FromValue(v Value) (Component, error) {
	class := GetString(v, "classname", "")
	c, err := r.New(class)
	if err != nil {
		return nil, err
	}
	if id := GetGUID(v, "guid"); id != uuid.Nil {
		c.SetGUID(id)
	}
	c.Deserialize(v)
	return c, nil
}
