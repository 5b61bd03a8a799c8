package world

import (
	"slices"

	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/component"
)

func (e *Entity) NumComponents() int { return len(e.components) }

// Component returns the component at index, nil when out of range.
func (e *Entity) Component(index int) component.Component {
	if index < 0 || index >= len(e.components) {
		return nil
	}
	return e.components[index]
}

// Components returns a copy of the component list.
func (e *Entity) Components() []component.Component {
	return slices.Clone(e.components)
}

// ComponentIndex returns the position of c, or -1.
func (e *Entity) ComponentIndex(c component.Component) int {
	return slices.Index(e.components, c)
}

// ComponentByClass returns the first component of the named class.
func (e *Entity) ComponentByClass(class string) component.Component {
	for _, c := range e.components {
		if c.ClassName() == class {
			return c
		}
	}
	return nil
}

func (e *Entity) AddComponent(c component.Component) {
	e.InsertComponent(c, len(e.components))
}

// InsertComponent takes ownership of c and places it at index. A component
// joining a live entity catches up with Init and Awake.
func (e *Entity) InsertComponent(c component.Component, index int) {
	index = max(0, min(index, len(e.components)))

	c.SetEntity(e)
	e.components = slices.Insert(e.components, index, c)

	if e.initialized {
		c.Init()
	}
	if e.awaked {
		c.Awake()
	}
	emit(e, ComponentInserted{Entity: e, Component: c, Index: index})
}

// RemoveComponent detaches c. The caller owns it afterwards.
func (e *Entity) RemoveComponent(c component.Component) bool {
	i := e.ComponentIndex(c)
	if i < 0 {
		return false
	}
	e.components = slices.Delete(e.components, i, i+1)
	emit(e, ComponentRemoved{Entity: e, Component: c})
	c.SetEntity(nil)
	return true
}

// SwapComponent exchanges two components. Both indices are clamped to
// [1, n-1] so the transform never moves.
func (e *Entity) SwapComponent(from, to int) bool {
	hi := len(e.components) - 1
	if hi < 1 {
		return false
	}
	from = max(1, min(from, hi))
	to = max(1, min(to, hi))
	if from == to {
		return false
	}
	e.components[from], e.components[to] = e.components[to], e.components[from]
	emit(e, ComponentSwapped{Entity: e, From: from, To: to})
	return true
}

// AddNewComponent creates a component of the named class with default
// properties and appends it.
func (e *Entity) AddNewComponent(class string) (component.Component, error) {
	c, err := e.registry().New(class)
	if err != nil {
		return nil, err
	}
	c.SetEntity(e)
	c.Deserialize(component.Value{})
	e.AddComponent(c)
	return c, nil
}

func (e *Entity) registry() *component.Registry {
	if e.world != nil {
		return e.world.registry
	}
	return component.DefaultRegistry()
}

// GetComponent returns the first component of type T. T may be a concrete
// component type or a capability interface.
func GetComponent[T any](e *Entity) (T, bool) {
	for _, c := range e.components {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// GetComponents returns every component of type T in list order.
func GetComponents[T any](e *Entity) []T {
	var out []T
	for _, c := range e.components {
		if t, ok := c.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// GetComponentsInChildren collects components of type T from e and its
// descendants depth first. With skipIfParentDontHave, a subtree is only
// searched when its root has a match.
func GetComponentsInChildren[T any](e *Entity, skipIfParentDontHave bool) []T {
	out := GetComponents[T](e)
	if skipIfParentDontHave && len(out) == 0 {
		return out
	}
	for c := e.node.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, GetComponentsInChildren[T](c.Owner(), skipIfParentDontHave)...)
	}
	return out
}

func HasComponent[T any](e *Entity) bool {
	_, ok := GetComponent[T](e)
	return ok
}

// EnableComponent switches a component on or off with the matching
// OnActive/OnInactive delivery.
func (e *Entity) EnableComponent(c component.Component, enabled bool) {
	if c.Entity() != component.Owner(e) {
		e.Logger().Warn("enable component of another entity",
			zap.String("entity", e.name), zap.String("class", c.ClassName()))
		return
	}
	component.Enable(c, enabled)
}
