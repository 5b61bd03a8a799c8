package world

import (
	"github.com/blueshift/engine/internal/component"
	"github.com/blueshift/engine/internal/core/event"
)

// Entity signals. They are published synchronously on the entity's own bus
// and queued on the world bus (delivered next frame) while the entity is
// registered.

type LayerChanged struct {
	Entity *Entity
	Layer  int
}

type StaticMaskChanged struct {
	Entity *Entity
	Mask   int
}

type ActiveChanged struct {
	Entity *Entity
	Active bool
}

type ActiveInHierarchyChanged struct {
	Entity *Entity
	Active bool
}

type NameChanged struct {
	Entity *Entity
	Name   string
}

type FrozenChanged struct {
	Entity *Entity
	Frozen bool
}

// ParentChanged carries the new parent, nil for a scene root.
type ParentChanged struct {
	Entity *Entity
	Parent *Entity
}

type SiblingIndexChanged struct {
	Entity *Entity
	Index  int
}

type ComponentInserted struct {
	Entity    *Entity
	Component component.Component
	Index     int
}

type ComponentRemoved struct {
	Entity    *Entity
	Component component.Component
}

type ComponentSwapped struct {
	Entity   *Entity
	From, To int
}

// World signals, published synchronously on the world bus.

type EntityRegistered struct {
	Entity *Entity
}

type EntityUnregistered struct {
	Entity *Entity
}

type MapLoaded struct {
	Path       string
	SceneIndex int
	Entities   int
}

// Signals returns the entity's bus, creating it on first use.
func (e *Entity) Signals() *event.Bus {
	if e.bus == nil {
		e.bus = event.NewBus()
	}
	return e.bus
}

func emit[T any](e *Entity, ev T) {
	if e.bus != nil {
		event.Publish(e.bus, ev)
	}
	if e.world != nil && e.IsRegistered() {
		event.Emit(e.world.bus, ev)
	}
}
