// Package component defines the behaviour units attached to entities, the
// class registry that builds them from serialized values, and the built-in
// component classes.
package component

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/geom"
	"github.com/blueshift/engine/internal/scripting"
)

// Owner is the view a component has of the entity it is attached to.
type Owner interface {
	GUID() uuid.UUID
	Name() string
	IsActiveInHierarchy() bool
	SetActive(active bool)
	// Transform returns the owner's transform component (index 0).
	Transform() *Transform
	// ParentTransform returns the transform of the owner's parent entity,
	// or nil for a root.
	ParentTransform() *Transform
	IsGameStarted() bool
	ScriptEngine() *scripting.Engine
	AllocRenderHandle() int
	FreeRenderHandle(handle int)
	Logger() *zap.Logger
}

// Component is a unit of behaviour owned by exactly one entity. An entity
// drives the lifecycle: SetEntity, Deserialize, Init, Awake, then the
// per-frame callbacks while IsActiveInHierarchy, and Purge last.
type Component interface {
	GUID() uuid.UUID
	SetGUID(id uuid.UUID)
	ClassName() string

	Entity() Owner
	SetEntity(owner Owner)

	Init()
	IsInitialized() bool
	Awake()
	Update()
	LateUpdate()
	OnActive()
	OnInactive()
	Purge()

	IsEnabled() bool
	SetEnabled(enabled bool)
	IsActiveInHierarchy() bool

	// AABB returns the local-space bounds, or a cleared box when the
	// component has no extent.
	AABB() geom.AABB
	HasRenderEntity(handle int) bool
	// IntersectRay tests a world-space ray and returns the hit distance.
	IntersectRay(ray geom.Ray, backFaceCull bool) (float32, bool)

	Serialize(forCopying bool) Value
	Deserialize(v Value)
	// RemapGUIDs rewrites GUID references found in remap.
	RemapGUIDs(remap map[uuid.UUID]uuid.UUID)
}

// Scripted is implemented by script components. Entities forward Start,
// the fixed-step callbacks and application notifications only to these.
type Scripted interface {
	Component
	Start()
	IsStarted() bool
	FixedUpdate(timeStep float32)
	FixedLateUpdate(timeStep float32)
	OnApplicationResize(width, height int)
	OnApplicationPause(pause bool)
	OnApplicationTerminate()
	HasError() bool
}

// Renderable is implemented by components that draw something the editor
// can pick.
type Renderable interface {
	Component
	SkipSelection() bool
	SetSkipSelection(skip bool)
}

// Enable switches a component on or off and, when its owner is active in
// the hierarchy, delivers OnActive or OnInactive.
func Enable(c Component, enabled bool) {
	if c.IsEnabled() == enabled {
		return
	}
	c.SetEnabled(enabled)

	owner := c.Entity()
	if owner == nil || !c.IsInitialized() || !owner.IsActiveInHierarchy() {
		return
	}
	if enabled {
		c.OnActive()
	} else {
		c.OnInactive()
	}
}

// Base carries the state every component shares and no-op defaults for the
// optional callbacks. Concrete components embed it.
type Base struct {
	class       string
	guid        uuid.UUID
	entity      Owner
	enabled     bool
	initialized bool
}

func NewBase(class string) Base {
	return Base{class: class, enabled: true}
}

func (b *Base) GUID() uuid.UUID       { return b.guid }
func (b *Base) SetGUID(id uuid.UUID)  { b.guid = id }
func (b *Base) ClassName() string     { return b.class }
func (b *Base) Entity() Owner         { return b.entity }
func (b *Base) SetEntity(owner Owner) { b.entity = owner }
func (b *Base) IsInitialized() bool   { return b.initialized }
func (b *Base) IsEnabled() bool       { return b.enabled }
func (b *Base) SetEnabled(on bool)    { b.enabled = on }

func (b *Base) Init()       { b.initialized = true }
func (b *Base) Awake()      {}
func (b *Base) Update()     {}
func (b *Base) LateUpdate() {}
func (b *Base) OnActive()   {}
func (b *Base) OnInactive() {}

func (b *Base) Purge() { b.initialized = false }

// IsActiveInHierarchy is true when the component is enabled and attached
// to an entity that is active in the hierarchy.
func (b *Base) IsActiveInHierarchy() bool {
	return b.enabled && b.entity != nil && b.entity.IsActiveInHierarchy()
}

func (b *Base) AABB() geom.AABB                 { return geom.Cleared() }
func (b *Base) HasRenderEntity(handle int) bool { return false }

func (b *Base) IntersectRay(geom.Ray, bool) (float32, bool) { return 0, false }

func (b *Base) RemapGUIDs(map[uuid.UUID]uuid.UUID) {}

// Serialize writes the shared fields. Concrete components add theirs.
func (b *Base) Serialize(forCopying bool) Value {
	return Value{
		"classname": b.class,
		"guid":      b.guid.String(),
		"enabled":   b.enabled,
	}
}

// Deserialize reads the shared fields. The GUID is assigned by the factory.
func (b *Base) Deserialize(v Value) {
	b.enabled = GetBool(v, "enabled", true)
}

func (b *Base) logger() *zap.Logger {
	if b.entity == nil {
		return zap.NewNop()
	}
	return b.entity.Logger()
}
