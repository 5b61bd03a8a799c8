package world

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/blueshift/engine/internal/component"
	"github.com/blueshift/engine/internal/core/ecs"
	"github.com/blueshift/engine/internal/core/event"
	"github.com/blueshift/engine/internal/core/hierarchy"
	"github.com/blueshift/engine/internal/geom"
	"github.com/blueshift/engine/internal/scripting"
)

const (
	EntityClassName = "Entity"
	DefaultName     = "Entity"
	DefaultTag      = "Untagged"
)

// Entity is a node of the scene tree. It owns an ordered list of
// components; index 0 is always the Transform.
//
// Entities are created by CreateEntity or the GameWorld spawn functions and
// become live once registered. All access happens on the game loop
// goroutine.
type Entity struct {
	guid       uuid.UUID
	world      *GameWorld
	id         ecs.EntityID
	entityNum  int
	sceneIndex int

	name         string
	tag          string
	layer        int
	staticMask   int
	frozen       bool
	prefab       bool
	prefabSource uuid.UUID

	activeSelf        bool
	activeInHierarchy bool
	initialized       bool
	awaked            bool
	started           bool
	destroyed         bool

	node       hierarchy.Node[*Entity]
	components []component.Component
	bus        *event.Bus

	proxy       int32
	proxyCenter geom.Vec3
}

// newEntity allocates an entity and files it in the world's GUID registry.
// A GUID already in use is a programming error.
func newEntity(w *GameWorld, guid uuid.UUID, sceneIndex int) *Entity {
	if guid == uuid.Nil {
		guid = uuid.New()
	}
	e := &Entity{
		guid:              guid,
		world:             w,
		entityNum:         BadEntityNum,
		sceneIndex:        sceneIndex,
		name:              DefaultName,
		tag:               DefaultTag,
		activeSelf:        true,
		activeInHierarchy: true,
		proxy:             -1,
	}
	e.node.Init(e)
	if w != nil {
		w.addInstance(e)
	}
	return e
}

func (e *Entity) GUID() uuid.UUID         { return e.guid }
func (e *Entity) World() *GameWorld       { return e.world }
func (e *Entity) EntityNum() int          { return e.entityNum }
func (e *Entity) SceneIndex() int         { return e.sceneIndex }
func (e *Entity) Name() string            { return e.name }
func (e *Entity) Tag() string             { return e.tag }
func (e *Entity) Layer() int              { return e.layer }
func (e *Entity) StaticMask() int         { return e.staticMask }
func (e *Entity) IsFrozen() bool          { return e.frozen }
func (e *Entity) IsPrefab() bool          { return e.prefab }
func (e *Entity) PrefabSource() uuid.UUID { return e.prefabSource }
func (e *Entity) IsActiveSelf() bool      { return e.activeSelf }
func (e *Entity) IsInitialized() bool     { return e.initialized }
func (e *Entity) IsAwaked() bool          { return e.awaked }
func (e *Entity) IsStarted() bool         { return e.started }

func (e *Entity) IsActiveInHierarchy() bool { return e.activeInHierarchy }

// IsRegistered reports whether the entity holds a spawn number.
func (e *Entity) IsRegistered() bool { return e.entityNum != BadEntityNum }

func (e *Entity) String() string {
	return fmt.Sprintf("%s(%d)", e.name, e.entityNum)
}

// Transform returns component 0. Every entity carries one; a missing
// transform is a programming error.
func (e *Entity) Transform() *component.Transform {
	if len(e.components) > 0 {
		if t, ok := e.components[0].(*component.Transform); ok {
			return t
		}
	}
	panic(fmt.Sprintf("world: entity %q has no transform", e.name))
}

// ParentTransform returns the parent entity's transform, nil for roots.
func (e *Entity) ParentTransform() *component.Transform {
	if p := e.Parent(); p != nil {
		return p.Transform()
	}
	return nil
}

func (e *Entity) IsGameStarted() bool {
	return e.world != nil && e.world.gameStarted
}

func (e *Entity) ScriptEngine() *scripting.Engine {
	if e.world == nil {
		return nil
	}
	return e.world.scripts
}

func (e *Entity) AllocRenderHandle() int {
	if e.world == nil {
		return -1
	}
	return e.world.allocRenderHandle()
}

func (e *Entity) FreeRenderHandle(handle int) {
	if e.world != nil {
		e.world.freeRenderHandle(handle)
	}
}

func (e *Entity) Logger() *zap.Logger {
	if e.world == nil {
		return zap.NewNop()
	}
	return e.world.log
}

// Init marks the entity ready to enter the world.
func (e *Entity) Init() {
	e.initialized = true
}

// InitComponents initializes every component not yet initialized and
// pushes the frozen flag into the renderable, if any.
func (e *Entity) InitComponents() {
	for _, c := range e.components {
		if !c.IsInitialized() {
			c.Init()
		}
	}
	if e.frozen {
		if r, ok := GetComponent[component.Renderable](e); ok {
			r.SetSkipSelection(true)
		}
	}
}

// LateInitComponents runs after every entity of a batch is initialized, so
// cross-entity references resolve. Components that need it implement
// LateInit.
func (e *Entity) LateInitComponents() {
	for _, c := range e.components {
		if li, ok := c.(interface{ LateInit() }); ok {
			li.LateInit()
		}
	}
}

func (e *Entity) Awake() {
	for _, c := range e.components {
		c.Awake()
	}
	e.awaked = true
}

// Start starts the script components active in hierarchy.
func (e *Entity) Start() {
	for _, s := range e.scripts() {
		if s.IsActiveInHierarchy() {
			s.Start()
		}
	}
	e.started = true
}

func (e *Entity) Update() {
	for _, c := range e.components {
		if c.IsActiveInHierarchy() {
			c.Update()
		}
	}
}

// LateUpdate follows Update: every component active in hierarchy.
func (e *Entity) LateUpdate() {
	for _, c := range e.components {
		if c.IsActiveInHierarchy() {
			c.LateUpdate()
		}
	}
}

func (e *Entity) FixedUpdate(timeStep float32) {
	for _, s := range e.scripts() {
		if s.IsActiveInHierarchy() {
			s.FixedUpdate(timeStep)
		}
	}
}

func (e *Entity) FixedLateUpdate(timeStep float32) {
	for _, s := range e.scripts() {
		if s.IsActiveInHierarchy() {
			s.FixedLateUpdate(timeStep)
		}
	}
}

// Purge releases component resources in reverse order and resets the
// lifecycle flags.
func (e *Entity) Purge() {
	for i := len(e.components) - 1; i >= 0; i-- {
		e.components[i].Purge()
	}
	e.initialized = false
	e.awaked = false
	e.started = false
}

func (e *Entity) scripts() []component.Scripted {
	return GetComponents[component.Scripted](e)
}

// SetActive sets the local active flag. The change reaches activeInHierarchy
// only when the parent is itself active in hierarchy.
func (e *Entity) SetActive(active bool) {
	if active == e.activeSelf {
		return
	}
	e.activeSelf = active
	emit(e, ActiveChanged{Entity: e, Active: active})

	if p := e.Parent(); p == nil || p.activeInHierarchy {
		e.setActiveInHierarchy(active)
	}
}

func (e *Entity) setActiveInHierarchy(active bool) {
	if e.activeInHierarchy == active {
		return
	}
	e.activeInHierarchy = active
	emit(e, ActiveInHierarchyChanged{Entity: e, Active: active})

	for i := 1; i < len(e.components); i++ {
		c := e.components[i]
		if !c.IsEnabled() {
			continue
		}
		if active {
			c.OnActive()
		} else {
			c.OnInactive()
		}
	}

	for c := e.node.FirstChild(); c != nil; c = c.NextSibling() {
		child := c.Owner()
		child.setActiveInHierarchy(active && child.activeSelf)
	}
}

// SetName renames the entity. Names are stored in NFC so lookups match
// regardless of how the text was composed.
func (e *Entity) SetName(name string) {
	e.name = norm.NFC.String(name)
	if e.initialized {
		if e.world != nil {
			e.world.OnEntityNameChanged(e)
		}
		emit(e, NameChanged{Entity: e, Name: e.name})
	}
}

func (e *Entity) SetTag(tag string) {
	e.tag = norm.NFC.String(tag)
	if e.initialized && e.world != nil {
		e.world.OnEntityTagChanged(e)
	}
}

func (e *Entity) SetLayer(layer int) {
	e.layer = layer
	if e.initialized {
		emit(e, LayerChanged{Entity: e, Layer: layer})
	}
}

func (e *Entity) SetStaticMask(mask int) {
	e.staticMask = mask
	if e.initialized {
		emit(e, StaticMaskChanged{Entity: e, Mask: mask})
	}
}

// SetFrozen locks the entity against editor selection.
func (e *Entity) SetFrozen(frozen bool) {
	e.frozen = frozen
	if e.initialized {
		if r, ok := GetComponent[component.Renderable](e); ok {
			r.SetSkipSelection(frozen)
		}
		emit(e, FrozenChanged{Entity: e, Frozen: frozen})
	}
}

func (e *Entity) SetPrefab(prefab bool)            { e.prefab = prefab }
func (e *Entity) SetPrefabSource(source uuid.UUID) { e.prefabSource = source }

// HasRenderEntity reports whether any component owns the render handle.
func (e *Entity) HasRenderEntity(handle int) bool {
	for i := 1; i < len(e.components); i++ {
		if e.components[i].HasRenderEntity(handle) {
			return true
		}
	}
	return false
}

func (e *Entity) OnApplicationResize(width, height int) {
	for _, s := range e.scripts() {
		s.OnApplicationResize(width, height)
	}
}

func (e *Entity) OnApplicationPause(pause bool) {
	for _, s := range e.scripts() {
		s.OnApplicationPause(pause)
	}
}

func (e *Entity) OnApplicationTerminate() {
	for _, s := range e.scripts() {
		s.OnApplicationTerminate()
	}
}

// HasScriptError reports whether any script component failed.
func (e *Entity) HasScriptError() bool {
	for _, s := range e.scripts() {
		if s.HasError() {
			return true
		}
	}
	return false
}

// DestroyInstance destroys the entity and its whole subtree immediately,
// deepest descendants first.
func DestroyInstance(e *Entity) {
	children := e.GetChildren()
	for i := len(children) - 1; i >= 0; i-- {
		children[i].destroyImmediate()
	}
	e.destroyImmediate()
}

// destroyImmediate unregisters the entity, purges and detaches every
// component and drops it from the GUID registry. Children are not touched.
func (e *Entity) destroyImmediate() {
	if e.destroyed {
		return
	}
	if e.world != nil && e.IsRegistered() {
		e.world.UnregisterEntity(e)
	}
	e.node.RemoveFromHierarchy()

	e.Purge()
	for _, c := range e.components {
		c.SetEntity(nil)
	}
	e.components = nil

	if e.world != nil {
		e.world.removeInstance(e)
	}
	e.destroyed = true
}

// IsDestroyed reports whether the entity has been torn down.
func (e *Entity) IsDestroyed() bool { return e.destroyed }
