// Package world holds the scene graph: entities with their components and
// hierarchy, and the GameWorld that registers, spawns, updates, queries and
// destroys them.
package world

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/blueshift/engine/internal/component"
	"github.com/blueshift/engine/internal/config"
	"github.com/blueshift/engine/internal/core/aabbtree"
	"github.com/blueshift/engine/internal/core/ecs"
	"github.com/blueshift/engine/internal/core/event"
	"github.com/blueshift/engine/internal/core/hierarchy"
	"github.com/blueshift/engine/internal/scripting"
)

const (
	MaxScenes                 = 16
	DontDestroyOnLoadSceneNum = MaxScenes - 1
	MaxEntities               = 1 << 16
	BadEntityNum              = MaxEntities - 1
	MaxEntityNum              = MaxEntities - 2
)

type hierarchyNode = hierarchy.Node[*Entity]

type scene struct {
	root    hierarchyNode
	mapPath string
}

// GameWorld owns every entity of the running game. Not safe for
// concurrent use; the game loop goroutine drives it.
type GameWorld struct {
	cfg      config.WorldConfig
	log      *zap.Logger
	registry *component.Registry
	scripts  *scripting.Engine
	bus      *event.Bus

	table     *ecs.Table
	entities  *ecs.Store[*Entity]
	names     *ecs.Index
	tags      *ecs.Index
	instances map[uuid.UUID]*Entity
	scenes    [MaxScenes]scene

	tree *aabbtree.Tree[*Entity]

	nextRenderHandle int
	freeHandles      []int

	mapLoading  bool
	gameAwaking bool
	gameStarted bool

	time      time.Duration
	prevTime  time.Duration
	timeScale float64

	snapshot component.Value
}

// Option customizes a GameWorld.
type Option func(*GameWorld)

// WithScripts attaches the Lua engine used by script components.
func WithScripts(e *scripting.Engine) Option {
	return func(w *GameWorld) { w.scripts = e }
}

// WithRegistry replaces the default component class registry.
func WithRegistry(r *component.Registry) Option {
	return func(w *GameWorld) { w.registry = r }
}

func New(cfg config.WorldConfig, log *zap.Logger, opts ...Option) *GameWorld {
	if log == nil {
		log = zap.NewNop()
	}
	w := &GameWorld{
		cfg:       cfg,
		log:       log,
		registry:  component.DefaultRegistry(),
		bus:       event.NewBus(),
		table:     ecs.NewTable(MaxEntityNum),
		entities:  ecs.NewStore[*Entity](),
		names:     ecs.NewIndex(),
		tags:      ecs.NewIndex(),
		instances: make(map[uuid.UUID]*Entity),
		tree:      aabbtree.NewWithCapacity[*Entity](int32(max(cfg.TreeCapacity, 2))),
		timeScale: 1,
	}
	w.table.Track(w.entities, w.names, w.tags)
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *GameWorld) Config() config.WorldConfig          { return w.cfg }
func (w *GameWorld) Logger() *zap.Logger                 { return w.log }
func (w *GameWorld) Registry() *component.Registry       { return w.registry }
func (w *GameWorld) Scripts() *scripting.Engine          { return w.scripts }
func (w *GameWorld) Bus() *event.Bus                     { return w.bus }
func (w *GameWorld) Broadphase() *aabbtree.Tree[*Entity] { return w.tree }
func (w *GameWorld) IsMapLoading() bool                  { return w.mapLoading }

func (w *GameWorld) sceneRoot(index int) *hierarchyNode {
	if index < 0 || index >= MaxScenes {
		panic(fmt.Sprintf("world: scene index %d out of range", index))
	}
	return &w.scenes[index].root
}

// SceneRoots returns the top-level entities of a scene in order.
func (w *GameWorld) SceneRoots(index int) []*Entity {
	var out []*Entity
	for n := w.sceneRoot(index).FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, n.Owner())
	}
	return out
}

func (w *GameWorld) addInstance(e *Entity) {
	if other, ok := w.instances[e.guid]; ok && other != e {
		panic(fmt.Sprintf("world: GUID %s already used by entity %q", e.guid, other.name))
	}
	w.instances[e.guid] = e
}

func (w *GameWorld) removeInstance(e *Entity) {
	if w.instances[e.guid] == e {
		delete(w.instances, e.guid)
	}
}

func (w *GameWorld) allocRenderHandle() int {
	if n := len(w.freeHandles); n > 0 {
		h := w.freeHandles[n-1]
		w.freeHandles = w.freeHandles[:n-1]
		return h
	}
	h := w.nextRenderHandle
	w.nextRenderHandle++
	return h
}

func (w *GameWorld) freeRenderHandle(h int) {
	if h >= 0 {
		w.freeHandles = append(w.freeHandles, h)
	}
}

// IsRegisteredEntity reports whether e holds a spawn number.
func (w *GameWorld) IsRegisteredEntity(e *Entity) bool {
	return e.IsRegistered()
}

// RegisterEntity gives e a spawn number and makes it live. A negative index
// picks the lowest free number; otherwise the requested number is claimed,
// falling back to a free one when it is taken. Entities registered while a
// game runs are awoken and started immediately unless a map is loading.
func (w *GameWorld) RegisterEntity(e *Entity, index int) {
	if e.world != w {
		panic(fmt.Sprintf("world: entity %q belongs to another world", e.name))
	}
	if e.IsRegistered() {
		w.log.Warn("entity already registered", zap.String("entity", e.name), zap.Int("num", e.entityNum))
		return
	}

	var id ecs.EntityID
	if index >= 0 {
		var ok bool
		if id, ok = w.table.Pool().Claim(uint32(index)); !ok {
			w.log.Warn("spawn number unavailable, allocating another",
				zap.String("entity", e.name), zap.Int("num", index))
			id = w.table.Pool().Create()
		}
	} else {
		id = w.table.Pool().Create()
	}

	e.id = id
	e.entityNum = int(id.Index())
	w.entities.Set(id, e)
	w.names.Set(id, e.name)
	w.tags.Set(id, e.tag)

	if e.node.Parent() == nil {
		e.node.SetParent(w.sceneRoot(e.sceneIndex))
	}

	if !w.mapLoading {
		if w.gameAwaking {
			e.Awake()
		} else if w.gameStarted {
			e.Awake()
			e.Start()
		}
	}

	w.updateProxy(e)
	event.Publish(w.bus, EntityRegistered{Entity: e})
}

// UnregisterEntity takes e out of the world. Its children move up to its
// parent.
func (w *GameWorld) UnregisterEntity(e *Entity) {
	if !e.IsRegistered() {
		w.log.Warn("entity already unregistered", zap.String("entity", e.name))
		return
	}
	e.node.RemoveFromHierarchy()
	w.removeProxy(e)
	w.table.Release(e.id)

	e.entityNum = BadEntityNum
	e.id = 0
	event.Publish(w.bus, EntityUnregistered{Entity: e})
}

func (w *GameWorld) OnEntityNameChanged(e *Entity) {
	if e.IsRegistered() {
		w.names.Set(e.id, e.name)
	}
}

func (w *GameWorld) OnEntityTagChanged(e *Entity) {
	if e.IsRegistered() {
		w.tags.Set(e.id, e.tag)
	}
}

// NumEntities returns the number of registered entities.
func (w *GameWorld) NumEntities() int { return w.entities.Len() }

// Entity returns the registered entity with spawn number num.
func (w *GameWorld) Entity(num int) *Entity {
	if num < 0 || num >= MaxEntityNum {
		return nil
	}
	id, ok := w.table.Pool().Lookup(uint32(num))
	if !ok {
		return nil
	}
	e, _ := w.entities.Get(id)
	return e
}

func (w *GameWorld) FindEntityByGUID(id uuid.UUID) *Entity {
	return w.instances[id]
}

func (w *GameWorld) FindEntityByName(name string) *Entity {
	if name == "" {
		return nil
	}
	id, ok := w.names.First(norm.NFC.String(name))
	if !ok {
		return nil
	}
	e, _ := w.entities.Get(id)
	return e
}

// FindRootEntityByName searches the top level of every scene.
func (w *GameWorld) FindRootEntityByName(name string) *Entity {
	for i := range w.scenes {
		for n := w.scenes[i].root.FirstChild(); n != nil; n = n.NextSibling() {
			if n.Owner().name == name {
				return n.Owner()
			}
		}
	}
	return nil
}

// FindEntity resolves a path. "/a/b" starts at a scene root named a;
// "a/b" starts at any entity named a. Following segments name direct
// children.
func (w *GameWorld) FindEntity(path string) *Entity {
	path = norm.NFC.String(path)
	fromRoot := strings.HasPrefix(path, "/")
	if fromRoot {
		path = path[1:]
	}
	first, rest, nested := strings.Cut(path, "/")

	var e *Entity
	if fromRoot {
		e = w.FindRootEntityByName(first)
	} else {
		e = w.FindEntityByName(first)
	}
	if e == nil || !nested {
		return e
	}
	return findRelative(e, rest)
}

func findRelative(e *Entity, path string) *Entity {
	name, rest, nested := strings.Cut(path, "/")
	for c := e.node.FirstChild(); c != nil; c = c.NextSibling() {
		child := c.Owner()
		if child.name != name {
			continue
		}
		if nested {
			return findRelative(child, rest)
		}
		return child
	}
	return nil
}

func (w *GameWorld) FindEntityByTag(tag string) *Entity {
	if tag == "" {
		return nil
	}
	id, ok := w.tags.First(norm.NFC.String(tag))
	if !ok {
		return nil
	}
	e, _ := w.entities.Get(id)
	return e
}

func (w *GameWorld) FindEntitiesByTag(tag string) []*Entity {
	if tag == "" {
		return nil
	}
	ids := w.tags.All(norm.NFC.String(tag))
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := w.entities.Get(id); ok {
			out = append(out, e)
		}
	}
	return out
}

func (w *GameWorld) FindEntityByRenderEntity(handle int) *Entity {
	var found *Entity
	w.IterateEntities(func(e *Entity) bool {
		if e.HasRenderEntity(handle) {
			found = e
			return false
		}
		return true
	})
	return found
}

// IterateEntities visits every entity in the scene trees, scene by scene,
// in depth-first pre-order. fn returns false to stop.
func (w *GameWorld) IterateEntities(fn func(*Entity) bool) {
	for i := range w.scenes {
		for n := w.scenes[i].root.FirstChild(); n != nil; {
			// Fetch the successor first so fn may reparent the current node.
			next := n.Next()
			if !fn(n.Owner()) {
				return
			}
			n = next
		}
	}
}

// Cameras returns the cameras active in hierarchy sorted by order.
func (w *GameWorld) Cameras() []*component.Camera {
	var out []*component.Camera
	w.IterateEntities(func(e *Entity) bool {
		if c, ok := GetComponent[*component.Camera](e); ok && c.IsActiveInHierarchy() {
			out = append(out, c)
		}
		return true
	})
	sortCameras(out)
	return out
}

// CheckScriptError reports whether any script component has failed.
func (w *GameWorld) CheckScriptError() bool {
	failed := false
	w.IterateEntities(func(e *Entity) bool {
		failed = e.HasScriptError()
		return !failed
	})
	return failed
}

func (w *GameWorld) OnApplicationResize(width, height int) {
	w.IterateEntities(func(e *Entity) bool {
		e.OnApplicationResize(width, height)
		return true
	})
}

func (w *GameWorld) OnApplicationPause(pause bool) {
	w.IterateEntities(func(e *Entity) bool {
		e.OnApplicationPause(pause)
		return true
	})
}

func (w *GameWorld) OnApplicationTerminate() {
	w.IterateEntities(func(e *Entity) bool {
		e.OnApplicationTerminate()
		return true
	})
}
