package world

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/component"
	"github.com/blueshift/engine/internal/core/ecs"
	"github.com/blueshift/engine/internal/geom"
)

// CreateEmptyEntity spawns a registered entity carrying only a transform.
func (w *GameWorld) CreateEmptyEntity(name string) *Entity {
	v := component.Value{
		"name": name,
		"components": []any{
			component.Value{
				"classname": component.ClassTransform,
				"origin":    component.Vec3Value(geom.Vec3{}),
				"angles":    component.Vec3Value(geom.Vec3{}),
			},
		},
	}
	e := CreateEntity(v, w, 0)
	e.Init()
	e.InitComponents()
	w.RegisterEntity(e, -1)
	return e
}

// SpawnEntityFromValue creates, initializes and registers one entity. The
// saved spawn_entnum is reused when free. Values of another class are
// rejected with a warning.
func (w *GameWorld) SpawnEntityFromValue(v component.Value, sceneIndex int) *Entity {
	if class := component.GetString(v, "classname", EntityClassName); class != EntityClassName {
		w.log.Warn("bad classname for entity", zap.String("classname", class))
		return nil
	}
	num := component.GetInt(v, "spawn_entnum", -1)

	e := CreateEntity(v, w, sceneIndex)
	e.Init()
	e.InitComponents()
	w.RegisterEntity(e, num)
	return e
}

// SpawnEntitiesFromValue spawns a list of entity values in order, then
// gives every spawned entity a LateInitComponents pass.
func (w *GameWorld) SpawnEntitiesFromValue(list []any, sceneIndex int) []*Entity {
	spawned := make([]*Entity, 0, len(list))
	for _, raw := range list {
		v, ok := raw.(map[string]any)
		if !ok {
			w.log.Warn("entity value is not an object")
			continue
		}
		if e := w.SpawnEntityFromValue(v, sceneIndex); e != nil {
			spawned = append(spawned, e)
		}
	}
	for _, e := range spawned {
		e.LateInitComponents()
	}
	return spawned
}

// CloneEntity duplicates original and its subtree with fresh GUIDs. The
// clone root becomes a sibling of original; references inside the subtree
// point at the copies. The result is initialized but not registered.
func (w *GameWorld) CloneEntity(original *Entity) *Entity {
	originals := SerializeHierarchy(original, true)
	remap := make(map[uuid.UUID]uuid.UUID, len(originals)*2)
	clones := CloneEntitiesValue(originals, remap)

	var root *Entity
	for i, raw := range clones {
		e := CreateEntity(raw.(map[string]any), w, original.sceneIndex)
		RemapGUIDs(e, remap)

		src := originals[i].(map[string]any)
		if component.GetBool(src, "prefab", false) {
			e.prefabSource = component.GetGUID(src, "guid")
			e.prefab = false
		}

		e.Init()
		e.InitComponents()
		if root == nil {
			root = e
		}
	}
	return root
}

func (w *GameWorld) registerSubtree(root *Entity) {
	w.RegisterEntity(root, -1)
	for _, c := range root.GetChildren() {
		w.RegisterEntity(c, -1)
	}
}

// InstantiateEntity clones original and registers the copies.
func (w *GameWorld) InstantiateEntity(original *Entity) *Entity {
	clone := w.CloneEntity(original)
	w.registerSubtree(clone)
	return clone
}

// InstantiateEntityWithTransform clones original, places the copy at a
// local origin and rotation (roll, pitch, yaw in degrees), and registers it.
func (w *GameWorld) InstantiateEntityWithTransform(original *Entity, origin, angles geom.Vec3) *Entity {
	clone := w.CloneEntity(original)
	t := clone.Transform()
	t.SetLocalOrigin(origin)
	t.SetLocalAngles(angles)
	w.registerSubtree(clone)
	return clone
}

// DestroyEntity queues e and its subtree for destruction at the end of the
// frame. Unregistered entities are destroyed at once.
func (w *GameWorld) DestroyEntity(e *Entity) {
	if !e.IsRegistered() {
		DestroyInstance(e)
		return
	}
	children := e.GetChildren()
	for i := len(children) - 1; i >= 0; i-- {
		if c := children[i]; c.IsRegistered() {
			w.table.MarkForDestruction(c.id)
		} else {
			DestroyInstance(c)
		}
	}
	w.table.MarkForDestruction(e.id)
}

// DestroyEntityImmediate destroys e and its subtree now.
func (w *GameWorld) DestroyEntityImmediate(e *Entity) {
	DestroyInstance(e)
}

// PendingDestroy returns the number of entities queued by DestroyEntity.
func (w *GameWorld) PendingDestroy() int { return w.table.Pending() }

// FlushDestroyed destroys every queued entity still alive.
func (w *GameWorld) FlushDestroyed() {
	w.table.FlushDestroyQueue(func(id ecs.EntityID) {
		if e, ok := w.entities.Get(id); ok {
			e.destroyImmediate()
		}
	})
}

// ClearEntities destroys every entity, keeping the DontDestroyOnLoad scene
// unless all is set. Deepest entities go first.
func (w *GameWorld) ClearEntities(all bool) {
	var doomed []*Entity
	for i := range w.scenes {
		if !all && i == DontDestroyOnLoadSceneNum {
			continue
		}
		root := &w.scenes[i].root
		for n := root.FirstChild(); n != nil; n = n.Next() {
			doomed = append(doomed, n.Owner())
		}
		w.scenes[i].mapPath = ""
	}
	for i := len(doomed) - 1; i >= 0; i-- {
		doomed[i].destroyImmediate()
	}
}

// DontDestroyOnLoad moves the root of e's tree into the scene that
// survives map changes.
func (w *GameWorld) DontDestroyOnLoad(e *Entity) {
	keep := w.sceneRoot(DontDestroyOnLoadSceneNum)
	if e.node.IsParentedBy(keep) {
		return
	}
	root := e.Root()
	root.node.SetParent(keep)
	root.sceneIndex = DontDestroyOnLoadSceneNum
	for _, c := range root.GetChildren() {
		c.sceneIndex = DontDestroyOnLoadSceneNum
	}
}
