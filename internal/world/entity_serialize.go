package world

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/component"
)

// Serialize writes the entity's properties and its ordered component list.
func (e *Entity) Serialize(forCopying bool) component.Value {
	comps := make([]any, 0, len(e.components))
	for _, c := range e.components {
		comps = append(comps, c.Serialize(forCopying))
	}

	v := component.Value{
		"classname":         EntityClassName,
		"guid":              e.guid.String(),
		"name":              e.name,
		"tag":               e.tag,
		"layer":             float64(e.layer),
		"staticMask":        float64(e.staticMask),
		"active":            e.activeSelf,
		"activeInHierarchy": e.activeInHierarchy,
		"frozen":            e.frozen,
		"prefab":            e.prefab,
		"components":        comps,
	}
	if p := e.ParentGUID(); p != uuid.Nil {
		v["parent"] = p.String()
	}
	if e.prefabSource != uuid.Nil {
		v["prefabSource"] = e.prefabSource.String()
	}
	if !forCopying && e.IsRegistered() {
		v["spawn_entnum"] = float64(e.entityNum)
	}
	return v
}

// Deserialize reads properties and builds components through the world's
// class registry. Unknown classes are skipped with a warning; a missing
// transform is added so index 0 always holds one.
func (e *Entity) Deserialize(v component.Value) {
	e.name = DefaultName
	if name := component.GetString(v, "name", ""); name != "" {
		e.SetName(name)
	}
	e.SetTag(component.GetString(v, "tag", DefaultTag))
	e.SetLayer(component.GetInt(v, "layer", 0))
	e.staticMask = component.GetInt(v, "staticMask", 0)
	e.frozen = component.GetBool(v, "frozen", false)
	e.prefab = component.GetBool(v, "prefab", false)
	e.prefabSource = component.GetGUID(v, "prefabSource")
	e.activeSelf = component.GetBool(v, "active", true)

	reg := e.registry()
	for _, raw := range component.GetList(v, "components") {
		cv, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		c, err := reg.FromValue(cv)
		if err != nil {
			e.Logger().Warn("skip component", zap.String("entity", e.name), zap.Error(err))
			continue
		}
		c.SetEntity(e)
		e.AddComponent(c)
	}
	switch i := slices.IndexFunc(e.components, isTransform); {
	case i == 0:
	case i > 0:
		e.Logger().Warn("transform is not the first component, moving it", zap.String("entity", e.name))
		t := e.components[i]
		e.components = slices.Delete(e.components, i, i+1)
		e.components = slices.Insert(e.components, 0, t)
	default:
		e.Logger().Warn("entity has no transform, adding one", zap.String("entity", e.name))
		t, err := reg.New(component.ClassTransform)
		if err != nil {
			panic(fmt.Sprintf("entity %q: cannot create transform: %v", e.name, err))
		}
		e.InsertComponent(t, 0)
	}

	e.SetParentGUID(component.GetGUID(v, "parent"))
	p := e.Parent()
	e.activeInHierarchy = e.activeSelf && (p == nil || p.activeInHierarchy)
}

// CreateEntity builds an entity from its serialized form. The stored GUID is
// kept; a missing one is generated. The entity is neither initialized nor
// registered.
func CreateEntity(v component.Value, w *GameWorld, sceneIndex int) *Entity {
	e := newEntity(w, component.GetGUID(v, "guid"), sceneIndex)
	e.Deserialize(v)
	return e
}

// SerializeHierarchy serializes e and its descendants in depth-first
// pre-order, parents before children.
func SerializeHierarchy(e *Entity, forCopying bool) []any {
	out := []any{e.Serialize(forCopying)}
	for _, c := range e.GetChildren() {
		out = append(out, c.Serialize(forCopying))
	}
	return out
}

// CloneEntityValue copies v with fresh entity and component GUIDs and
// records old to new mappings in remap.
func CloneEntityValue(v component.Value, remap map[uuid.UUID]uuid.UUID) component.Value {
	out := component.CloneValue(v)

	newID := uuid.New()
	if old := component.GetGUID(v, "guid"); old != uuid.Nil {
		remap[old] = newID
	}
	out["guid"] = newID.String()
	delete(out, "spawn_entnum")

	for _, raw := range component.GetList(out, "components") {
		cv, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		newComp := uuid.New()
		if old := component.GetGUID(cv, "guid"); old != uuid.Nil {
			remap[old] = newComp
		}
		cv["guid"] = newComp.String()
	}
	return out
}

// CloneEntitiesValue clones every entity value of a list.
func CloneEntitiesValue(list []any, remap map[uuid.UUID]uuid.UUID) []any {
	out := make([]any, 0, len(list))
	for _, raw := range list {
		if v, ok := raw.(map[string]any); ok {
			out = append(out, CloneEntityValue(v, remap))
		}
	}
	return out
}

// RemapGUIDs rewrites every GUID reference held by e or its components.
func RemapGUIDs(e *Entity, remap map[uuid.UUID]uuid.UUID) {
	if to, ok := remap[e.ParentGUID()]; ok {
		e.SetParentGUID(to)
	}
	if to, ok := remap[e.prefabSource]; ok {
		e.prefabSource = to
	}
	for _, c := range e.components {
		c.RemapGUIDs(remap)
	}
}

func isTransform(c component.Component) bool {
	return c.ClassName() == component.ClassTransform
}
