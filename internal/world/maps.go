package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/component"
	"github.com/blueshift/engine/internal/core/event"
	"github.com/blueshift/engine/internal/data"
)

// LoadSceneMode controls what LoadMap keeps from the current world.
type LoadSceneMode int

const (
	// Single replaces every scene except DontDestroyOnLoad.
	Single LoadSceneMode = iota
	// Additive loads into the first empty scene, keeping the rest.
	Additive
	// Editor replaces everything, DontDestroyOnLoad included.
	Editor
)

func (m LoadSceneMode) String() string {
	switch m {
	case Single:
		return "single"
	case Additive:
		return "additive"
	case Editor:
		return "editor"
	}
	return fmt.Sprintf("LoadSceneMode(%d)", int(m))
}

// NewMap empties the world and rewinds the clock.
func (w *GameWorld) NewMap() {
	w.ClearEntities(false)
	w.Reset()
}

// MapPath returns the file a scene was loaded from, empty if none.
func (w *GameWorld) MapPath(sceneIndex int) string {
	w.sceneRoot(sceneIndex)
	return w.scenes[sceneIndex].mapPath
}

func (w *GameWorld) firstEmptyScene() (int, bool) {
	for i := 0; i < DontDestroyOnLoadSceneNum; i++ {
		if w.scenes[i].root.FirstChild() == nil {
			return i, true
		}
	}
	return 0, false
}

// LoadMap reads a map file and spawns its entities into a scene. Entities
// are neither awoken nor started while the map loads.
func (w *GameWorld) LoadMap(path string, mode LoadSceneMode) error {
	v, err := data.ReadMap(path)
	if err != nil {
		return err
	}

	switch mode {
	case Single:
		w.ClearEntities(false)
	case Editor:
		w.ClearEntities(true)
	}
	if mode != Additive {
		w.Reset()
	}

	sceneIndex, ok := w.firstEmptyScene()
	if !ok {
		return fmt.Errorf("load map %s: no empty scene", path)
	}

	w.mapLoading = true
	spawned := w.SpawnEntitiesFromValue(data.Entities(v), sceneIndex)
	w.mapLoading = false
	w.scenes[sceneIndex].mapPath = path

	w.log.Info("map loaded",
		zap.String("path", path),
		zap.Stringer("mode", mode),
		zap.Int("scene", sceneIndex),
		zap.Int("entities", len(spawned)))
	event.Publish(w.bus, MapLoaded{Path: path, SceneIndex: sceneIndex, Entities: len(spawned)})
	return nil
}

// SceneValue serializes every hierarchy of a scene, roots in order.
func (w *GameWorld) SceneValue(sceneIndex int) []any {
	var list []any
	for _, root := range w.SceneRoots(sceneIndex) {
		list = append(list, SerializeHierarchy(root, false)...)
	}
	return list
}

// SaveMap writes scene 0 to path.
func (w *GameWorld) SaveMap(path string) error {
	if err := data.WriteMap(path, data.NewMap(w.SceneValue(0))); err != nil {
		return err
	}
	w.scenes[0].mapPath = path
	w.log.Info("map saved", zap.String("path", path))
	return nil
}

// SnapshotValue serializes every scene, keyed by scene index.
func (w *GameWorld) SnapshotValue() component.Value {
	scenes := make([]any, MaxScenes)
	for i := range scenes {
		list := w.SceneValue(i)
		if list == nil {
			list = []any{}
		}
		scenes[i] = list
	}
	return component.Value{"version": float64(data.MapVersion), "scenes": scenes}
}

// RestoreSnapshotValue replaces every entity with the contents of a
// snapshot made by SnapshotValue.
func (w *GameWorld) RestoreSnapshotValue(v component.Value) error {
	scenes := component.GetList(v, "scenes")
	if len(scenes) > MaxScenes {
		return fmt.Errorf("restore snapshot: %d scenes, at most %d", len(scenes), MaxScenes)
	}

	w.ClearEntities(true)
	w.mapLoading = true
	defer func() { w.mapLoading = false }()
	for i, raw := range scenes {
		list, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("restore snapshot: scene %d is not a list", i)
		}
		w.SpawnEntitiesFromValue(list, i)
	}
	return nil
}

// SaveSnapshot keeps an in-memory copy of the world for RestoreSnapshot.
func (w *GameWorld) SaveSnapshot() {
	w.snapshot = w.SnapshotValue()
}

func (w *GameWorld) HasSnapshot() bool { return w.snapshot != nil }

// RestoreSnapshot rebuilds the world from the last SaveSnapshot and drops
// the copy. The clock is rewound.
func (w *GameWorld) RestoreSnapshot() error {
	if w.snapshot == nil {
		return fmt.Errorf("restore snapshot: none saved")
	}
	snap := w.snapshot
	w.snapshot = nil
	w.Reset()
	return w.RestoreSnapshotValue(snap)
}
