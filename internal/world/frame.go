package world

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/component"
)

func sortCameras(cams []*component.Camera) {
	slices.SortStableFunc(cams, func(a, b *component.Camera) int { return a.Order() - b.Order() })
}

// StartGame wakes every registered entity, then starts them. Entities
// registered during the awake pass are awoken but left for the start pass.
func (w *GameWorld) StartGame() {
	if w.gameStarted {
		return
	}
	w.gameStarted = true
	w.timeScale = 1

	w.gameAwaking = true
	w.IterateEntities(func(e *Entity) bool {
		if !e.awaked {
			e.Awake()
		}
		return true
	})
	w.gameAwaking = false

	w.IterateEntities(func(e *Entity) bool {
		if !e.started {
			e.Start()
		}
		return true
	})
	w.log.Info("game started", zap.Int("entities", w.NumEntities()))
}

// StopGame halts the per-frame entity passes. Entities keep their state.
func (w *GameWorld) StopGame() {
	if !w.gameStarted {
		return
	}
	w.gameStarted = false
	w.log.Info("game stopped")
}

func (w *GameWorld) IsGameStarted() bool { return w.gameStarted }

// Time returns the scaled game clock in seconds.
func (w *GameWorld) Time() float64 { return w.time.Seconds() }

// DeltaTime is the scaled time advanced by the last frame.
func (w *GameWorld) DeltaTime() time.Duration { return w.time - w.prevTime }

func (w *GameWorld) TimeScale() float64 { return w.timeScale }

// SetTimeScale changes how fast game time runs. Negative scales are clamped
// to zero.
func (w *GameWorld) SetTimeScale(scale float64) {
	w.timeScale = max(scale, 0)
}

// Advance moves the game clock by elapsed real time scaled by the time
// scale and publishes the clock to scripts.
func (w *GameWorld) Advance(elapsed time.Duration) {
	w.prevTime = w.time
	w.time += time.Duration(float64(elapsed) * w.timeScale)
	if w.scripts != nil {
		w.scripts.SetFrameTime(w.Time(), w.DeltaTime().Seconds(), w.timeScale)
	}
}

// Update advances the clock and, while the game runs, updates then
// late-updates every entity.
func (w *GameWorld) Update(elapsed time.Duration) {
	w.Advance(elapsed)
	if !w.gameStarted {
		return
	}
	w.UpdateEntities()
	w.LateUpdateEntities()
}

func (w *GameWorld) UpdateEntities() {
	w.IterateEntities(func(e *Entity) bool {
		e.Update()
		return true
	})
}

func (w *GameWorld) LateUpdateEntities() {
	w.IterateEntities(func(e *Entity) bool {
		e.LateUpdate()
		return true
	})
}

// FixedUpdateEntities runs one fixed step. The step handed to scripts is
// scaled by the time scale.
func (w *GameWorld) FixedUpdateEntities(step time.Duration) {
	if !w.gameStarted {
		return
	}
	ts := float32(step.Seconds() * w.timeScale)
	w.IterateEntities(func(e *Entity) bool {
		e.FixedUpdate(ts)
		return true
	})
}

func (w *GameWorld) FixedLateUpdateEntities(step time.Duration) {
	if !w.gameStarted {
		return
	}
	ts := float32(step.Seconds() * w.timeScale)
	w.IterateEntities(func(e *Entity) bool {
		e.FixedLateUpdate(ts)
		return true
	})
}

// Reset rewinds the clock and leaves game mode. Entities are untouched.
func (w *GameWorld) Reset() {
	w.time = 0
	w.prevTime = 0
	w.timeScale = 1
	w.gameStarted = false
	w.gameAwaking = false
}
