package system

import (
	"time"

	coresys "github.com/blueshift/engine/internal/core/system"
	"github.com/blueshift/engine/internal/world"
)

// EventSystem advances the game clock and delivers the signals entities
// emitted during the previous frame. Phase 0 (Events).
type EventSystem struct {
	world *world.GameWorld
}

func NewEventSystem(w *world.GameWorld) *EventSystem {
	return &EventSystem{world: w}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventSystem) Update(dt time.Duration) {
	s.world.Advance(dt)
	bus := s.world.Bus()
	bus.SwapBuffers()
	bus.DispatchAll()
}

// FixedUpdateSystem runs zero or more fixed steps per frame, fed by an
// accumulator of real frame time. Phase 1 (FixedUpdate).
type FixedUpdateSystem struct {
	world    *world.GameWorld
	step     time.Duration
	maxSteps int
	acc      time.Duration
	dropped  int
}

func NewFixedUpdateSystem(w *world.GameWorld, step time.Duration, maxSteps int) *FixedUpdateSystem {
	return &FixedUpdateSystem{world: w, step: step, maxSteps: maxSteps}
}

func (s *FixedUpdateSystem) Phase() coresys.Phase { return coresys.PhaseFixedUpdate }

func (s *FixedUpdateSystem) Update(dt time.Duration) {
	if !s.world.IsGameStarted() {
		s.acc = 0
		return
	}
	s.acc += dt
	steps := 0
	for s.acc >= s.step {
		if s.maxSteps > 0 && steps == s.maxSteps {
			// Too far behind; skip the backlog instead of spiralling.
			s.dropped += int(s.acc / s.step)
			s.acc %= s.step
			break
		}
		s.world.FixedUpdateEntities(s.step)
		s.world.FixedLateUpdateEntities(s.step)
		s.acc -= s.step
		steps++
	}
}

// Dropped returns how many fixed steps were skipped by the per-frame cap.
func (s *FixedUpdateSystem) Dropped() int { return s.dropped }

// UpdateSystem runs component Update while the game is started.
// Phase 2 (Update).
type UpdateSystem struct {
	world *world.GameWorld
}

func NewUpdateSystem(w *world.GameWorld) *UpdateSystem {
	return &UpdateSystem{world: w}
}

func (s *UpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *UpdateSystem) Update(_ time.Duration) {
	if s.world.IsGameStarted() {
		s.world.UpdateEntities()
	}
}

// LateUpdateSystem runs component LateUpdate after every Update of the
// frame. Phase 3 (LateUpdate).
type LateUpdateSystem struct {
	world *world.GameWorld
}

func NewLateUpdateSystem(w *world.GameWorld) *LateUpdateSystem {
	return &LateUpdateSystem{world: w}
}

func (s *LateUpdateSystem) Phase() coresys.Phase { return coresys.PhaseLateUpdate }

func (s *LateUpdateSystem) Update(_ time.Duration) {
	if s.world.IsGameStarted() {
		s.world.LateUpdateEntities()
	}
}

// BroadphaseSystem refreshes every entity proxy in the AABB tree. It also
// runs while the game is stopped so editor queries see moved entities.
// Phase 4 (Broadphase).
type BroadphaseSystem struct {
	world *world.GameWorld
}

func NewBroadphaseSystem(w *world.GameWorld) *BroadphaseSystem {
	return &BroadphaseSystem{world: w}
}

func (s *BroadphaseSystem) Phase() coresys.Phase { return coresys.PhaseBroadphase }

func (s *BroadphaseSystem) Update(_ time.Duration) {
	s.world.SyncBroadphase()
}
