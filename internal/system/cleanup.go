package system

import (
	"time"

	coresys "github.com/blueshift/engine/internal/core/system"
	"github.com/blueshift/engine/internal/world"
)

// CleanupSystem flushes the deferred entity destruction queue at frame end.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	world *world.GameWorld
}

func NewCleanupSystem(w *world.GameWorld) *CleanupSystem {
	return &CleanupSystem{world: w}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.world.FlushDestroyed()
}
