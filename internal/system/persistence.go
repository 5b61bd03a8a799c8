package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/component"
	coresys "github.com/blueshift/engine/internal/core/system"
	"github.com/blueshift/engine/internal/world"
)

// SnapshotStore persists world snapshots. *persist.SceneRepo implements it.
type SnapshotStore interface {
	Save(ctx context.Context, name string, v component.Value) (int64, error)
}

// PersistenceSystem periodically saves a snapshot of every scene under one
// name. Phase 5 (Persist).
type PersistenceSystem struct {
	world     *world.GameWorld
	store     SnapshotStore
	name      string
	log       *zap.Logger
	tickCount int
	interval  int // save every N ticks, 0 disables the periodic save
	timeout   time.Duration
}

func NewPersistenceSystem(w *world.GameWorld, store SnapshotStore, name string, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	return &PersistenceSystem{
		world:    w,
		store:    store,
		name:     name,
		log:      log,
		interval: intervalTicks,
		timeout:  5 * time.Second,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.save()
}

// SaveNow stores a snapshot immediately. Called on graceful shutdown.
func (s *PersistenceSystem) SaveNow() error {
	s.tickCount = 0
	return s.save()
}

func (s *PersistenceSystem) save() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	id, err := s.store.Save(ctx, s.name, s.world.SnapshotValue())
	if err != nil {
		s.log.Error("snapshot save failed", zap.String("name", s.name), zap.Error(err))
		return err
	}
	s.log.Info("snapshot saved",
		zap.String("name", s.name),
		zap.Int64("id", id),
		zap.Int("entities", s.world.NumEntities()))
	return nil
}
