package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/component"
	"github.com/blueshift/engine/internal/config"
	"github.com/blueshift/engine/internal/core/event"
	coresys "github.com/blueshift/engine/internal/core/system"
	"github.com/blueshift/engine/internal/geom"
	"github.com/blueshift/engine/internal/scripting"
	"github.com/blueshift/engine/internal/world"
)

const tickScript = `
fixed = 0
updates = 0
lates = 0
last_dt = 0

function fixed_update(dt) fixed = fixed + 1 last_dt = dt end
function update() updates = updates + 1 end
function late_update() lates = lates + 1 end
`

func newWorld(t *testing.T) *world.GameWorld {
	t.Helper()
	eng, err := scripting.NewEngine("", nil)
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return world.New(config.Defaults().World, zap.NewNop(), world.WithScripts(eng))
}

func spawnTicker(t *testing.T, w *world.GameWorld) *component.Script {
	t.Helper()
	e := w.SpawnEntityFromValue(component.Value{
		"name": "ticker",
		"components": []any{
			component.Value{"classname": component.ClassTransform},
			component.Value{"classname": component.ClassScript, "source": tickScript},
		},
	}, 0)
	require.NotNil(t, e)
	s, ok := world.GetComponent[*component.Script](e)
	require.True(t, ok)
	require.NotNil(t, s.Sandbox())
	return s
}

func newFrameRunner(w *world.GameWorld, step time.Duration, maxSteps int) (*coresys.Runner, *FixedUpdateSystem) {
	fixed := NewFixedUpdateSystem(w, step, maxSteps)
	r := coresys.NewRunner()
	r.Register(NewCleanupSystem(w))
	r.Register(NewBroadphaseSystem(w))
	r.Register(NewLateUpdateSystem(w))
	r.Register(NewUpdateSystem(w))
	r.Register(fixed)
	r.Register(NewEventSystem(w))
	return r, fixed
}

func TestFrameSystemsIdleUntilStarted(t *testing.T) {
	w := newWorld(t)
	s := spawnTicker(t, w)
	r, _ := newFrameRunner(w, 20*time.Millisecond, 5)

	r.Tick(40 * time.Millisecond)
	assert.Equal(t, 0.0, s.Sandbox().Get("updates"))
	assert.Equal(t, 0.0, s.Sandbox().Get("fixed"))
	assert.InDelta(t, 0.04, w.Time(), 1e-9, "the clock runs while stopped")

	w.StartGame()
	r.Tick(40 * time.Millisecond)
	assert.Equal(t, 1.0, s.Sandbox().Get("updates"))
	assert.Equal(t, 1.0, s.Sandbox().Get("lates"))
	assert.Equal(t, 2.0, s.Sandbox().Get("fixed"))
}

func TestFixedUpdateAccumulates(t *testing.T) {
	w := newWorld(t)
	s := spawnTicker(t, w)
	w.StartGame()
	fixed := NewFixedUpdateSystem(w, 20*time.Millisecond, 3)

	fixed.Update(15 * time.Millisecond)
	assert.Equal(t, 0.0, s.Sandbox().Get("fixed"))
	fixed.Update(10 * time.Millisecond)
	assert.Equal(t, 1.0, s.Sandbox().Get("fixed"))
	assert.InDelta(t, 0.02, s.Sandbox().Get("last_dt"), 1e-6)

	// 5ms left over plus 100ms: five steps due, three run.
	fixed.Update(100 * time.Millisecond)
	assert.Equal(t, 4.0, s.Sandbox().Get("fixed"))
	assert.Equal(t, 2, fixed.Dropped())

	w.SetTimeScale(0.5)
	fixed.Update(20 * time.Millisecond)
	assert.Equal(t, 5.0, s.Sandbox().Get("fixed"))
	assert.InDelta(t, 0.01, s.Sandbox().Get("last_dt"), 1e-6)
}

func TestEventSystemDeliversQueuedSignals(t *testing.T) {
	w := newWorld(t)
	e := w.CreateEmptyEntity("lamp")
	r, _ := newFrameRunner(w, 20*time.Millisecond, 5)

	var got []string
	event.Subscribe(w.Bus(), func(ev world.NameChanged) { got = append(got, ev.Name) })

	e.SetName("torch")
	assert.Empty(t, got)
	r.TickPhase(coresys.PhaseEvents, time.Millisecond)
	assert.Equal(t, []string{"torch"}, got)
}

func TestCleanupAndBroadphase(t *testing.T) {
	w := newWorld(t)
	r, _ := newFrameRunner(w, 20*time.Millisecond, 5)

	box := w.SpawnEntityFromValue(component.Value{
		"name": "box",
		"components": []any{
			component.Value{"classname": component.ClassTransform},
			component.Value{"classname": component.ClassMeshRenderer},
		},
	}, 0)
	require.NotNil(t, box)
	r.TickPhase(coresys.PhaseBroadphase, time.Millisecond)
	assert.Len(t, w.QueryEntities(geom.BoxAt(geom.V3(0, 0, 0), geom.V3(1, 1, 1))), 1)

	w.DestroyEntity(box)
	assert.Equal(t, 1, w.NumEntities())
	r.Tick(time.Millisecond)
	assert.Zero(t, w.NumEntities())
	assert.Zero(t, w.BroadphaseStats().Proxies)
}

type fakeStore struct {
	saves []string
	last  component.Value
	err   error
}

func (f *fakeStore) Save(_ context.Context, name string, v component.Value) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saves = append(f.saves, name)
	f.last = v
	return int64(len(f.saves)), nil
}

func TestPersistenceInterval(t *testing.T) {
	w := newWorld(t)
	w.CreateEmptyEntity("saved")
	store := &fakeStore{}
	p := NewPersistenceSystem(w, store, "demo", zap.NewNop(), 3)

	for i := 0; i < 7; i++ {
		p.Update(time.Millisecond)
	}
	assert.Equal(t, []string{"demo", "demo"}, store.saves)
	scenes := component.GetList(store.last, "scenes")
	require.NotEmpty(t, scenes)
	assert.Len(t, scenes[0], 1)

	require.NoError(t, p.SaveNow())
	assert.Len(t, store.saves, 3)

	store.err = errors.New("db down")
	assert.ErrorContains(t, p.SaveNow(), "db down")
}

func TestPersistenceDisabled(t *testing.T) {
	store := &fakeStore{}
	p := NewPersistenceSystem(newWorld(t), store, "demo", zap.NewNop(), 0)
	for i := 0; i < 10; i++ {
		p.Update(time.Millisecond)
	}
	assert.Empty(t, store.saves)
	assert.Equal(t, coresys.PhasePersist, p.Phase())
}
