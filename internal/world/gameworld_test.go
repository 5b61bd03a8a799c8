package world

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueshift/engine/internal/component"
	"github.com/blueshift/engine/internal/core/event"
	"github.com/blueshift/engine/internal/geom"
)

func TestRegisterPicksLowestFreeNumber(t *testing.T) {
	w := newTestWorld(t)
	var registered int
	event.Subscribe(w.Bus(), func(EntityRegistered) { registered++ })

	a := w.CreateEmptyEntity("a")
	b := w.CreateEmptyEntity("b")
	c := w.CreateEmptyEntity("c")
	assert.Equal(t, []int{0, 1, 2}, []int{a.EntityNum(), b.EntityNum(), c.EntityNum()})
	assert.Equal(t, 3, registered)

	w.DestroyEntityImmediate(b)
	assert.True(t, b.IsDestroyed())
	assert.Nil(t, w.Entity(1))
	assert.Nil(t, w.FindEntityByGUID(b.GUID()))

	d := w.CreateEmptyEntity("d")
	assert.Equal(t, 1, d.EntityNum())
	assert.Same(t, d, w.Entity(1))
	assert.Equal(t, 3, w.NumEntities())
}

func TestSpawnNumberClaim(t *testing.T) {
	w := newTestWorld(t)
	v := func(name string) component.Value {
		return component.Value{
			"name":         name,
			"spawn_entnum": 7.0,
			"components":   []any{component.Value{"classname": component.ClassTransform}},
		}
	}

	e := w.SpawnEntityFromValue(v("seven"), 0)
	assert.Equal(t, 7, e.EntityNum())
	assert.Same(t, e, w.Entity(7))

	other := w.SpawnEntityFromValue(v("taken"), 0)
	assert.Equal(t, 0, other.EntityNum(), "a taken number falls back to the lowest free one")

	assert.Nil(t, w.SpawnEntityFromValue(component.Value{"classname": "Light"}, 0))
}

func TestUnregisterMovesChildrenUp(t *testing.T) {
	w := newTestWorld(t)
	p := spawnChild(w, "P", nil)
	m := spawnChild(w, "M", p)
	c := spawnChild(w, "C", m)

	w.UnregisterEntity(m)
	assert.False(t, m.IsRegistered())
	assert.Same(t, p, c.Parent())
	assert.Nil(t, m.Parent())

	w.UnregisterEntity(m)
	assert.Equal(t, 2, w.NumEntities())
}

func TestFindEntity(t *testing.T) {
	w := newTestWorld(t)
	level := spawnChild(w, "level", nil)
	door := spawnChild(w, "door", level)
	handle := spawnChild(w, "handle", door)
	door.SetTag("Interactive")
	handle.SetTag("Interactive")

	assert.Same(t, handle, w.FindEntity("/level/door/handle"))
	assert.Same(t, handle, w.FindEntity("door/handle"))
	assert.Same(t, level, w.FindEntity("/level"))
	assert.Nil(t, w.FindEntity("/door"))
	assert.Nil(t, w.FindEntity("/level/handle"))

	assert.Same(t, door, w.FindEntityByName("door"))
	assert.Same(t, door, w.FindEntityByTag("Interactive"))
	assert.Equal(t, []string{"door", "handle"}, names(w.FindEntitiesByTag("Interactive")))
	assert.Nil(t, w.FindEntityByTag(""))

	door.SetName("gate")
	assert.Nil(t, w.FindEntityByName("door"))
	assert.Same(t, door, w.FindEntity("/level/gate"))
}

func TestFindEntityByNameNormalizes(t *testing.T) {
	w := newTestWorld(t)
	e := w.CreateEmptyEntity("Café")
	assert.Same(t, e, w.FindEntityByName("Cafe\u0301"))
}

func TestDestroyIsDeferred(t *testing.T) {
	w := newTestWorld(t)
	p := spawnChild(w, "P", nil)
	c := spawnChild(w, "C", p)
	keep := w.CreateEmptyEntity("keep")

	w.DestroyEntity(p)
	w.DestroyEntity(p)
	assert.True(t, p.IsRegistered())
	assert.Equal(t, 4, w.PendingDestroy())

	w.FlushDestroyed()
	assert.True(t, p.IsDestroyed())
	assert.True(t, c.IsDestroyed())
	assert.False(t, keep.IsDestroyed())
	assert.Equal(t, 1, w.NumEntities())
	assert.Zero(t, w.PendingDestroy())
}

func TestCloneRemapsReferences(t *testing.T) {
	w := newTestWorld(t)
	p := w.CreateEmptyEntity("P")
	p.SetPrefab(true)
	c := spawnChild(w, "C", p)
	sc, err := p.AddNewComponent(component.ClassScript)
	require.NoError(t, err)
	sc.(*component.Script).SetProperty("target", c.GUID().String())
	sc.(*component.Script).SetProperty("outside", p.GUID().String()+"x")

	clone := w.CloneEntity(p)
	require.NotNil(t, clone)
	assert.NotEqual(t, p.GUID(), clone.GUID())
	assert.False(t, clone.IsRegistered())
	assert.True(t, clone.IsInitialized())
	assert.Equal(t, p.GUID(), clone.PrefabSource())
	assert.False(t, clone.IsPrefab())

	kids := clone.Children()
	require.Len(t, kids, 1)
	assert.NotEqual(t, c.GUID(), kids[0].GUID())
	assert.Same(t, clone, kids[0].Parent())
	assert.Len(t, p.Children(), 1, "original keeps its child")

	s, ok := GetComponent[*component.Script](clone)
	require.True(t, ok)
	target, _ := s.Property("target")
	assert.Equal(t, kids[0].GUID().String(), target)
	outside, _ := s.Property("outside")
	assert.Equal(t, p.GUID().String()+"x", outside)
	assert.NotEqual(t, sc.GUID(), s.GUID())
}

func TestInstantiate(t *testing.T) {
	w := newTestWorld(t)
	p := w.CreateEmptyEntity("P")
	spawnChild(w, "C", p)

	clone := w.InstantiateEntityWithTransform(p, geom.V3(5, 0, 0), geom.V3(0, 0, 90))
	assert.True(t, clone.IsRegistered())
	assert.True(t, clone.Child(0).IsRegistered())
	assert.Equal(t, 4, w.NumEntities())
	assert.True(t, clone.Transform().Origin().ApproxEqual(geom.V3(5, 0, 0), 1e-5))
	assert.InDelta(t, 90, clone.Transform().LocalAngles().Z, 1e-3)

	w.StartGame()
	late := w.InstantiateEntity(p)
	assert.True(t, late.IsAwaked())
	assert.True(t, late.IsStarted())
}

func TestStartGame(t *testing.T) {
	w := newTestWorld(t)
	_, s := spawnScripted(t, w, "early")
	assert.Equal(t, 0.0, s.Sandbox().Get("awakes"))

	w.StartGame()
	w.StartGame()
	assert.True(t, w.IsGameStarted())
	assert.Equal(t, 1.0, s.Sandbox().Get("awakes"))
	assert.Equal(t, 1.0, s.Sandbox().Get("starts"))

	_, late := spawnScripted(t, w, "late")
	assert.Equal(t, 1.0, late.Sandbox().Get("awakes"))
	assert.Equal(t, 1.0, late.Sandbox().Get("starts"))

	w.StopGame()
	w.Update(time.Second)
	assert.Equal(t, 0.0, s.Sandbox().Get("updates"))
}

func TestUpdateAdvancesScaledTime(t *testing.T) {
	w := newTestWorld(t)
	_, s := spawnScripted(t, w, "ticker")

	w.Update(100 * time.Millisecond)
	assert.Equal(t, 0.0, s.Sandbox().Get("updates"), "no updates before the game starts")

	w.StartGame()
	w.Update(100 * time.Millisecond)
	assert.Equal(t, 1.0, s.Sandbox().Get("updates"))
	assert.InDelta(t, 0.2, w.Time(), 1e-9)

	w.SetTimeScale(0.5)
	w.Update(100 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, w.DeltaTime())

	w.SetTimeScale(-1)
	assert.Zero(t, w.TimeScale())

	w.Reset()
	assert.Zero(t, w.Time())
	assert.False(t, w.IsGameStarted())
}

func TestBroadphaseQueries(t *testing.T) {
	w := newTestWorld(t)
	a := w.CreateEmptyEntity("a")
	b := w.CreateEmptyEntity("b")
	c := w.CreateEmptyEntity("c")
	w.CreateEmptyEntity("empty")
	for i, e := range []*Entity{a, b, c} {
		addMesh(t, e)
		e.Transform().SetLocalOrigin(geom.V3(float32(i*10), 0, 0))
	}
	c.SetLayer(3)

	assert.Equal(t, 3, w.SyncBroadphase())
	require.NoError(t, w.Broadphase().Validate())
	w.RebuildBroadphase()
	require.NoError(t, w.Broadphase().Validate())

	got := w.QueryEntities(geom.BoxAt(geom.V3(10, 0, 0), geom.V3(1, 1, 1)))
	assert.Equal(t, []*Entity{b}, got)

	ray := geom.Ray{Origin: geom.V3(-5, 0, 0), Dir: geom.V3(1, 0, 0)}
	hit, dist := w.RayIntersection(ray, 1)
	assert.Same(t, a, hit)
	assert.InDelta(t, 4.5, dist, 1e-4)

	hit, dist = w.RayIntersection(ray, 1, a)
	assert.Same(t, b, hit)
	assert.InDelta(t, 14.5, dist, 1e-4)

	hit, _ = w.RayIntersection(ray, 1, a, b)
	assert.Nil(t, hit, "c sits on a masked layer")
	hit, dist = w.RayIntersection(ray, 1<<3)
	assert.Same(t, c, hit)
	assert.InDelta(t, 24.5, dist, 1e-4)

	a.Transform().SetLocalOrigin(geom.V3(100, 0, 0))
	b.SetActive(false)
	assert.Equal(t, 2, w.SyncBroadphase())
	assert.Empty(t, w.QueryEntities(geom.BoxAt(geom.V3(0, 0, 0), geom.V3(1, 1, 1))))
	assert.Equal(t, []*Entity{a}, w.QueryEntities(geom.BoxAt(geom.V3(100, 0, 0), geom.V3(1, 1, 1))))
	require.NoError(t, w.Broadphase().Validate())

	w.DestroyEntityImmediate(a)
	stats := w.BroadphaseStats()
	assert.Equal(t, 1, stats.Proxies)
	assert.Equal(t, 1, stats.Nodes)
	assert.Equal(t, []int{1}, stats.NodesByDepth)
	assert.Positive(t, stats.Bytes)
}

func TestBroadphaseSkipsEntitiesWithoutBounds(t *testing.T) {
	w := newTestWorld(t)
	empty := w.CreateEmptyEntity("empty")
	empty.Transform().SetLocalOrigin(geom.V3(5, 0, 0))
	cam := w.CreateEmptyEntity("camera")
	_, err := cam.AddNewComponent(component.ClassCamera)
	require.NoError(t, err)
	cam.Transform().SetLocalOrigin(geom.V3(5, 0, 0))

	assert.Equal(t, 0, w.SyncBroadphase())
	assert.Empty(t, w.QueryEntities(geom.BoxAt(geom.V3(5, 0, 0), geom.V3(1, 1, 1))))

	addMesh(t, empty)
	assert.Equal(t, 1, w.SyncBroadphase())
	assert.Equal(t, []*Entity{empty}, w.QueryEntities(geom.BoxAt(geom.V3(5, 0, 0), geom.V3(1, 1, 1))))
}

func TestDestroyTearsDownSubtree(t *testing.T) {
	w := newTestWorld(t)
	root := spawnChild(w, "root", nil)
	mid := spawnChild(w, "mid", root)
	leaf := spawnChild(w, "leaf", mid)
	subtree := []*Entity{root, mid, leaf}

	var comps []component.Component
	for _, e := range subtree {
		addMesh(t, e)
		comps = append(comps, e.Components()...)
	}
	require.Equal(t, 3, w.SyncBroadphase())

	w.DestroyEntityImmediate(root)
	for _, e := range subtree {
		assert.True(t, e.IsDestroyed(), e.Name())
		assert.Nil(t, w.FindEntityByGUID(e.GUID()), e.Name())
	}
	for _, c := range comps {
		assert.Nil(t, c.Entity(), c.ClassName())
	}
	assert.Equal(t, 0, w.NumEntities())
	assert.Equal(t, 0, w.Broadphase().ProxyCount())
	require.NoError(t, w.Broadphase().Validate())
}

func TestFindEntityByRenderEntity(t *testing.T) {
	w := newTestWorld(t)
	e := w.CreateEmptyEntity("e")
	mesh := addMesh(t, e)
	assert.Same(t, e, w.FindEntityByRenderEntity(mesh.Handle()))
	assert.Nil(t, w.FindEntityByRenderEntity(mesh.Handle()+100))
}

func TestCamerasSortedByOrder(t *testing.T) {
	w := newTestWorld(t)
	var cams []*component.Camera
	for _, order := range []int{2, 0, 1} {
		e := w.CreateEmptyEntity("cam")
		c, err := e.AddNewComponent(component.ClassCamera)
		require.NoError(t, err)
		c.(*component.Camera).SetOrder(order)
		cams = append(cams, c.(*component.Camera))
	}
	cams[0].Entity().SetActive(false)

	got := w.Cameras()
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Order())
	assert.Equal(t, 1, got[1].Order())
}

func TestDontDestroyOnLoad(t *testing.T) {
	w := newTestWorld(t)
	p := spawnChild(w, "player", nil)
	weapon := spawnChild(w, "weapon", p)
	level := w.CreateEmptyEntity("level")

	w.DontDestroyOnLoad(weapon)
	assert.Equal(t, DontDestroyOnLoadSceneNum, p.SceneIndex())
	assert.Equal(t, DontDestroyOnLoadSceneNum, weapon.SceneIndex())
	assert.Same(t, p, weapon.Parent())

	w.ClearEntities(false)
	assert.True(t, level.IsDestroyed())
	assert.False(t, p.IsDestroyed())
	assert.Equal(t, 2, w.NumEntities())

	w.ClearEntities(true)
	assert.True(t, weapon.IsDestroyed())
	assert.Zero(t, w.NumEntities())
}

func TestSnapshotRestore(t *testing.T) {
	w := newTestWorld(t)
	p := spawnChild(w, "P", nil)
	c := spawnChild(w, "C", p)
	c.Transform().SetLocalOrigin(geom.V3(0, 3, 0))
	pGUID, cGUID, cNum := p.GUID(), c.GUID(), c.EntityNum()

	assert.Error(t, w.RestoreSnapshot())
	w.SaveSnapshot()
	assert.True(t, w.HasSnapshot())

	c.SetName("renamed")
	w.DestroyEntityImmediate(p)
	w.CreateEmptyEntity("extra")

	require.NoError(t, w.RestoreSnapshot())
	assert.False(t, w.HasSnapshot())
	assert.Equal(t, 2, w.NumEntities())

	rp := w.FindEntityByGUID(pGUID)
	rc := w.FindEntityByGUID(cGUID)
	require.NotNil(t, rp)
	require.NotNil(t, rc)
	assert.Same(t, rp, rc.Parent())
	assert.Equal(t, "C", rc.Name())
	assert.Equal(t, cNum, rc.EntityNum())
	assert.InDelta(t, 3, rc.Transform().Origin().Y, 1e-5)
}

func TestSaveAndLoadMap(t *testing.T) {
	for _, ext := range []string{".yaml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "level"+ext)

			w := newTestWorld(t)
			room := spawnChild(w, "room", nil)
			lamp := spawnChild(w, "lamp", room)
			_, err := lamp.AddNewComponent(component.ClassLight)
			require.NoError(t, err)
			addMesh(t, room)
			require.NoError(t, w.SaveMap(path))

			w2 := newTestWorld(t)
			var loaded []MapLoaded
			event.Subscribe(w2.Bus(), func(ev MapLoaded) { loaded = append(loaded, ev) })
			require.NoError(t, w2.LoadMap(path, Single))

			assert.Equal(t, 2, w2.NumEntities())
			got := w2.FindEntity("/room/lamp")
			require.NotNil(t, got)
			assert.Equal(t, lamp.GUID(), got.GUID())
			assert.Equal(t, lamp.EntityNum(), got.EntityNum())
			assert.True(t, HasComponent[*component.Light](got))
			assert.False(t, got.IsAwaked(), "map entities wait for StartGame")
			require.Len(t, loaded, 1)
			assert.Equal(t, 0, loaded[0].SceneIndex)
			assert.Equal(t, path, w2.MapPath(0))
		})
	}
}

func TestLoadMapAdditive(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.yaml")
	second := filepath.Join(dir, "second.yaml")

	src := newTestWorld(t)
	src.CreateEmptyEntity("one")
	require.NoError(t, src.SaveMap(first))
	src.NewMap()
	src.CreateEmptyEntity("two")
	require.NoError(t, src.SaveMap(second))

	w := newTestWorld(t)
	require.NoError(t, w.LoadMap(first, Single))
	require.NoError(t, w.LoadMap(second, Additive))
	assert.Equal(t, 2, w.NumEntities())
	assert.Equal(t, []string{"two"}, names(w.SceneRoots(1)))

	require.NoError(t, w.LoadMap(second, Single))
	assert.Equal(t, 1, w.NumEntities())
	assert.Equal(t, []string{"two"}, names(w.SceneRoots(0)))

	assert.Error(t, w.LoadMap(filepath.Join(dir, "missing.yaml"), Single))
}
