package component

import (
	"github.com/blueshift/engine/internal/geom"
)

const ClassMeshRenderer = "ComMeshRenderer"

// MeshRenderer draws a mesh. Without a renderer the mesh is represented by
// its local bounding box, which drives culling, picking and the broad phase.
type MeshRenderer struct {
	Base
	mesh          string
	center        geom.Vec3
	extents       geom.Vec3
	handle        int
	skipSelection bool
}

func NewMeshRenderer() *MeshRenderer {
	return &MeshRenderer{
		Base:    NewBase(ClassMeshRenderer),
		extents: geom.V3(0.5, 0.5, 0.5),
		handle:  -1,
	}
}

func (m *MeshRenderer) Mesh() string        { return m.mesh }
func (m *MeshRenderer) SetMesh(path string) { m.mesh = path }

// SetBounds sets the local box by center and half size.
func (m *MeshRenderer) SetBounds(center, extents geom.Vec3) {
	m.center = center
	m.extents = extents
}

// Handle returns the render entity handle, -1 until initialized.
func (m *MeshRenderer) Handle() int { return m.handle }

func (m *MeshRenderer) Init() {
	m.Base.Init()
	if m.entity != nil && m.handle < 0 {
		m.handle = m.entity.AllocRenderHandle()
	}
}

func (m *MeshRenderer) Purge() {
	if m.entity != nil && m.handle >= 0 {
		m.entity.FreeRenderHandle(m.handle)
	}
	m.handle = -1
	m.Base.Purge()
}

func (m *MeshRenderer) AABB() geom.AABB {
	return geom.BoxAt(m.center, m.extents)
}

func (m *MeshRenderer) HasRenderEntity(handle int) bool {
	return m.handle >= 0 && m.handle == handle
}

func (m *MeshRenderer) SkipSelection() bool        { return m.skipSelection }
func (m *MeshRenderer) SetSkipSelection(skip bool) { m.skipSelection = skip }

// IntersectRay tests the ray against the local box. The ray is moved into
// local space, which keeps distances in world units along ray.Dir.
func (m *MeshRenderer) IntersectRay(ray geom.Ray, backFaceCull bool) (float32, bool) {
	if m.entity == nil {
		return 0, false
	}
	inv := m.entity.Transform().WorldMatrix().Inverse()
	local := geom.Ray{Origin: inv.TransformPoint(ray.Origin), Dir: inv.TransformVector(ray.Dir)}
	box := m.AABB()
	if backFaceCull && box.ContainsPoint(local.Origin) {
		// Only back faces are visible from inside the box.
		return 0, false
	}
	return box.IntersectRay(local)
}

func (m *MeshRenderer) Serialize(forCopying bool) Value {
	v := m.Base.Serialize(forCopying)
	v["mesh"] = m.mesh
	v["center"] = Vec3Value(m.center)
	v["extents"] = Vec3Value(m.extents)
	return v
}

func (m *MeshRenderer) Deserialize(v Value) {
	m.Base.Deserialize(v)
	m.mesh = GetString(v, "mesh", "")
	m.center = GetVec3(v, "center", geom.Vec3{})
	m.extents = GetVec3(v, "extents", geom.V3(0.5, 0.5, 0.5))
}
