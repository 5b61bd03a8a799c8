package component

import (
	"github.com/blueshift/engine/internal/geom"
)

const ClassTransform = "ComTransform"

// Transform places an entity relative to its parent. Every entity has
// exactly one, at component index 0.
type Transform struct {
	Base
	origin geom.Vec3
	// angles holds roll, pitch and yaw in degrees as X, Y and Z.
	angles geom.Vec3
	scale  geom.Vec3
}

func NewTransform() *Transform {
	return &Transform{Base: NewBase(ClassTransform), scale: geom.V3(1, 1, 1)}
}

func (t *Transform) LocalOrigin() geom.Vec3 { return t.origin }
func (t *Transform) LocalAngles() geom.Vec3 { return t.angles }
func (t *Transform) LocalScale() geom.Vec3  { return t.scale }

func (t *Transform) SetLocalOrigin(o geom.Vec3) { t.origin = o }
func (t *Transform) SetLocalAngles(a geom.Vec3) { t.angles = a }
func (t *Transform) SetLocalScale(s geom.Vec3)  { t.scale = s }

// LocalAxis is the rotation relative to the parent.
func (t *Transform) LocalAxis() geom.Mat3 {
	return geom.FromAngles(t.angles.Z, t.angles.Y, t.angles.X)
}

// LocalMatrix maps local space to the parent's space.
func (t *Transform) LocalMatrix() geom.Mat3x4 {
	return geom.Compose(t.origin, t.LocalAxis(), t.scale)
}

func (t *Transform) parentMatrix() geom.Mat3x4 {
	if t.entity == nil {
		return geom.Identity3x4
	}
	if p := t.entity.ParentTransform(); p != nil {
		return p.WorldMatrix()
	}
	return geom.Identity3x4
}

// WorldMatrix maps local space to world space.
func (t *Transform) WorldMatrix() geom.Mat3x4 {
	return t.parentMatrix().Mul(t.LocalMatrix())
}

// Origin returns the world-space position.
func (t *Transform) Origin() geom.Vec3 {
	return t.WorldMatrix().Translation
}

// SetOrigin moves the entity to a world-space position.
func (t *Transform) SetOrigin(world geom.Vec3) {
	t.origin = t.parentMatrix().Inverse().TransformPoint(world)
}

// Translate moves by a world-space offset.
func (t *Transform) Translate(delta geom.Vec3) {
	t.SetOrigin(t.Origin().Add(delta))
}

// SetWorldMatrix sets the local origin, rotation and scale so that the
// resulting world matrix equals m. Shear introduced by non-uniform parent
// scale is dropped.
func (t *Transform) SetWorldMatrix(m geom.Mat3x4) {
	t.SetLocalMatrix(t.parentMatrix().Inverse().Mul(m))
}

// SetLocalMatrix decomposes m into origin, angles and scale.
func (t *Transform) SetLocalMatrix(m geom.Mat3x4) {
	t.origin = m.Translation
	t.scale = m.Scale()
	yaw, pitch, roll := m.Axis().ToAngles()
	t.angles = geom.V3(roll, pitch, yaw)
}

func (t *Transform) Serialize(forCopying bool) Value {
	v := t.Base.Serialize(forCopying)
	v["origin"] = Vec3Value(t.origin)
	v["angles"] = Vec3Value(t.angles)
	v["scale"] = Vec3Value(t.scale)
	return v
}

func (t *Transform) Deserialize(v Value) {
	t.Base.Deserialize(v)
	t.origin = GetVec3(v, "origin", geom.Vec3{})
	t.angles = GetVec3(v, "angles", geom.Vec3{})
	t.scale = GetVec3(v, "scale", geom.V3(1, 1, 1))
}
