package geom

import (
	"fmt"

	"github.com/chewxy/math32"
)

// AABB is an axis-aligned bounding box given by its minimum and maximum
// corners.
type AABB struct {
	Min Vec3
	Max Vec3
}

// Box returns the AABB spanning the two corners.
func Box(min, max Vec3) AABB { return AABB{Min: min, Max: max} }

// BoxAt returns the AABB centered at center with the given half extents.
func BoxAt(center, extents Vec3) AABB {
	return AABB{Min: center.Sub(extents), Max: center.Add(extents)}
}

// Cleared returns an inverted, infinitely empty box that absorbs anything
// added to it.
func Cleared() AABB {
	inf := math32.Inf(1)
	return AABB{Min: Vec3{inf, inf, inf}, Max: Vec3{-inf, -inf, -inf}}
}

// IsCleared reports whether nothing has been added since Cleared.
func (b AABB) IsCleared() bool {
	return b.Min.X > b.Max.X
}

// IsZero reports whether both corners are at the origin.
func (b AABB) IsZero() bool {
	return b.Min.IsZero() && b.Max.IsZero()
}

// AddPoint grows the box to include p.
func (b *AABB) AddPoint(p Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// AddAABB grows the box to include o.
func (b *AABB) AddAABB(o AABB) {
	b.Min = b.Min.Min(o.Min)
	b.Max = b.Max.Max(o.Max)
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Expand returns the box grown by margin on every side.
func (b AABB) Expand(margin float32) AABB {
	m := Vec3{margin, margin, margin}
	return AABB{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Translate returns the box moved by offset.
func (b AABB) Translate(offset Vec3) AABB {
	return AABB{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

// ContainsAABB reports whether o lies entirely inside b (touching faces count).
func (b AABB) ContainsAABB(o AABB) bool {
	return b.Min.X <= o.Min.X && b.Min.Y <= o.Min.Y && b.Min.Z <= o.Min.Z &&
		o.Max.X <= b.Max.X && o.Max.Y <= b.Max.Y && o.Max.Z <= b.Max.Z
}

// ContainsPoint reports whether p lies inside b.
func (b AABB) ContainsPoint(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Intersects reports whether b and o overlap (touching faces count).
func (b AABB) Intersects(o AABB) bool {
	if o.Max.X < b.Min.X || o.Min.X > b.Max.X ||
		o.Max.Y < b.Min.Y || o.Min.Y > b.Max.Y ||
		o.Max.Z < b.Min.Z || o.Min.Z > b.Max.Z {
		return false
	}
	return true
}

// Area returns the surface area, the cost metric used by the broad phase.
func (b AABB) Area() float32 {
	d := b.Max.Sub(b.Min)
	return 2 * (d.X*d.Y + d.Y*d.Z + d.Z*d.X)
}

func (b AABB) Volume() float32 {
	d := b.Max.Sub(b.Min)
	return d.X * d.Y * d.Z
}

func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extents returns the half size.
func (b AABB) Extents() Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Transform returns the tightest AABB around b after applying m.
func (b AABB) Transform(m Mat3x4) AABB {
	center := m.TransformPoint(b.Center())
	ext := b.Extents()
	var r Vec3
	for i := 0; i < 3; i++ {
		row := m.Linear[i].Abs()
		r.Set(i, row.Dot(ext))
	}
	return AABB{Min: center.Sub(r), Max: center.Add(r)}
}

// IntersectRay performs a slab test and returns the entry distance along
// the ray. A ray starting inside the box hits at 0.
func (b AABB) IntersectRay(ray Ray) (float32, bool) {
	tmin := float32(0)
	tmax := math32.Inf(1)
	for i := 0; i < 3; i++ {
		o, d := ray.Origin.At(i), ray.Dir.At(i)
		lo, hi := b.Min.At(i), b.Max.At(i)
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		inv := 1 / d
		t1, t2 := (lo-o)*inv, (hi-o)*inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

func (b AABB) String() string {
	return fmt.Sprintf("(%v)-(%v)", b.Min, b.Max)
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center Vec3
	Radius float32
}

// IntersectsAABB reports whether the sphere touches the box.
func (s Sphere) IntersectsAABB(b AABB) bool {
	closest := s.Center.Max(b.Min).Min(b.Max)
	return closest.Sub(s.Center).LengthSqr() <= s.Radius*s.Radius
}

// AABB returns the box enclosing the sphere.
func (s Sphere) AABB() AABB {
	return BoxAt(s.Center, Vec3{s.Radius, s.Radius, s.Radius})
}

// Ray is a half line. Dir does not need to be normalized; distances are
// measured in units of Dir.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// At returns the point at distance t.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}
