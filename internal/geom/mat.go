package geom

import "github.com/chewxy/math32"

// Mat3 is a row-major 3x3 matrix. As a rotation it maps local vectors to
// the parent space: M.MulVec(UnitX) is the local forward axis.
type Mat3 [3]Vec3

// Identity3 is the identity rotation.
var Identity3 = Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// Scale3 returns a diagonal scale matrix.
func Scale3(s Vec3) Mat3 {
	return Mat3{{s.X, 0, 0}, {0, s.Y, 0}, {0, 0, s.Z}}
}

// FromAngles builds a rotation from yaw (about Z), pitch (about Y) and roll
// (about X), all in degrees, applied roll first.
func FromAngles(yaw, pitch, roll float32) Mat3 {
	const deg2rad = math32.Pi / 180
	sy, cy := math32.Sin(yaw*deg2rad), math32.Cos(yaw*deg2rad)
	sp, cp := math32.Sin(pitch*deg2rad), math32.Cos(pitch*deg2rad)
	sr, cr := math32.Sin(roll*deg2rad), math32.Cos(roll*deg2rad)

	rz := Mat3{{cy, -sy, 0}, {sy, cy, 0}, {0, 0, 1}}
	ry := Mat3{{cp, 0, sp}, {0, 1, 0}, {-sp, 0, cp}}
	rx := Mat3{{1, 0, 0}, {0, cr, -sr}, {0, sr, cr}}
	return rz.Mul(ry).Mul(rx)
}

// ToAngles decomposes a pure rotation into the yaw, pitch and roll (degrees)
// that FromAngles would rebuild it from.
func (m Mat3) ToAngles() (yaw, pitch, roll float32) {
	const rad2deg = 180 / math32.Pi
	sp := -m[2].X
	if sp >= 1-1e-6 || sp <= -1+1e-6 {
		// Gimbal lock: fold roll into yaw.
		pitch = math32.Copysign(90, sp)
		yaw = math32.Atan2(-m[0].Y, m[1].Y) * rad2deg
		return yaw, pitch, 0
	}
	pitch = math32.Asin(sp) * rad2deg
	yaw = math32.Atan2(m[1].X, m[0].X) * rad2deg
	roll = math32.Atan2(m[2].Y, m[2].Z) * rad2deg
	return yaw, pitch, roll
}

// Col returns column i.
func (m Mat3) Col(i int) Vec3 {
	return Vec3{m[0].At(i), m[1].At(i), m[2].At(i)}
}

// Mul returns m * o.
func (m Mat3) Mul(o Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		r[i] = Vec3{m[i].Dot(o.Col(0)), m[i].Dot(o.Col(1)), m[i].Dot(o.Col(2))}
	}
	return r
}

// MulVec returns m * v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{m[0].Dot(v), m[1].Dot(v), m[2].Dot(v)}
}

func (m Mat3) Transpose() Mat3 {
	return Mat3{m.Col(0), m.Col(1), m.Col(2)}
}

func (m Mat3) Determinant() float32 {
	return m[0].Dot(m[1].Cross(m[2]))
}

// Inverse returns the inverse of m. Singular matrices return the identity
// and false.
func (m Mat3) Inverse() (Mat3, bool) {
	det := m.Determinant()
	if math32.Abs(det) < 1e-12 {
		return Identity3, false
	}
	inv := 1 / det
	c0 := m[1].Cross(m[2]).Mul(inv)
	c1 := m[2].Cross(m[0]).Mul(inv)
	c2 := m[0].Cross(m[1]).Mul(inv)
	// The cross products are the columns of the inverse.
	return Mat3{c0, c1, c2}.Transpose(), true
}

// ApproxEqual compares element-wise within eps.
func (m Mat3) ApproxEqual(o Mat3, eps float32) bool {
	return m[0].ApproxEqual(o[0], eps) && m[1].ApproxEqual(o[1], eps) && m[2].ApproxEqual(o[2], eps)
}

// Mat3x4 is an affine transform: a linear part (rotation and scale) plus a
// translation.
type Mat3x4 struct {
	Linear      Mat3
	Translation Vec3
}

// Identity3x4 is the identity transform.
var Identity3x4 = Mat3x4{Linear: Identity3}

// Compose builds the transform that scales, then rotates by axis, then
// translates by origin.
func Compose(origin Vec3, axis Mat3, scale Vec3) Mat3x4 {
	return Mat3x4{Linear: axis.Mul(Scale3(scale)), Translation: origin}
}

// Mul returns the transform applying o first, then m.
func (m Mat3x4) Mul(o Mat3x4) Mat3x4 {
	return Mat3x4{
		Linear:      m.Linear.Mul(o.Linear),
		Translation: m.Linear.MulVec(o.Translation).Add(m.Translation),
	}
}

// TransformPoint applies the full transform to p.
func (m Mat3x4) TransformPoint(p Vec3) Vec3 {
	return m.Linear.MulVec(p).Add(m.Translation)
}

// TransformVector applies only the linear part to v.
func (m Mat3x4) TransformVector(v Vec3) Vec3 {
	return m.Linear.MulVec(v)
}

// Inverse returns the inverse affine transform.
func (m Mat3x4) Inverse() Mat3x4 {
	inv, _ := m.Linear.Inverse()
	return Mat3x4{Linear: inv, Translation: inv.MulVec(m.Translation).Neg()}
}

// Scale returns the length of each linear column.
func (m Mat3x4) Scale() Vec3 {
	return Vec3{m.Linear.Col(0).Length(), m.Linear.Col(1).Length(), m.Linear.Col(2).Length()}
}

// Axis returns the rotation part with scale removed.
func (m Mat3x4) Axis() Mat3 {
	s := m.Scale()
	inv := Vec3{1, 1, 1}
	if s.X != 0 {
		inv.X = 1 / s.X
	}
	if s.Y != 0 {
		inv.Y = 1 / s.Y
	}
	if s.Z != 0 {
		inv.Z = 1 / s.Z
	}
	return m.Linear.Mul(Scale3(inv))
}

// ApproxEqual compares both parts within eps.
func (m Mat3x4) ApproxEqual(o Mat3x4, eps float32) bool {
	return m.Linear.ApproxEqual(o.Linear, eps) && m.Translation.ApproxEqual(o.Translation, eps)
}
