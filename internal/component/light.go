package component

import (
	"github.com/blueshift/engine/internal/geom"
)

const ClassLight = "ComLight"

type LightType int

const (
	DirectionalLight LightType = iota
	PointLight
	SpotLight
)

var lightTypeNames = []string{"directional", "point", "spot"}

func (t LightType) String() string {
	if t < 0 || int(t) >= len(lightTypeNames) {
		return "unknown"
	}
	return lightTypeNames[t]
}

func parseLightType(s string) LightType {
	for i, n := range lightTypeNames {
		if n == s {
			return LightType(i)
		}
	}
	return PointLight
}

// Light is a dynamic light. Point and spot lights are bounded by their
// range; directional lights affect the whole world and report no bounds.
type Light struct {
	Base
	kind       LightType
	lightRange float32
	intensity  float32
	color      geom.Vec3
	handle     int
}

func NewLight() *Light {
	return &Light{
		Base:       NewBase(ClassLight),
		kind:       PointLight,
		lightRange: 4,
		intensity:  1,
		color:      geom.V3(1, 1, 1),
		handle:     -1,
	}
}

func (l *Light) Type() LightType     { return l.kind }
func (l *Light) SetType(t LightType) { l.kind = t }
func (l *Light) Range() float32      { return l.lightRange }
func (l *Light) SetRange(r float32)  { l.lightRange = r }
func (l *Light) Intensity() float32  { return l.intensity }
func (l *Light) Color() geom.Vec3    { return l.color }
func (l *Light) Handle() int         { return l.handle }

func (l *Light) Init() {
	l.Base.Init()
	if l.entity != nil && l.handle < 0 {
		l.handle = l.entity.AllocRenderHandle()
	}
}

func (l *Light) Purge() {
	if l.entity != nil && l.handle >= 0 {
		l.entity.FreeRenderHandle(l.handle)
	}
	l.handle = -1
	l.Base.Purge()
}

func (l *Light) AABB() geom.AABB {
	if l.kind == DirectionalLight {
		return geom.Cleared()
	}
	return geom.Sphere{Radius: l.lightRange}.AABB()
}

func (l *Light) HasRenderEntity(handle int) bool {
	return l.handle >= 0 && l.handle == handle
}

func (l *Light) Serialize(forCopying bool) Value {
	v := l.Base.Serialize(forCopying)
	v["type"] = l.kind.String()
	v["range"] = float64(l.lightRange)
	v["intensity"] = float64(l.intensity)
	v["color"] = Vec3Value(l.color)
	return v
}

func (l *Light) Deserialize(v Value) {
	l.Base.Deserialize(v)
	l.kind = parseLightType(GetString(v, "type", "point"))
	l.lightRange = GetFloat(v, "range", 4)
	l.intensity = GetFloat(v, "intensity", 1)
	l.color = GetVec3(v, "color", geom.V3(1, 1, 1))
}
