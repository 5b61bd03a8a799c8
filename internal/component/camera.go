package component

const ClassCamera = "ComCamera"

// Camera renders the world from its entity. Cameras have no bounds.
type Camera struct {
	Base
	order int
	fov   float32
	near  float32
	far   float32
}

func NewCamera() *Camera {
	return &Camera{Base: NewBase(ClassCamera), fov: 60, near: 0.1, far: 1000}
}

func (c *Camera) Order() int         { return c.order }
func (c *Camera) SetOrder(order int) { c.order = order }
func (c *Camera) FOV() float32       { return c.fov }
func (c *Camera) Near() float32      { return c.near }
func (c *Camera) Far() float32       { return c.far }

func (c *Camera) Serialize(forCopying bool) Value {
	v := c.Base.Serialize(forCopying)
	v["order"] = float64(c.order)
	v["fov"] = float64(c.fov)
	v["near"] = float64(c.near)
	v["far"] = float64(c.far)
	return v
}

func (c *Camera) Deserialize(v Value) {
	c.Base.Deserialize(v)
	c.order = GetInt(v, "order", 0)
	c.fov = GetFloat(v, "fov", 60)
	c.near = GetFloat(v, "near", 0.1)
	c.far = GetFloat(v, "far", 1000)
}
