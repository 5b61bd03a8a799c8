package component

import (
	"sort"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/geom"
	"github.com/blueshift/engine/internal/scripting"
)

const ClassScript = "ComScript"

// Script runs a Lua script in its own sandbox. The sandbox is registered in
// the VM under the component GUID so other scripts can reach it.
type Script struct {
	Base
	path       string
	source     string
	properties Value

	sandbox  *scripting.Sandbox
	started  bool
	hasError bool
}

func NewScript() *Script {
	return &Script{Base: NewBase(ClassScript), properties: Value{}}
}

// Path returns the script file, relative to the scripts directory.
func (s *Script) Path() string         { return s.path }
func (s *Script) SetPath(path string)  { s.path = path }
func (s *Script) SetSource(src string) { s.source = src }

func (s *Script) Sandbox() *scripting.Sandbox { return s.sandbox }
func (s *Script) IsStarted() bool             { return s.started }
func (s *Script) HasError() bool              { return s.hasError }

// Property returns the current value of a script property.
func (s *Script) Property(name string) (any, bool) {
	if s.sandbox != nil {
		return s.sandbox.Property(name)
	}
	v, ok := s.properties[name]
	return v, ok
}

// SetProperty stores a property value and pushes it into the running
// script.
func (s *Script) SetProperty(name string, v any) {
	s.properties[name] = v
	if s.sandbox != nil {
		s.sandbox.SetProperty(name, v)
	}
}

func (s *Script) Init() {
	s.Base.Init()
	s.load()
}

func (s *Script) load() {
	if s.entity == nil || s.sandbox != nil || (s.path == "" && s.source == "") {
		return
	}
	eng := s.entity.ScriptEngine()
	if eng == nil {
		return
	}

	var (
		sb  *scripting.Sandbox
		err error
	)
	if s.source != "" {
		chunk := s.path
		if chunk == "" {
			chunk = s.guid.String()
		}
		sb, err = eng.LoadString(s.guid.String(), chunk, s.source)
	} else {
		sb, err = eng.Load(s.guid.String(), s.path)
	}
	if err != nil {
		s.hasError = true
		s.logger().Warn("script load failed",
			zap.String("entity", s.entity.Name()), zap.String("script", s.path), zap.Error(err))
		return
	}
	s.sandbox = sb
	s.bindOwner()
}

// bindOwner fills the script's owner table with entity accessors.
func (s *Script) bindOwner() {
	sb := s.sandbox
	sb.SetOwnerValue("name", s.entity.Name())
	sb.SetOwnerValue("guid", s.entity.GUID().String())
	sb.SetOwnerValue("component_guid", s.guid.String())

	sb.SetOwnerFunc("get_origin", func(L *lua.LState) int {
		o := s.entity.Transform().Origin()
		L.Push(lua.LNumber(o.X))
		L.Push(lua.LNumber(o.Y))
		L.Push(lua.LNumber(o.Z))
		return 3
	})
	sb.SetOwnerFunc("set_origin", func(L *lua.LState) int {
		s.entity.Transform().SetOrigin(checkVec3(L, 1))
		return 0
	})
	sb.SetOwnerFunc("translate", func(L *lua.LState) int {
		s.entity.Transform().Translate(checkVec3(L, 1))
		return 0
	})
	sb.SetOwnerFunc("set_active", func(L *lua.LState) int {
		s.entity.SetActive(L.CheckBool(1))
		return 0
	})
	sb.SetOwnerFunc("is_active", func(L *lua.LState) int {
		L.Push(lua.LBool(s.entity.IsActiveInHierarchy()))
		return 1
	})
}

func checkVec3(L *lua.LState, at int) geom.Vec3 {
	return geom.V3(
		float32(L.CheckNumber(at)),
		float32(L.CheckNumber(at+1)),
		float32(L.CheckNumber(at+2)),
	)
}

func (s *Script) call(fn string, args ...any) {
	if s.sandbox == nil || s.hasError {
		return
	}
	if err := s.sandbox.Call(fn, args...); err != nil {
		s.hasError = true
		s.logger().Warn("script error",
			zap.String("entity", s.entity.Name()), zap.String("func", fn), zap.Error(err))
	}
}

// Awake applies the stored properties and runs awake, then on_enable when
// the component is already live.
func (s *Script) Awake() {
	if s.sandbox == nil {
		return
	}
	names := make([]string, 0, len(s.properties))
	for k := range s.properties {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		s.sandbox.SetProperty(k, s.properties[k])
	}

	s.call(scripting.FnAwake)
	if s.IsActiveInHierarchy() {
		s.call(scripting.FnOnEnable)
	}
}

func (s *Script) Start() {
	s.call(scripting.FnStart)
	s.started = true
}

func (s *Script) Update()     { s.call(scripting.FnUpdate) }
func (s *Script) LateUpdate() { s.call(scripting.FnLateUpdate) }

func (s *Script) FixedUpdate(timeStep float32) {
	s.call(scripting.FnFixedUpdate, timeStep)
}

func (s *Script) FixedLateUpdate(timeStep float32) {
	s.call(scripting.FnFixedLateUpdate, timeStep)
}

// OnActive starts a script enabled after the game began, then runs
// on_enable.
func (s *Script) OnActive() {
	if s.entity != nil && s.entity.IsGameStarted() && !s.started {
		s.Start()
	}
	s.call(scripting.FnOnEnable)
}

func (s *Script) OnInactive() { s.call(scripting.FnOnDisable) }

func (s *Script) OnApplicationResize(width, height int) {
	s.call(scripting.FnOnApplicationResize, width, height)
}

func (s *Script) OnApplicationPause(pause bool) {
	s.call(scripting.FnOnApplicationPause, pause)
}

func (s *Script) OnApplicationTerminate() {
	s.call(scripting.FnOnApplicationTerminate)
}

func (s *Script) Purge() {
	if s.sandbox != nil {
		s.sandbox.Close()
		s.sandbox = nil
	}
	s.started = false
	s.hasError = false
	s.Base.Purge()
}

func (s *Script) Serialize(forCopying bool) Value {
	v := s.Base.Serialize(forCopying)
	v["script"] = s.path
	if s.source != "" {
		v["source"] = s.source
	}
	props := CloneValue(s.properties)
	if s.sandbox != nil {
		for _, name := range s.sandbox.PropertyNames() {
			if pv, ok := s.sandbox.Property(name); ok {
				props[name] = pv
			}
		}
	}
	v["properties"] = props
	return v
}

func (s *Script) Deserialize(v Value) {
	s.Base.Deserialize(v)
	s.path = GetString(v, "script", "")
	s.source = GetString(v, "source", "")
	s.properties = CloneValue(GetValue(v, "properties"))
	if s.properties == nil {
		s.properties = Value{}
	}
}

// RemapGUIDs rewrites properties holding entity or component GUIDs.
func (s *Script) RemapGUIDs(remap map[uuid.UUID]uuid.UUID) {
	for k, raw := range s.properties {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(str)
		if err != nil {
			continue
		}
		if to, ok := remap[id]; ok {
			s.SetProperty(k, to.String())
		}
	}
}
