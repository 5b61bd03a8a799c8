package scripting

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Callback names a script may define. Scripts are free to define any
// subset.
const (
	FnAwake                  = "awake"
	FnStart                  = "start"
	FnUpdate                 = "update"
	FnLateUpdate             = "late_update"
	FnFixedUpdate            = "fixed_update"
	FnFixedLateUpdate        = "fixed_late_update"
	FnOnEnable               = "on_enable"
	FnOnDisable              = "on_disable"
	FnOnApplicationResize    = "on_application_resize"
	FnOnApplicationPause     = "on_application_pause"
	FnOnApplicationTerminate = "on_application_terminate"
)

var callbacks = []string{
	FnAwake, FnStart, FnUpdate, FnLateUpdate, FnFixedUpdate, FnFixedLateUpdate,
	FnOnEnable, FnOnDisable,
	FnOnApplicationResize, FnOnApplicationPause, FnOnApplicationTerminate,
}

// Sandbox is one loaded script: its private environment table and the
// callbacks it defines.
type Sandbox struct {
	engine *Engine
	name   string
	chunk  string
	env    *lua.LTable
	funcs  map[string]*lua.LFunction
}

func (s *Sandbox) cacheFunctions() {
	s.funcs = make(map[string]*lua.LFunction, len(callbacks))
	for _, name := range callbacks {
		if fn, ok := s.env.RawGetString(name).(*lua.LFunction); ok {
			s.funcs[name] = fn
		}
	}
}

// Chunk returns the script path the sandbox was loaded from.
func (s *Sandbox) Chunk() string { return s.chunk }

// Has reports whether the script defines callback fn.
func (s *Sandbox) Has(fn string) bool {
	_, ok := s.funcs[fn]
	return ok
}

// Call invokes callback fn if the script defines it. Errors raised inside
// Lua are returned.
func (s *Sandbox) Call(fn string, args ...any) error {
	f, ok := s.funcs[fn]
	if !ok {
		return nil
	}
	vm := s.engine.vm
	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = ToLua(vm, a)
	}
	if err := vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    0,
		Protect: true,
	}, lArgs...); err != nil {
		return fmt.Errorf("%s:%s: %w", s.chunk, fn, err)
	}
	return nil
}

// Owner returns the owner table scripts use to reach their entity.
func (s *Sandbox) Owner() *lua.LTable {
	if t, ok := s.env.RawGetString("owner").(*lua.LTable); ok {
		return t
	}
	t := s.engine.vm.NewTable()
	s.env.RawSetString("owner", t)
	return t
}

// SetOwnerValue stores a Go value in the owner table.
func (s *Sandbox) SetOwnerValue(key string, v any) {
	s.Owner().RawSetString(key, ToLua(s.engine.vm, v))
}

// SetOwnerFunc exposes a Go function in the owner table.
func (s *Sandbox) SetOwnerFunc(key string, fn lua.LGFunction) {
	s.Owner().RawSetString(key, s.engine.vm.NewFunction(fn))
}

// Get reads a global of the sandbox.
func (s *Sandbox) Get(key string) any {
	return FromLua(s.env.RawGetString(key))
}

// PropertyNames lists the script's declared properties in the order given
// by its property_names table, or sorted when absent.
func (s *Sandbox) PropertyNames() []string {
	props, ok := s.env.RawGetString("properties").(*lua.LTable)
	if !ok {
		return nil
	}
	var names []string
	if order, ok := s.env.RawGetString("property_names").(*lua.LTable); ok {
		order.ForEach(func(_, v lua.LValue) {
			if _, ok := props.RawGetString(v.String()).(*lua.LTable); ok {
				names = append(names, v.String())
			}
		})
		return names
	}
	props.ForEach(func(k, v lua.LValue) {
		if _, ok := v.(*lua.LTable); ok {
			names = append(names, k.String())
		}
	})
	sort.Strings(names)
	return names
}

// Property returns the current value of a declared property.
func (s *Sandbox) Property(name string) (any, bool) {
	p := s.property(name)
	if p == nil {
		return nil, false
	}
	return FromLua(p.RawGetString("value")), true
}

// SetProperty assigns the value of a declared property. Unknown names are
// reported as false.
func (s *Sandbox) SetProperty(name string, v any) bool {
	p := s.property(name)
	if p == nil {
		return false
	}
	p.RawSetString("value", ToLua(s.engine.vm, v))
	return true
}

func (s *Sandbox) property(name string) *lua.LTable {
	props, ok := s.env.RawGetString("properties").(*lua.LTable)
	if !ok {
		return nil
	}
	p, _ := props.RawGetString(name).(*lua.LTable)
	return p
}

// Close drops the sandbox global. The table itself is collected by Lua.
func (s *Sandbox) Close() {
	if s.name != "" {
		s.engine.vm.SetGlobal(s.name, lua.LNil)
	}
	s.funcs = nil
}

// ToLua converts plain Go values (numbers, strings, bools, slices and
// string-keyed maps of those) into Lua values.
func ToLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case []any:
		t := L.NewTable()
		for _, e := range x {
			t.Append(ToLua(L, e))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, e := range x {
			t.RawSetString(k, ToLua(L, e))
		}
		return t
	case fmt.Stringer:
		return lua.LString(x.String())
	}
	return lua.LString(fmt.Sprint(v))
}

// FromLua converts a Lua value back into plain Go values. Tables with a
// non-empty array part become []any, other tables map[string]any.
func FromLua(v lua.LValue) any {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LTable:
		if n := x.Len(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, FromLua(x.RawGetInt(i)))
			}
			return out
		}
		out := map[string]any{}
		x.ForEach(func(k, e lua.LValue) {
			out[k.String()] = FromLua(e)
		})
		return out
	}
	return v.String()
}
