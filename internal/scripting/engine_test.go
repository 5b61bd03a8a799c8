package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const counterScript = `
properties = {
	speed = { type = "float", value = 2.5 },
	label = { type = "string", value = "crate" },
}
property_names = { "speed", "label" }

count = 0

function start()
	count = count + 1
end

function fixed_update(dt)
	owner.moved = (owner.moved or 0) + dt * properties.speed.value
end

function on_disable()
	error("boom")
end
`

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestSandboxCallbacks(t *testing.T) {
	e := newEngine(t)
	s, err := e.LoadString("c1", "counter.lua", counterScript)
	require.NoError(t, err)

	assert.True(t, s.Has(FnStart))
	assert.False(t, s.Has(FnUpdate))
	require.NoError(t, s.Call(FnUpdate), "missing callbacks are no-ops")

	require.NoError(t, s.Call(FnStart))
	require.NoError(t, s.Call(FnStart))
	assert.Equal(t, float64(2), s.Get("count"))

	require.NoError(t, s.Call(FnFixedUpdate, 0.5))
	assert.Equal(t, 1.25, FromLua(s.Owner().RawGetString("moved")))

	err = s.Call(FnOnDisable)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSandboxIsolation(t *testing.T) {
	e := newEngine(t)
	a, err := e.LoadString("a", "a.lua", counterScript)
	require.NoError(t, err)
	b, err := e.LoadString("b", "b.lua", counterScript)
	require.NoError(t, err)

	require.NoError(t, a.Call(FnStart))
	assert.Equal(t, float64(1), a.Get("count"))
	assert.Equal(t, float64(0), b.Get("count"))
	assert.Equal(t, lua.LNil, e.State().GetGlobal("count"), "script globals stay in the sandbox")

	// Sandboxes are addressable by name until closed.
	assert.NotEqual(t, lua.LNil, e.State().GetGlobal("a"))
	a.Close()
	assert.Equal(t, lua.LNil, e.State().GetGlobal("a"))
}

func TestSandboxProperties(t *testing.T) {
	e := newEngine(t)
	s, err := e.LoadString("", "counter.lua", counterScript)
	require.NoError(t, err)

	assert.Equal(t, []string{"speed", "label"}, s.PropertyNames())
	v, ok := s.Property("speed")
	require.True(t, ok)
	assert.Equal(t, 2.5, v)

	assert.True(t, s.SetProperty("speed", 4))
	assert.False(t, s.SetProperty("missing", 1))
	require.NoError(t, s.Call(FnFixedUpdate, 1))
	assert.Equal(t, float64(4), FromLua(s.Owner().RawGetString("moved")))
}

func TestLoadErrors(t *testing.T) {
	e := newEngine(t)

	_, err := e.LoadString("", "bad.lua", "function (")
	assert.ErrorContains(t, err, "compile bad.lua")

	_, err = e.LoadString("", "raise.lua", `error("at load")`)
	assert.ErrorContains(t, err, "run raise.lua")

	_, err = e.Load("", "does/not/exist.lua")
	assert.ErrorContains(t, err, "read script")
}

func TestLibScriptsAndFrameTime(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "util.lua"), []byte(`function double(x) return x * 2 end`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mover.lua"), []byte(`
function update()
	result = double(Time.delta_time)
end
`), 0o644))

	e, err := NewEngine(dir, nil)
	require.NoError(t, err)
	defer e.Close()

	s, err := e.Load("m", "mover.lua")
	require.NoError(t, err)
	e.SetFrameTime(10, 0.25, 1)
	require.NoError(t, s.Call(FnUpdate))
	assert.Equal(t, 0.5, s.Get("result"))
	assert.Equal(t, "mover.lua", s.Chunk())
}

func TestValueConversion(t *testing.T) {
	e := newEngine(t)
	in := map[string]any{
		"list": []any{1.0, "two", true},
		"nested": map[string]any{
			"x": 3.0,
		},
	}
	out := FromLua(ToLua(e.State(), in))
	assert.Equal(t, in, out)
}
