package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// APIVersion is exposed to scripts as the API_VERSION global.
const APIVersion = 1

// Engine wraps a single gopher-lua VM shared by every script component of a
// game world. Single-goroutine access only (game loop).
type Engine struct {
	vm   *lua.LState
	log  *zap.Logger
	dir  string
	time *lua.LTable
}

// NewEngine creates a Lua VM and loads the shared library scripts found in
// scriptsDir/lib. A missing directory is not an error.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))

	e := &Engine{vm: vm, log: log, dir: scriptsDir}

	e.time = vm.NewTable()
	e.time.RawSetString("time", lua.LNumber(0))
	e.time.RawSetString("delta_time", lua.LNumber(0))
	e.time.RawSetString("time_scale", lua.LNumber(1))
	vm.SetGlobal("Time", e.time)

	vm.SetGlobal("log", vm.NewFunction(e.luaLog))

	if scriptsDir != "" {
		if err := e.loadDir(filepath.Join(scriptsDir, "lib")); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load lib scripts: %w", err)
		}
	}

	return e, nil
}

// loadDir runs all .lua files in a directory in the global environment.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// luaLog lets scripts write to the engine log: log("message").
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("script", zap.String("msg", L.CheckString(1)))
	return 0
}

// SetFrameTime publishes the world clock to the Time global.
func (e *Engine) SetFrameTime(now, delta, scale float64) {
	e.time.RawSetString("time", lua.LNumber(now))
	e.time.RawSetString("delta_time", lua.LNumber(delta))
	e.time.RawSetString("time_scale", lua.LNumber(scale))
}

// Dir returns the scripts root directory.
func (e *Engine) Dir() string { return e.dir }

// State exposes the VM for building script-facing tables and closures.
func (e *Engine) State() *lua.LState { return e.vm }

// Load reads a script file relative to the scripts directory and runs it
// in a new sandbox registered under name.
func (e *Engine) Load(name, path string) (*Sandbox, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(e.dir, path)
	}
	src, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", full, err)
	}
	return e.LoadString(name, path, string(src))
}

// LoadString compiles src and runs it in a new sandbox environment. Globals
// assigned by the script land in the sandbox; reads fall through to the
// shared globals. The sandbox is also reachable from Lua as the global
// name, so scripts can address each other by component GUID.
func (e *Engine) LoadString(name, chunk, src string) (*Sandbox, error) {
	fn, err := e.vm.Load(strings.NewReader(src), chunk)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", chunk, err)
	}

	env := e.vm.NewTable()
	mt := e.vm.NewTable()
	mt.RawSetString("__index", e.vm.G.Global)
	e.vm.SetMetatable(env, mt)
	env.RawSetString("owner", e.vm.NewTable())
	e.vm.SetFEnv(fn, env)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}); err != nil {
		return nil, fmt.Errorf("run %s: %w", chunk, err)
	}

	if name != "" {
		e.vm.SetGlobal(name, env)
	}

	s := &Sandbox{engine: e, name: name, chunk: chunk, env: env}
	s.cacheFunctions()
	e.log.Debug("loaded script sandbox", zap.String("chunk", chunk), zap.String("name", name))
	return s, nil
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
