package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blueshift.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[world]
tick_rate = "33ms"
find_child_recursive = false
proxy_expansion = 0.5

[database]
enabled = true
snapshot_interval = "1m"

[map]
path = "maps/other.yaml"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 33*time.Millisecond, cfg.World.TickRate)
	assert.False(t, cfg.World.FindChildRecursive)
	assert.True(t, cfg.World.KeepWorldTransformOnReparent, "untouched keys keep defaults")
	assert.Equal(t, float32(0.5), cfg.World.ProxyExpansion)
	assert.Equal(t, 20*time.Millisecond, cfg.World.FixedTimeStep)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, time.Minute, cfg.Database.SnapshotInterval)
	assert.Equal(t, 5, cfg.Database.SnapshotKeep)
	assert.Equal(t, "maps/other.yaml", cfg.Map.Path)
	assert.NotZero(t, cfg.StartTime)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "[world]\ntree_capacity = 1\n"))
	assert.ErrorContains(t, err, "tree_capacity")

	_, err = Load(writeConfig(t, "[map]\nlist = \"maps/map_list.yaml\"\n"))
	assert.ErrorContains(t, err, "map.start")

	_, err = Load(writeConfig(t, "[world\n"))
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read config")
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, "config/blueshift.toml", Path("config/blueshift.toml"))
	t.Setenv(EnvPath, "/etc/blueshift.toml")
	assert.Equal(t, "/etc/blueshift.toml", Path("config/blueshift.toml"))
}
