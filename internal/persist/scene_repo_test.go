package persist

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/component"
	"github.com/blueshift/engine/internal/config"
)

func snapshotDoc(root, child uuid.UUID) component.Value {
	scenes := make([]any, 16)
	for i := range scenes {
		scenes[i] = []any{}
	}
	scenes[0] = []any{
		component.Value{"classname": "Entity", "guid": root.String(), "name": "root", "tag": "Player"},
		component.Value{"classname": "Entity", "guid": child.String(), "name": "child", "parent": root.String()},
		component.Value{"name": "no guid"},
	}
	scenes[2] = []any{"junk"}
	return component.Value{"version": 1.0, "scenes": scenes}
}

func TestIndexSnapshot(t *testing.T) {
	root, child := uuid.New(), uuid.New()
	got := indexSnapshot(snapshotDoc(root, child))
	require.Len(t, got, 2)
	assert.Equal(t, SnapshotEntity{GUID: root, Name: "root", Tag: "Player"}, got[0])
	assert.Equal(t, root, got[1].Parent)
	assert.Equal(t, "child", got[1].Name)

	assert.Empty(t, indexSnapshot(component.Value{}))
}

func TestNullableUUID(t *testing.T) {
	assert.Nil(t, nullableUUID(uuid.Nil))
	id := uuid.New()
	assert.Equal(t, id, nullableUUID(id))
}

// testDB connects to $BLUESHIFT_TEST_DSN and migrates it, or skips.
func testDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("BLUESHIFT_TEST_DSN")
	if dsn == "" {
		t.Skip("BLUESHIFT_TEST_DSN not set")
	}
	cfg := config.Defaults().Database
	cfg.DSN = dsn

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := NewDB(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	version, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)
	return db
}

func TestSceneRepoRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewSceneRepo(db, 2)
	name := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = repo.Delete(ctx, name) })

	_, err := repo.Load(ctx, name)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	root, child := uuid.New(), uuid.New()
	var lastID int64
	for i := 0; i < 3; i++ {
		lastID, err = repo.Save(ctx, name, snapshotDoc(root, child))
		require.NoError(t, err)
	}

	v, err := repo.Load(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v["version"])
	assert.Len(t, component.GetList(v, "scenes"), 16)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	var found *SnapshotInfo
	for i := range list {
		if list[i].Name == name {
			found = &list[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, lastID, found.ID)
	assert.Equal(t, 2, found.EntityCount)

	entities, err := repo.Entities(ctx, lastID, "child")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, root, entities[0].Parent)

	var revisions int
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM scene_snapshots WHERE name = $1`, name).Scan(&revisions))
	assert.Equal(t, 2, revisions, "older revisions are pruned")

	require.NoError(t, repo.Delete(ctx, name))
	_, err = repo.Load(ctx, name)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
