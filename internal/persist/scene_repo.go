package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/component"
)

// ErrNoSnapshot is returned when no snapshot exists under a name.
var ErrNoSnapshot = errors.New("snapshot not found")

// SnapshotInfo describes one stored snapshot revision.
type SnapshotInfo struct {
	ID          int64
	Name        string
	Version     int
	EntityCount int
	CreatedAt   time.Time
}

// SnapshotEntity is one row of the per-snapshot entity index.
type SnapshotEntity struct {
	GUID       uuid.UUID
	SceneIndex int
	Name       string
	Tag        string
	Parent     uuid.UUID // uuid.Nil for scene roots
}

// SceneRepo stores world snapshots as JSONB documents, keeping a few
// revisions per name.
type SceneRepo struct {
	db   *DB
	keep int
}

// NewSceneRepo keeps the newest keep revisions of every snapshot name; zero
// or less keeps everything.
func NewSceneRepo(db *DB, keep int) *SceneRepo {
	return &SceneRepo{db: db, keep: keep}
}

// indexSnapshot flattens the entity values of a snapshot document, scene by
// scene.
func indexSnapshot(v component.Value) []SnapshotEntity {
	var out []SnapshotEntity
	for scene, raw := range component.GetList(v, "scenes") {
		list, ok := raw.([]any)
		if !ok {
			continue
		}
		for _, re := range list {
			ev, ok := re.(map[string]any)
			if !ok {
				continue
			}
			id := component.GetGUID(ev, "guid")
			if id == uuid.Nil {
				continue
			}
			out = append(out, SnapshotEntity{
				GUID:       id,
				SceneIndex: scene,
				Name:       component.GetString(ev, "name", ""),
				Tag:        component.GetString(ev, "tag", ""),
				Parent:     component.GetGUID(ev, "parent"),
			})
		}
	}
	return out
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

// Save stores v as the newest revision of name, together with its entity
// index, in one transaction. Older revisions beyond the keep limit are
// pruned.
func (r *SceneRepo) Save(ctx context.Context, name string, v component.Value) (int64, error) {
	entities := indexSnapshot(v)

	var id int64
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO scene_snapshots (name, version, entity_count, data)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			name, component.GetInt(v, "version", 1), len(entities), map[string]any(v),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("snapshot insert: %w", err)
		}

		batch := &pgx.Batch{}
		for _, e := range entities {
			batch.Queue(
				`INSERT INTO snapshot_entities (snapshot_id, guid, scene_index, name, tag, parent)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				id, e.GUID, e.SceneIndex, e.Name, e.Tag, nullableUUID(e.Parent),
			)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("snapshot entities: %w", err)
			}
		}

		if r.keep > 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM scene_snapshots WHERE name = $1 AND id NOT IN (
				   SELECT id FROM scene_snapshots WHERE name = $1 ORDER BY id DESC LIMIT $2)`,
				name, r.keep,
			); err != nil {
				return fmt.Errorf("snapshot prune: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("save snapshot %q: %w", name, err)
	}
	r.db.log.Debug("snapshot saved",
		zap.String("name", name), zap.Int64("id", id), zap.Int("entities", len(entities)))
	return id, nil
}

// Load returns the newest revision of name.
func (r *SceneRepo) Load(ctx context.Context, name string) (component.Value, error) {
	var doc map[string]any
	err := r.db.Pool.QueryRow(ctx,
		`SELECT data FROM scene_snapshots WHERE name = $1 ORDER BY id DESC LIMIT 1`, name,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load snapshot %q: %w", name, ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	v, _ := component.Normalize(doc).(map[string]any)
	return v, nil
}

// List returns the newest revision of every snapshot name, newest first.
func (r *SceneRepo) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT DISTINCT ON (name) id, name, version, entity_count, created_at
		 FROM scene_snapshots ORDER BY name, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SnapshotInfo
	for rows.Next() {
		var s SnapshotInfo
		if err := rows.Scan(&s.ID, &s.Name, &s.Version, &s.EntityCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Entities returns the entity index of a snapshot revision whose name
// matches, or every entity when name is empty.
func (r *SceneRepo) Entities(ctx context.Context, snapshotID int64, name string) ([]SnapshotEntity, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT guid, scene_index, name, tag, parent FROM snapshot_entities
		 WHERE snapshot_id = $1 AND ($2 = '' OR name = $2)
		 ORDER BY scene_index, name`,
		snapshotID, name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SnapshotEntity
	for rows.Next() {
		var (
			e      SnapshotEntity
			parent *uuid.UUID
		)
		if err := rows.Scan(&e.GUID, &e.SceneIndex, &e.Name, &e.Tag, &parent); err != nil {
			return nil, err
		}
		if parent != nil {
			e.Parent = *parent
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Delete removes every revision of name.
func (r *SceneRepo) Delete(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM scene_snapshots WHERE name = $1`, name)
	return err
}
