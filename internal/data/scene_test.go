package data

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/blueshift/engine/internal/component"
)

func entityValue(id, parent uuid.UUID) component.Value {
	v := component.Value{
		"classname": "Entity",
		"guid":      id.String(),
		"name":      "e",
		"components": []any{
			component.Value{"classname": "ComTransform", "origin": []any{1.0, 2.0, 3.0}},
		},
	}
	if parent != uuid.Nil {
		v["parent"] = parent.String()
	}
	return v
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatOf("maps/a.JSON"))
	assert.Equal(t, FormatYAML, FormatOf("maps/a.yaml"))
	assert.Equal(t, FormatYAML, FormatOf("maps/a"))
	assert.Equal(t, FormatMsgpack, FormatOf("maps/a.MsgPack"))
}

func TestWriteReadMap(t *testing.T) {
	root, child := uuid.New(), uuid.New()
	doc := NewMap([]any{entityValue(root, uuid.Nil), entityValue(child, root)})

	for _, name := range []string{"m.yaml", "m.json", "m.msgpack"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)
			require.NoError(t, WriteMap(path, doc))

			got, err := ReadMap(path)
			require.NoError(t, err)
			assert.Equal(t, 1, component.GetInt(got, "version", 0))
			require.NoError(t, ValidateMap(got))

			list := Entities(got)
			require.Len(t, list, 2)
			second := list[1].(map[string]any)
			assert.Equal(t, root, component.GetGUID(second, "parent"))
			tr := component.GetList(second, "components")[0].(map[string]any)
			assert.Equal(t, []any{1.0, 2.0, 3.0}, tr["origin"])
		})
	}
}

func TestDecodeMapNormalizesYAML(t *testing.T) {
	v, err := DecodeMap([]byte("version: 1\nentities:\n  - name: a\n    layer: 3\n"))
	require.NoError(t, err)
	e := Entities(v)[0].(map[string]any)
	assert.Equal(t, 3.0, e["layer"])

	v, err = DecodeMap([]byte("version: 1\n"))
	require.NoError(t, err)
	assert.Empty(t, Entities(v))

	_, err = DecodeMap([]byte("- 1\n- 2\n"))
	assert.Error(t, err)
}

func TestReadMapMissing(t *testing.T) {
	_, err := ReadMap(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read map")
}

func TestValidateMapCollectsErrors(t *testing.T) {
	a := uuid.New()
	bad := entityValue(a, uuid.Nil)
	bad["classname"] = "Light"
	orphan := entityValue(uuid.New(), uuid.New())
	bare := component.Value{"guid": a.String()}

	err := ValidateMap(component.Value{
		"version":  2.0,
		"entities": []any{bad, orphan, bare, "junk"},
	})
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 6)
	assert.ErrorContains(t, err, "unsupported map version 2")
	assert.ErrorContains(t, err, `classname "Light"`)
	assert.ErrorContains(t, err, "already used by entity 0")
	assert.ErrorContains(t, err, "not in map")
	assert.ErrorContains(t, err, "no components")
	assert.ErrorContains(t, err, "not an object")
}

func TestValidateMapParentOrder(t *testing.T) {
	p, c := uuid.New(), uuid.New()
	err := ValidateMap(NewMap([]any{entityValue(c, p), entityValue(p, uuid.Nil)}))
	assert.ErrorContains(t, err, "listed after child")
}
