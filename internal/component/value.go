package component

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/blueshift/engine/internal/geom"
)

// Value is the serialized form of an entity or component: a JSON-like tree
// of maps, slices, strings, numbers and bools.
type Value = map[string]any

// GetString reads a string field.
func GetString(v Value, key, def string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return def
}

// GetFloat reads a numeric field. Decoders produce float64 or int
// depending on the format, so both are accepted.
func GetFloat(v Value, key string, def float32) float32 {
	if f, ok := toFloat(v[key]); ok {
		return f
	}
	return def
}

func GetInt(v Value, key string, def int) int {
	if f, ok := toFloat(v[key]); ok {
		return int(f)
	}
	return def
}

func GetBool(v Value, key string, def bool) bool {
	if b, ok := v[key].(bool); ok {
		return b
	}
	return def
}

// GetVec3 reads a vector stored either as a [x, y, z] list or as an
// "x y z" string.
func GetVec3(v Value, key string, def geom.Vec3) geom.Vec3 {
	if out, ok := ParseVec3(v[key]); ok {
		return out
	}
	return def
}

// ParseVec3 converts a serialized vector.
func ParseVec3(raw any) (geom.Vec3, bool) {
	switch x := raw.(type) {
	case []any:
		if len(x) != 3 {
			return geom.Vec3{}, false
		}
		var out geom.Vec3
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return geom.Vec3{}, false
			}
			out.Set(i, f)
		}
		return out, true
	case string:
		fields := strings.Fields(x)
		if len(fields) != 3 {
			return geom.Vec3{}, false
		}
		var out geom.Vec3
		for i, s := range fields {
			f, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return geom.Vec3{}, false
			}
			out.Set(i, float32(f))
		}
		return out, true
	}
	return geom.Vec3{}, false
}

// GetGUID reads a GUID field. Missing or malformed values give uuid.Nil.
func GetGUID(v Value, key string) uuid.UUID {
	s, ok := v[key].(string)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// GetValue reads a nested object field.
func GetValue(v Value, key string) Value {
	if m, ok := v[key].(map[string]any); ok {
		return m
	}
	return nil
}

// GetList reads a list field.
func GetList(v Value, key string) []any {
	if l, ok := v[key].([]any); ok {
		return l
	}
	return nil
}

func toFloat(raw any) (float32, bool) {
	switch n := raw.(type) {
	case float64:
		return float32(n), true
	case float32:
		return n, true
	case int:
		return float32(n), true
	case int64:
		return float32(n), true
	case int32:
		return float32(n), true
	case uint64:
		return float32(n), true
	}
	return 0, false
}

// Clone deep-copies a serialized tree.
func Clone(raw any) any {
	switch x := raw.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Clone(e)
		}
		return out
	}
	return raw
}

// CloneValue deep-copies a Value.
func CloneValue(v Value) Value {
	if v == nil {
		return nil
	}
	return Clone(v).(map[string]any)
}

// Normalize rewrites decoder-specific shapes (map[any]any, typed slices,
// integers of any width) into the canonical Value shapes so that values
// coming from YAML, JSON, msgpack or Lua compare equal.
func Normalize(raw any) any {
	switch x := raw.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	}
	return raw
}

// Vec3Value is the canonical serialized form of a vector.
func Vec3Value(v geom.Vec3) []any { return v.Slice() }
