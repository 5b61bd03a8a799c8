package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/blueshift/engine/internal/component"
)

// MapVersion is written into every saved map.
const MapVersion = 1

// Format selects the on-disk encoding of a map file.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
	FormatMsgpack // compact binary, for large generated maps
)

// FormatOf picks the format from the file extension: .json, .msgpack, and
// YAML for anything else.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".msgpack":
		return FormatMsgpack
	}
	return FormatYAML
}

// NewMap wraps an entity list into a map document.
func NewMap(entities []any) component.Value {
	if entities == nil {
		entities = []any{}
	}
	return component.Value{"version": float64(MapVersion), "entities": entities}
}

// ReadMap loads a map file.
func ReadMap(path string) (component.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	v, err := DecodeMapFormat(raw, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("parse map %s: %w", path, err)
	}
	return v, nil
}

// DecodeMap parses a YAML or JSON map document. JSON is read by the YAML
// decoder as a subset.
func DecodeMap(raw []byte) (component.Value, error) {
	return DecodeMapFormat(raw, FormatYAML)
}

func DecodeMapFormat(raw []byte, f Format) (component.Value, error) {
	var doc any
	var err error
	if f == FormatMsgpack {
		err = msgpack.Unmarshal(raw, &doc)
	} else {
		err = yaml.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, err
	}
	v, ok := component.Normalize(doc).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("map document is not an object")
	}
	if _, ok := v["entities"]; !ok {
		v["entities"] = []any{}
	}
	return v, nil
}

// WriteMap saves a map file in the format implied by its extension.
func WriteMap(path string, v component.Value) error {
	raw, err := EncodeMap(v, FormatOf(path))
	if err != nil {
		return fmt.Errorf("encode map %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create map dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write map: %w", err)
	}
	return nil
}

// EncodeMap renders a map document.
func EncodeMap(v component.Value, f Format) ([]byte, error) {
	if f == FormatMsgpack {
		return msgpack.Marshal(v)
	}
	if f == FormatJSON {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Entities returns the entity list of a map document.
func Entities(v component.Value) []any {
	return component.GetList(v, "entities")
}

// ValidateMap checks a map document without spawning it: version, entity
// class names, GUID uniqueness, component lists and parent references. All
// problems are reported together.
func ValidateMap(v component.Value) error {
	var errs error
	if ver := component.GetInt(v, "version", 0); ver != MapVersion {
		errs = multierr.Append(errs, fmt.Errorf("unsupported map version %d", ver))
	}

	seen := make(map[uuid.UUID]int)
	parents := make(map[int]uuid.UUID)
	for i, raw := range Entities(v) {
		ev, ok := raw.(map[string]any)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("entity %d: not an object", i))
			continue
		}
		if c := component.GetString(ev, "classname", "Entity"); c != "Entity" {
			errs = multierr.Append(errs, fmt.Errorf("entity %d: classname %q", i, c))
		}
		id := component.GetGUID(ev, "guid")
		if id == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("entity %d: missing guid", i))
		} else if prev, dup := seen[id]; dup {
			errs = multierr.Append(errs, fmt.Errorf("entity %d: guid %s already used by entity %d", i, id, prev))
		} else {
			seen[id] = i
		}
		if p := component.GetGUID(ev, "parent"); p != uuid.Nil {
			parents[i] = p
		}

		comps := component.GetList(ev, "components")
		if len(comps) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("entity %d: no components", i))
			continue
		}
		for j, rc := range comps {
			cv, ok := rc.(map[string]any)
			if !ok || component.GetString(cv, "classname", "") == "" {
				errs = multierr.Append(errs, fmt.Errorf("entity %d component %d: missing classname", i, j))
			}
		}
	}
	for i, p := range parents {
		if at, ok := seen[p]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("entity %d: parent %s not in map", i, p))
		} else if at > i {
			errs = multierr.Append(errs, fmt.Errorf("entity %d: parent %s listed after child", i, p))
		}
	}
	return errs
}
