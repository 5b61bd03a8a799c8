package data

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MapInfo describes one map, loaded from map_list.yaml.
type MapInfo struct {
	Name      string   `yaml:"name"`
	File      string   `yaml:"file"`       // relative to the list file
	Additive  []string `yaml:"additive"`   // maps loaded on top, in order
	TimeScale float64  `yaml:"time_scale"` // 0 keeps the configured scale
	Persist   bool     `yaml:"persist"`    // snapshot to the database on shutdown
}

// MapList resolves map names to scene files.
type MapList struct {
	dir   string
	maps  map[string]*MapInfo
	order []string
}

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// LoadMapList loads the map catalog. Additive references must name maps of
// the same list.
func LoadMapList(path string) (*MapList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", path, err)
	}
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}

	list := &MapList{
		dir:  filepath.Dir(path),
		maps: make(map[string]*MapInfo, len(file.Maps)),
	}
	for i := range file.Maps {
		m := &file.Maps[i]
		if m.Name == "" || m.File == "" {
			return nil, fmt.Errorf("map list entry %d: name and file are required", i)
		}
		if _, dup := list.maps[m.Name]; dup {
			return nil, fmt.Errorf("map list: duplicate map %q", m.Name)
		}
		list.maps[m.Name] = m
		list.order = append(list.order, m.Name)
	}
	for _, m := range list.maps {
		for _, a := range m.Additive {
			if _, ok := list.maps[a]; !ok {
				return nil, fmt.Errorf("map %q: unknown additive map %q", m.Name, a)
			}
		}
	}
	return list, nil
}

// Get returns the map named name, or nil.
func (l *MapList) Get(name string) *MapInfo {
	return l.maps[name]
}

// Path returns the scene file of m.
func (l *MapList) Path(m *MapInfo) string {
	if filepath.IsAbs(m.File) {
		return m.File
	}
	return filepath.Join(l.dir, m.File)
}

// Names lists the maps in file order.
func (l *MapList) Names() []string {
	return append([]string(nil), l.order...)
}

func (l *MapList) Count() int { return len(l.maps) }
