package presets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset bundles message text with rendering options for the sign.
type Preset struct {
	Text       string `yaml:"text" json:"text"`
	Color      string `yaml:"color,omitempty" json:"color,omitempty"`
	Background string `yaml:"background,omitempty" json:"background,omitempty"`
	Speed      int    `yaml:"speed,omitempty" json:"speed,omitempty"`
	Brightness int    `yaml:"brightness,omitempty" json:"brightness,omitempty"`
}

// Set is an immutable collection of presets keyed by name.
type Set struct {
	presets map[string]Preset
	names   []string
}

type presetsFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// Load reads the preset file at path. A missing file is not an error and
// yields an empty set so the daemon can run before presets are configured.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Set{presets: map[string]Preset{}}, nil
		}
		return nil, fmt.Errorf("read presets: %w", err)
	}

	var file presetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}

	set := &Set{presets: make(map[string]Preset, len(file.Presets))}
	for name, preset := range file.Presets {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, errors.New("presets: empty preset name")
		}
		// An entry with no text is a styling-only preset; callers supply
		// the text when they invoke it.
		set.presets[trimmed] = preset
		set.names = append(set.names, trimmed)
	}
	slices.Sort(set.names)
	return set, nil
}

// Get returns the preset registered under name.
func (s *Set) Get(name string) (Preset, bool) {
	preset, ok := s.presets[strings.TrimSpace(name)]
	return preset, ok
}

// Names returns all preset names sorted alphabetically.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len reports how many presets are loaded.
func (s *Set) Len() int {
	return len(s.presets)
}

// All returns a copy of every preset keyed by name.
func (s *Set) All() map[string]Preset {
	out := make(map[string]Preset, len(s.presets))
	for name, preset := range s.presets {
		out[name] = preset
	}
	return out
}

const samplePresets = `# Marquee message presets
#
# Each entry names a message the daemon can show via the preset operation.
# color, background, speed, and brightness are optional and fall back to the
# sign's defaults. An entry may omit text entirely to act as a styling-only
# preset whose text is supplied per invocation.

presets:
  welcome:
    text: "WELCOME!"
    color: "#00ff00"
    speed: 30
  closed:
    text: "BACK IN 5 MINUTES"
    color: "#ff0000"
    background: "#000000"
    brightness: 60
  alert:
    color: "#ffaa00"
    brightness: 100
`

// CreateSample writes a starter preset file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create presets directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(samplePresets), 0o644); err != nil {
		return fmt.Errorf("write sample presets: %w", err)
	}
	return nil
}
