// Package presets loads named message presets from a YAML file.
//
// A preset bundles the text and rendering options for a message so callers
// can trigger recurring announcements by name instead of repeating styling
// flags. The file is optional; a missing file yields an empty set.
package presets
