package animations

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const payloadExtension = ".jt"

var (
	// ErrInvalidName reports a name that cannot be a library entry.
	ErrInvalidName = errors.New("invalid animation name")
	// ErrUnknown reports a well-formed name with no matching payload file.
	ErrUnknown = errors.New("unknown animation")
)

// Entry describes one animation payload in the library.
type Entry struct {
	Name     string    `json:"name"`
	Title    string    `json:"title"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Library resolves animation names against a directory of .jt files.
type Library struct {
	dir string
}

// NewLibrary creates a library rooted at dir. The directory does not need to
// exist yet; lookups against a missing directory report ErrUnknown.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Dir returns the library root.
func (l *Library) Dir() string {
	return l.dir
}

// List returns every payload in the library sorted by name.
func (l *Library) List() ([]Entry, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read animations dir: %w", err)
	}

	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), payloadExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		out = append(out, Entry{
			Name:     stem,
			Title:    displayTitle(stem),
			Path:     filepath.Join(l.dir, name),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	slices.SortFunc(out, func(a, b Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Resolve validates name and returns the absolute path of its payload file.
// Lookup is exact first, then falls back to comparing NFC-normalized stems so
// names survive platforms that store filenames decomposed.
func (l *Library) Resolve(name string) (string, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return "", err
	}

	direct := filepath.Join(l.dir, cleaned+payloadExtension)
	if info, err := os.Stat(direct); err == nil && !info.IsDir() {
		return direct, nil
	}

	normalized := norm.NFC.String(cleaned)
	entries, err := l.List()
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if norm.NFC.String(entry.Name) == normalized {
			return entry.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknown, cleaned)
}

// CleanName trims and validates a caller-supplied animation name.
func CleanName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(trimmed, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if trimmed == "." || trimmed == ".." || strings.HasPrefix(trimmed, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if filepath.Base(trimmed) != trimmed {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return trimmed, nil
}

func displayTitle(stem string) string {
	words := strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	words = strings.Join(strings.Fields(words), " ")
	if words == "" {
		return stem
	}
	return cases.Title(language.Und).String(words)
}
