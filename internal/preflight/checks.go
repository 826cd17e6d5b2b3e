package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"marquee/internal/animations"
	"marquee/internal/config"
	"marquee/internal/deps"
	"marquee/internal/presets"
)

// CheckHelperBinary verifies the configured CoolLEDX helper resolves to an
// executable.
func CheckHelperBinary(cfg *config.Config) Result {
	const name = "CoolLEDX helper"
	statuses := deps.CheckBinaries([]deps.Requirement{{Name: name, Command: cfg.Sign.HelperBinary}})
	status := statuses[0]
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	return Result{Name: name, Passed: true, Detail: status.Command}
}

// CheckDirectoryAccess verifies that the directory exists and is readable
// and writable.
func CheckDirectoryAccess(name, path string) Result {
	if result, ok := statDirectory(name, path); !ok {
		return result
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDirectoryReadable verifies that the directory exists and can be
// listed. Write access is not required.
func CheckDirectoryReadable(name, path string) Result {
	if result, ok := statDirectory(name, path); !ok {
		return result
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckBlankAnimation verifies the animation behind the off operation is
// present in the library.
func CheckBlankAnimation(cfg *config.Config) Result {
	const name = "Blank animation"
	blank := strings.TrimSpace(cfg.Sign.BlankAnimation)
	if blank == "" {
		return Result{Name: name, Detail: "no blank animation configured; the off operation cannot work"}
	}
	library := animations.NewLibrary(cfg.Sign.AnimationsDir)
	path, err := library.Resolve(blank)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%q not found in %s; the off operation depends on it", blank, cfg.Sign.AnimationsDir)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckPresetsFile verifies the preset file parses when it exists. An absent
// file passes because presets are optional.
func CheckPresetsFile(path string) Result {
	const name = "Presets file"
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Result{Name: name, Passed: true, Detail: "not configured"}
	}
	if _, err := os.Stat(trimmed); errors.Is(err, fs.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (absent, no presets loaded)", trimmed)}
	}
	set, err := presets.Load(trimmed)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", trimmed, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d presets)", trimmed, set.Len())}
}

func statDirectory(name, path string) (Result, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}, false
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}, false
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}, false
	}
	return Result{}, true
}
