package preflight

import (
	"marquee/internal/config"
	"marquee/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckHelperBinary(cfg))
	results = append(results, CheckDirectoryReadable("Animations directory", cfg.Sign.AnimationsDir))
	results = append(results, CheckBlankAnimation(cfg))
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckPresetsFile(cfg.Presets.File))
	return results
}

// CheckSystemDeps evaluates the external binaries Marquee calls. Both the
// daemon boot log and the CLI status command use this so the requirements
// list lives in one place.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "CoolLEDX helper",
			Command:     cfg.Sign.HelperBinary,
			Description: "Required to reach the sign over Bluetooth",
		},
		{
			Name:        "bluetoothctl",
			Command:     "bluetoothctl",
			Description: "Helps diagnose Bluetooth adapter state",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}
