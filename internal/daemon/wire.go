package daemon

import (
	"time"

	"marquee/internal/deps"
	"marquee/internal/history"
	"marquee/internal/preflight"
	"marquee/internal/presets"
	"marquee/internal/sign"
)

// JobResult is the wire form of a sign job outcome, shared by the HTTP API
// and IPC responses.
type JobResult struct {
	OK        bool   `json:"ok"`
	Kind      string `json:"kind"`
	Name      string `json:"name,omitempty"`
	Path      string `json:"path,omitempty"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// FromResult converts a job result to its wire form.
func FromResult(res sign.Result) JobResult {
	return JobResult{
		OK:        res.OK,
		Kind:      string(res.Kind),
		Name:      res.Name,
		Path:      res.Path,
		Output:    res.Output,
		Error:     res.Error,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
}

// CheckResult is the wire form of a preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// FromCheck converts a preflight result to its wire form.
func FromCheck(res preflight.Result) CheckResult {
	return CheckResult{Name: res.Name, Passed: res.Passed, Detail: res.Detail}
}

// DependencyStatus is the wire form of an external dependency check.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// FromDependency converts a dependency status to its wire form.
func FromDependency(status deps.Status) DependencyStatus {
	return DependencyStatus{
		Name:        status.Name,
		Command:     status.Command,
		Description: status.Description,
		Optional:    status.Optional,
		Available:   status.Available,
		Detail:      status.Detail,
	}
}

// PresetEntry is the wire form of a named preset.
type PresetEntry struct {
	Name       string `json:"name"`
	Text       string `json:"text"`
	Color      string `json:"color,omitempty"`
	Background string `json:"background,omitempty"`
	Speed      int    `json:"speed,omitempty"`
	Brightness int    `json:"brightness,omitempty"`
}

// PresetEntries converts a preset set into wire entries sorted by name.
func PresetEntries(set *presets.Set) []PresetEntry {
	if set == nil {
		return nil
	}
	names := set.Names()
	entries := make([]PresetEntry, 0, len(names))
	for _, name := range names {
		preset, ok := set.Get(name)
		if !ok {
			continue
		}
		entries = append(entries, PresetEntry{
			Name:       name,
			Text:       preset.Text,
			Color:      preset.Color,
			Background: preset.Background,
			Speed:      preset.Speed,
			Brightness: preset.Brightness,
		})
	}
	return entries
}

// HistoryEntry is the wire form of a playback history record.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	Output    string `json:"output,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	CreatedAt string `json:"created_at"`
}

// FromHistoryRecord converts a history record to its wire form.
func FromHistoryRecord(rec history.Record) HistoryEntry {
	return HistoryEntry{
		ID:        rec.ID,
		Kind:      rec.Kind,
		Name:      rec.Name,
		OK:        rec.OK,
		Error:     rec.Error,
		Output:    rec.Output,
		ElapsedMS: rec.Elapsed.Milliseconds(),
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// StatusSnapshot is the wire form of daemon status.
type StatusSnapshot struct {
	Running           bool                  `json:"running"`
	PID               int                   `json:"pid"`
	Sign              sign.ControllerStatus `json:"sign"`
	LockPath          string                `json:"lock_path"`
	LogPath           string                `json:"log_path"`
	HistoryPath       string                `json:"history_path,omitempty"`
	AnimationsDir     string                `json:"animations_dir"`
	NetlinkMonitoring bool                  `json:"netlink_monitoring"`
	Checks            []CheckResult         `json:"checks,omitempty"`
	Dependencies      []DependencyStatus    `json:"dependencies,omitempty"`
}

// FromStatus converts daemon status to its wire form.
func FromStatus(status Status) StatusSnapshot {
	snapshot := StatusSnapshot{
		Running:           status.Running,
		PID:               status.PID,
		Sign:              status.Sign,
		LockPath:          status.LockPath,
		LogPath:           status.LogPath,
		HistoryPath:       status.HistoryPath,
		AnimationsDir:     status.AnimationsDir,
		NetlinkMonitoring: status.NetlinkMonitoring,
	}
	if len(status.Checks) > 0 {
		snapshot.Checks = make([]CheckResult, 0, len(status.Checks))
		for _, check := range status.Checks {
			snapshot.Checks = append(snapshot.Checks, FromCheck(check))
		}
	}
	if len(status.Dependencies) > 0 {
		snapshot.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
		for _, dep := range status.Dependencies {
			snapshot.Dependencies = append(snapshot.Dependencies, FromDependency(dep))
		}
	}
	return snapshot
}
