package ipc

import (
	"marquee/internal/animations"
	"marquee/internal/daemon"
)

// JobResult mirrors the daemon wire form of a sign job outcome.
type JobResult = daemon.JobResult

// CheckResult mirrors one preflight check outcome.
type CheckResult = daemon.CheckResult

// DependencyStatus mirrors availability of an external dependency.
type DependencyStatus = daemon.DependencyStatus

// HistoryEntry mirrors one playback history record.
type HistoryEntry = daemon.HistoryEntry

// PresetEntry mirrors one named preset.
type PresetEntry = daemon.PresetEntry

// AnimationEntry mirrors one animation library entry.
type AnimationEntry = animations.Entry

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse carries combined daemon and sign worker status.
type StatusResponse struct {
	Running           bool               `json:"running"`
	PID               int                `json:"pid"`
	SignState         string             `json:"sign_state"`
	Device            string             `json:"device"`
	QueueDepth        int                `json:"queue_depth"`
	LastPlayed        string             `json:"last_played"`
	LastPlayedAt      string             `json:"last_played_at,omitempty"`
	LockPath          string             `json:"lock_path"`
	LogPath           string             `json:"log_path"`
	HistoryPath       string             `json:"history_path,omitempty"`
	AnimationsDir     string             `json:"animations_dir"`
	NetlinkMonitoring bool               `json:"netlink_monitoring"`
	Checks            []CheckResult      `json:"checks"`
	Dependencies      []DependencyStatus `json:"dependencies"`
}

// PlayRequest names an animation to display.
type PlayRequest struct {
	Name string `json:"name"`
}

// PlayResponse carries the play outcome.
type PlayResponse struct {
	Result JobResult `json:"result"`
}

// OffRequest blanks the sign.
type OffRequest struct{}

// OffResponse carries the off outcome.
type OffResponse struct {
	Result JobResult `json:"result"`
}

// ResumeRequest replays the last non-blank animation.
type ResumeRequest struct{}

// ResumeResponse carries the resume outcome.
type ResumeResponse struct {
	Result JobResult `json:"result"`
}

// MessageRequest shows scrolling text with optional styling.
type MessageRequest struct {
	Text       string `json:"text"`
	Color      string `json:"color"`
	Background string `json:"background"`
	Speed      int    `json:"speed"`
	Brightness int    `json:"brightness"`
}

// MessageResponse carries the message outcome.
type MessageResponse struct {
	Result JobResult `json:"result"`
}

// PresetRequest shows a named preset, optionally overriding its text.
type PresetRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// PresetResponse carries the preset outcome.
type PresetResponse struct {
	Result JobResult `json:"result"`
}

// AnimationsRequest lists the animation library.
type AnimationsRequest struct{}

// AnimationsResponse contains the library entries sorted by name.
type AnimationsResponse struct {
	Animations []AnimationEntry `json:"animations"`
}

// PresetsRequest lists the loaded presets.
type PresetsRequest struct{}

// PresetsResponse contains the presets sorted by name.
type PresetsResponse struct {
	Presets []PresetEntry `json:"presets"`
}

// HistoryRequest fetches recent playback records.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains playback records, newest first.
type HistoryResponse struct {
	Records []HistoryEntry `json:"records"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse acknowledges a shutdown request.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
