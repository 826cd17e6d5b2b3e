package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"marquee/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Marquee", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Marquee:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("unexpected line: %q want %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Sign", statusOK, "connected", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderStatusLineWithoutMessage(t *testing.T) {
	got := renderStatusLine("Queue", statusInfo, "", false)
	if !strings.HasSuffix(got, "[INFO]") {
		t.Fatalf("expected bare status marker, got %q", got)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Daemon", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Daemon ==" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != strings.Repeat("-", len(lines[0])) {
		t.Fatalf("rule does not match header width: %q", lines[1])
	}
}

func TestDependencyLinesMissingRequired(t *testing.T) {
	deps := []ipc.DependencyStatus{
		{Name: "CoolLEDX helper", Command: "coolledx-send", Detail: "coolledx-send not found in PATH"},
		{Name: "bluetoothctl", Command: "bluetoothctl", Optional: true, Available: true},
	}

	lines := dependencyLines(deps, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[ERROR] 1/2 available (missing: 1 required, 0 optional)") {
		t.Fatalf("unexpected summary: %q", lines[0])
	}
	if !strings.Contains(lines[1], "coolledx-send not found in PATH") {
		t.Fatalf("unexpected helper line: %q", lines[1])
	}
	if !strings.Contains(lines[2], "Ready (command: bluetoothctl)") {
		t.Fatalf("unexpected bluetoothctl line: %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing dependencies") || !strings.Contains(lines[3], "CoolLEDX helper") {
		t.Fatalf("unexpected missing line: %q", lines[3])
	}
}

func TestDependencyLinesAllAvailable(t *testing.T) {
	deps := []ipc.DependencyStatus{
		{Name: "CoolLEDX helper", Command: "coolledx-send", Available: true},
		{Name: "bluetoothctl", Command: "bluetoothctl", Optional: true, Available: true},
	}

	lines := dependencyLines(deps, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[OK] 2/2 available") {
		t.Fatalf("unexpected summary: %q", lines[0])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected no color for non-file writer")
	}
}
