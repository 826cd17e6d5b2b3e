// Package daemon coordinates the long-running marquee process and its
// system integration points.
//
// It wires the sign controller, animation library, presets, and history
// store into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon also owns the optional HTTP API and the Bluetooth
// adapter monitor that kicks reconnects when an adapter reappears.
//
// Keep orchestration here: sign queueing and transport behavior live in
// their own packages while the daemon focuses on startup, shutdown, and
// status reporting.
package daemon
