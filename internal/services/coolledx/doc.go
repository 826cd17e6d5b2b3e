// Package coolledx mediates access to the CoolLEDX helper binary that owns
// the Bluetooth link to the sign.
//
// The helper runs as a long-lived gateway subprocess speaking newline-framed
// JSON: one ready handshake when the sign is reachable, then one reply per
// command written to its stdin. This package wraps that dialogue behind the
// sign transport interface, classifies link failures so the dispatch worker
// knows when to reconnect, and exposes a testable executor seam so tests can
// substitute an in-memory gateway for the real process.
//
// Prefer this package over ad-hoc exec.Command usage when talking to the
// sign so connect budgets, process reclamation, and error classification stay
// consistent.
package coolledx
