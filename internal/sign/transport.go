package sign

import "context"

// Transport establishes sessions with the sign hardware.
type Transport interface {
	// Open establishes a connection, retrying internally per its own
	// configuration. The returned session belongs to a single worker and is
	// never shared.
	Open(ctx context.Context) (Session, error)
}

// Session is one live connection to the sign.
type Session interface {
	// Send delivers one job to the sign and returns its textual output.
	// Errors tagged with ErrConnection invalidate the session.
	Send(ctx context.Context, job *Job) (string, error)
	Close() error
}

// State describes the worker's position in the connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateStopping is terminal; the worker never dispatches again.
	StateStopping State = "stopping"
)
