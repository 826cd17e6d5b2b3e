// Package sign owns the single logical connection to the LED sign and the
// FIFO dispatch of caller commands over it.
//
// Many goroutines submit jobs concurrently; exactly one worker goroutine
// holds the transport session and sends jobs to the hardware one at a time,
// in arrival order. Submissions block until the sign acknowledges the
// command, so callers get a definitive outcome without ever touching the
// connection themselves.
//
// The worker reconnects forever with a fixed delay whenever the session is
// lost. Jobs that fail mid-send resolve with a failure result while the
// queue keeps its order; later jobs are dispatched on the next session.
// Stopping the worker fails all queued jobs immediately and rejects new
// submissions, so no caller is left blocked against a dead queue.
package sign
