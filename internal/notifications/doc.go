// Package notifications delivers push notifications about sign connectivity
// and dispatch failures over ntfy. When no topic is configured the service
// degrades to a noop so callers never need nil checks.
package notifications
