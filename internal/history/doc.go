// Package history persists a bounded log of dispatched sign jobs in SQLite.
// One row is appended per completed dispatch, successful or not, and the
// newest successful animation row seeds resume across daemon restarts.
package history
