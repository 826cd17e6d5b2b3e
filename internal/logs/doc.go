// Package logs reads the daemon run log for `marquee logs` and the IPC
// LogTail call.
//
// It supports negative offsets for "last N lines" requests, resumes forward
// reads from a byte offset, and polls briefly in follow mode so clients can
// stream new lines without re-reading the file. A missing log file is not an
// error; clients routinely ask before the daemon has written anything.
package logs
