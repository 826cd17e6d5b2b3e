// Package animations indexes the on-disk library of .jt payload files and
// resolves caller-supplied names to absolute paths.
//
// Names are validated before touching the filesystem so path traversal never
// reaches the dispatch queue, and lookups tolerate Unicode normalization
// differences between the request and the filename on disk.
package animations
