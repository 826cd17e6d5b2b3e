// Package preflight provides readiness checks for the filesystem paths and
// external binaries the daemon depends on.
//
// These checks run in two contexts:
//   - The daemon logs a snapshot at boot so a misconfigured install is
//     visible before the first job arrives.
//   - The CLI status command displays them for operators.
//
// Failures are warnings, not fatal: the daemon still starts and the worker
// keeps retrying, but operations that depend on the missing piece fail until
// it is fixed.
package preflight
