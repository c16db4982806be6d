// Package logs reads the daemon log file for `qbridge logs`.
//
// Last returns the trailing lines of the file with bounded memory. Since and
// Follow pick up complete lines appended after a byte offset, restarting from
// the top when the file was truncated or replaced.
package logs
