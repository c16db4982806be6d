// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// Request and response types live in types.go; question payloads reuse the
// api wire types so the socket and the HTTP API describe questions the same
// way.
package ipc
