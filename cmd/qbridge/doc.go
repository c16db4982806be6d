// Package main hosts the qbridge CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon in the foreground, starts and stops
// a detached daemon, and talks to a running one over its control socket to
// list pending installer questions and answer them. The watch command follows
// the daemon's WebSocket change feed instead.
package main
