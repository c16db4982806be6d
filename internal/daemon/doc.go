// Package daemon coordinates the long-running qbridge process.
//
// It owns the single-instance flock, the HTTP API (question listing, answer
// submission, the WebSocket change feed, status, and metrics), and the
// question service calls the IPC socket forwards to. Question semantics live in
// the questions package; the daemon only adapts them to transports, records
// metrics, and renders failures as {"error": "Question service error: ..."}.
package daemon
