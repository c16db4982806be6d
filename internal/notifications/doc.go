// Package notifications pushes installer question events to ntfy.
//
// NewService returns a no-op publisher when no topic is configured, so callers
// never branch on whether notifications are enabled. PendingNotifier follows
// the daemon's change stream and publishes once for every question id it has
// not seen pending before.
package notifications
