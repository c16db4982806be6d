// Package preflight provides readiness checks for the bus, the question
// service, and the filesystem paths the daemon depends on.
//
// The CLI "qbridge status" command runs RunAll before asking the daemon for
// its own view, so a user can tell an unreachable installer apart from a
// stopped daemon. Each check returns a Result instead of an error; checks
// that do not apply to the configured bus report as skipped.
package preflight
