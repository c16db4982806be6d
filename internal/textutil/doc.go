// Package textutil normalizes free-form strings that come off the bus before
// they reach a terminal.
package textutil
