package objects

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ConnectionError reports that the bus, the root object manager, or a signal
// source could not be attached.
type ConnectionError struct {
	Op     string
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IPCError reports a failed enumeration, property read/write, or a property
// value that could not be decoded. The common cause is an object that
// disappeared between enumeration and access.
type IPCError struct {
	Op        string
	Path      dbus.ObjectPath
	Interface string
	Member    string
	Err       error
}

func (e *IPCError) Error() string {
	target := string(e.Path)
	if e.Interface != "" {
		target += " " + e.Interface
	}
	if e.Member != "" {
		target += "." + e.Member
	}
	return fmt.Sprintf("%s %s: %v", e.Op, target, e.Err)
}

func (e *IPCError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err wraps a *ConnectionError.
func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

// IsIPCError reports whether err wraps an *IPCError.
func IsIPCError(err error) bool {
	var target *IPCError
	return errors.As(err, &target)
}
