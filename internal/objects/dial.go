package objects

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Bus selectors understood by Dial.
const (
	BusAddress = "address"
	BusSystem  = "system"
	BusSession = "session"
)

// Dial opens and authenticates a bus connection. For BusAddress the given
// address is used verbatim (for example "unix:path=/run/agama/bus").
func Dial(ctx context.Context, bus, address string) (*dbus.Conn, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch bus {
	case BusSystem:
		conn, err = dbus.ConnectSystemBus(dbus.WithContext(ctx))
	case BusSession:
		conn, err = dbus.ConnectSessionBus(dbus.WithContext(ctx))
	case BusAddress, "":
		if address == "" {
			return nil, &ConnectionError{Op: "dial bus", Err: fmt.Errorf("empty bus address")}
		}
		conn, err = dbus.Connect(address, dbus.WithContext(ctx))
	default:
		return nil, &ConnectionError{Op: "dial bus", Target: bus, Err: fmt.Errorf("unsupported bus selector")}
	}
	if err != nil {
		target := bus
		if bus == BusAddress || bus == "" {
			target = address
		}
		return nil, &ConnectionError{Op: "dial bus", Target: target, Err: err}
	}
	return conn, nil
}
