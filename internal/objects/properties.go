package objects

import (
	"context"

	"github.com/godbus/dbus/v5"
)

const (
	propertiesGet = "org.freedesktop.DBus.Properties.Get"
	propertiesSet = "org.freedesktop.DBus.Properties.Set"
)

// PropertyView reads and writes properties of one interface on one object.
// Every call is a remote round-trip; nothing is cached.
type PropertyView interface {
	Get(ctx context.Context, name string) (dbus.Variant, error)
	Set(ctx context.Context, name string, value any) error
}

type busPropertyView struct {
	obj   dbus.BusObject
	path  dbus.ObjectPath
	iface string
}

func (v *busPropertyView) Get(ctx context.Context, name string) (dbus.Variant, error) {
	var value dbus.Variant
	if err := v.obj.CallWithContext(ctx, propertiesGet, 0, v.iface, name).Store(&value); err != nil {
		return dbus.Variant{}, &IPCError{Op: "get property", Path: v.path, Interface: v.iface, Member: name, Err: err}
	}
	return value, nil
}

func (v *busPropertyView) Set(ctx context.Context, name string, value any) error {
	if err := v.obj.CallWithContext(ctx, propertiesSet, 0, v.iface, name, dbus.MakeVariant(value)).Err; err != nil {
		return &IPCError{Op: "set property", Path: v.path, Interface: v.iface, Member: name, Err: err}
	}
	return nil
}

// Decode stores a property value into dst, reporting a type mismatch as an
// *IPCError attributed to path/iface/name.
func Decode[T any](value dbus.Variant, path dbus.ObjectPath, iface, name string) (T, error) {
	var dst T
	if err := value.Store(&dst); err != nil {
		return dst, &IPCError{Op: "decode property", Path: path, Interface: iface, Member: name, Err: err}
	}
	return dst, nil
}
