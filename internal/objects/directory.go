package objects

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/godbus/dbus/v5"

	"qbridge/internal/logging"
)

const (
	objectManagerInterface = "org.freedesktop.DBus.ObjectManager"
	getManagedObjects      = objectManagerInterface + ".GetManagedObjects"

	busDaemonName = "org.freedesktop.DBus"
	busDaemonPath = dbus.ObjectPath("/org/freedesktop/DBus")
	getNameOwner  = busDaemonName + ".GetNameOwner"
)

// busConn is the subset of *dbus.Conn the directory needs.
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error
	RemoveMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// ManagedObject is one child of the root together with the interface names it
// advertises.
type ManagedObject struct {
	Path       dbus.ObjectPath
	Interfaces map[string]struct{}
}

// Has reports whether the object advertises iface.
func (o ManagedObject) Has(iface string) bool {
	_, ok := o.Interfaces[iface]
	return ok
}

// Directory is a handle on one remote ObjectManager. It holds no mutable state
// and is safe for concurrent use.
type Directory struct {
	conn    busConn
	service string
	root    dbus.ObjectPath
	logger  *slog.Logger
}

// Connect attaches to the object manager exported by service at root. The
// manager is probed once so an unreachable service fails here rather than on
// first use.
func Connect(ctx context.Context, conn busConn, service, root string, logger *slog.Logger) (*Directory, error) {
	if conn == nil {
		return nil, &ConnectionError{Op: "connect object manager", Target: root, Err: fmt.Errorf("nil bus connection")}
	}
	path := dbus.ObjectPath(root)
	if !path.IsValid() {
		return nil, &ConnectionError{Op: "connect object manager", Target: root, Err: fmt.Errorf("malformed object path")}
	}
	d := &Directory{
		conn:    conn,
		service: service,
		root:    path,
		logger:  logging.NewComponentLogger(logger, "object-directory"),
	}
	if _, err := d.managedObjects(ctx); err != nil {
		return nil, &ConnectionError{Op: "connect object manager", Target: service + " " + root, Err: err}
	}
	d.logger.Debug("object manager attached",
		logging.String(logging.FieldEventType, "object_manager_attached"),
		logging.String(logging.FieldObjectPath, root),
		logging.String("service", service),
	)
	return d, nil
}

// Root returns the object manager path.
func (d *Directory) Root() dbus.ObjectPath {
	return d.root
}

// ListManaged returns every child of the root with its advertised interfaces.
// The result is sorted by path; callers must not rely on that across calls.
func (d *Directory) ListManaged(ctx context.Context) ([]ManagedObject, error) {
	raw, err := d.managedObjects(ctx)
	if err != nil {
		return nil, &IPCError{Op: "enumerate", Path: d.root, Interface: objectManagerInterface, Member: "GetManagedObjects", Err: err}
	}
	objects := make([]ManagedObject, 0, len(raw))
	for path, interfaces := range raw {
		set := make(map[string]struct{}, len(interfaces))
		for name := range interfaces {
			set[name] = struct{}{}
		}
		objects = append(objects, ManagedObject{Path: path, Interfaces: set})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

func (d *Directory) managedObjects(ctx context.Context) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	var raw map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := d.conn.Object(d.service, d.root).CallWithContext(ctx, getManagedObjects, 0)
	if err := call.Store(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Properties opens a fresh, uncached view onto iface at path. Views are cheap
// and must not be kept beyond the call that created them.
func (d *Directory) Properties(path dbus.ObjectPath, iface string) PropertyView {
	return &busPropertyView{
		obj:   d.conn.Object(d.service, path),
		path:  path,
		iface: iface,
	}
}

// SubscribeAdded yields one impulse per InterfacesAdded signal on the root.
func (d *Directory) SubscribeAdded(ctx context.Context) (Subscription, error) {
	return d.subscribe(ctx, "InterfacesAdded")
}

// SubscribeRemoved yields one impulse per InterfacesRemoved signal on the root.
func (d *Directory) SubscribeRemoved(ctx context.Context) (Subscription, error) {
	return d.subscribe(ctx, "InterfacesRemoved")
}
