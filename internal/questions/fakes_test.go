package questions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/godbus/dbus/v5"

	"qbridge/internal/objects"
)

const testRoot = dbus.ObjectPath("/org/opensuse/Agama1/Questions")

// fakeRemote keeps question objects in memory and records every property
// access in order as "get|set iface.name path".
type fakeRemote struct {
	mu      sync.Mutex
	objects map[dbus.ObjectPath]map[string]map[string]any
	calls   []string

	// afterList runs once enumeration has produced its snapshot.
	afterList func()
	// onSet runs after a successful write, with the lock released.
	onSet   func(path dbus.ObjectPath, iface, name string, value any)
	failSet map[string]error
	listErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		objects: map[dbus.ObjectPath]map[string]map[string]any{},
		failSet: map[string]error{},
	}
}

func (r *fakeRemote) addGeneric(id uint32, text string, options []string, def string) dbus.ObjectPath {
	r.mu.Lock()
	defer r.mu.Unlock()
	path := dbus.ObjectPath(fmt.Sprintf("%s/%d", testRoot, id))
	r.objects[path] = map[string]map[string]any{
		GenericInterface: {
			"Id":            id,
			"Class":         "storage.confirm",
			"Text":          text,
			"Options":       options,
			"DefaultOption": def,
			"Data":          map[string]string{},
			"Answer":        "",
		},
	}
	return path
}

func (r *fakeRemote) addWithPassword(id uint32, text string) dbus.ObjectPath {
	path := r.addGeneric(id, text, []string{"ok", "cancel"}, "cancel")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[path][GenericInterface]["Class"] = "storage.luks_activation"
	r.objects[path][GenericInterface]["Data"] = map[string]string{"device": "/dev/sda1"}
	r.objects[path][PasswordInterface] = map[string]any{"Password": ""}
	return path
}

func (r *fakeRemote) setValue(path dbus.ObjectPath, iface, name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[path][iface][name] = value
}

func (r *fakeRemote) value(path dbus.ObjectPath, iface, name string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.objects[path][iface][name]
}

func (r *fakeRemote) remove(path dbus.ObjectPath) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, path)
}

func (r *fakeRemote) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRemote) ListManaged(context.Context) ([]objects.ManagedObject, error) {
	r.mu.Lock()
	if r.listErr != nil {
		r.mu.Unlock()
		return nil, r.listErr
	}
	managed := make([]objects.ManagedObject, 0, len(r.objects))
	for path, ifaces := range r.objects {
		set := make(map[string]struct{}, len(ifaces))
		for name := range ifaces {
			set[name] = struct{}{}
		}
		managed = append(managed, objects.ManagedObject{Path: path, Interfaces: set})
	}
	hook := r.afterList
	r.mu.Unlock()

	sort.Slice(managed, func(i, j int) bool { return managed[i].Path < managed[j].Path })
	if hook != nil {
		hook()
	}
	return managed, nil
}

func (r *fakeRemote) Properties(path dbus.ObjectPath, iface string) objects.PropertyView {
	return &fakeView{remote: r, path: path, iface: iface}
}

type fakeView struct {
	remote *fakeRemote
	path   dbus.ObjectPath
	iface  string
}

func (v *fakeView) Get(_ context.Context, name string) (dbus.Variant, error) {
	r := v.remote
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("get %s.%s %s", v.iface, name, v.path))
	props, ok := r.objects[v.path][v.iface]
	if !ok {
		return dbus.Variant{}, &objects.IPCError{Op: "get property", Path: v.path, Interface: v.iface, Member: name, Err: errors.New("unknown object")}
	}
	value, ok := props[name]
	if !ok {
		return dbus.Variant{}, &objects.IPCError{Op: "get property", Path: v.path, Interface: v.iface, Member: name, Err: errors.New("unknown property")}
	}
	return dbus.MakeVariant(value), nil
}

func (v *fakeView) Set(_ context.Context, name string, value any) error {
	r := v.remote
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf("set %s.%s %s", v.iface, name, v.path))
	if err := r.failSet[v.iface+"."+name]; err != nil {
		r.mu.Unlock()
		return &objects.IPCError{Op: "set property", Path: v.path, Interface: v.iface, Member: name, Err: err}
	}
	props, ok := r.objects[v.path][v.iface]
	if !ok {
		r.mu.Unlock()
		return &objects.IPCError{Op: "set property", Path: v.path, Interface: v.iface, Member: name, Err: errors.New("unknown object")}
	}
	props[name] = value
	hook := r.onSet
	r.mu.Unlock()

	if hook != nil {
		hook(v.path, v.iface, name, value)
	}
	return nil
}

// fakeSource hands out manually driven subscriptions.
type fakeSource struct {
	mu         sync.Mutex
	added      *fakeSubscription
	removed    *fakeSubscription
	addedErr   error
	removedErr error
}

func (s *fakeSource) SubscribeAdded(context.Context) (objects.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addedErr != nil {
		return nil, s.addedErr
	}
	s.added = newFakeSubscription()
	return s.added, nil
}

func (s *fakeSource) SubscribeRemoved(context.Context) (objects.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removedErr != nil {
		return nil, s.removedErr
	}
	s.removed = newFakeSubscription()
	return s.removed, nil
}

type fakeSubscription struct {
	events   chan struct{}
	done     chan struct{}
	once     sync.Once
	lostOnce sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{events: make(chan struct{}), done: make(chan struct{})}
}

func (s *fakeSubscription) Events() <-chan struct{} { return s.events }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *fakeSubscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// fire delivers one impulse and reports whether it was consumed.
func (s *fakeSubscription) fire() bool {
	select {
	case s.events <- struct{}{}:
		return true
	case <-s.done:
		return false
	}
}

// lose simulates the connection dropping.
func (s *fakeSubscription) lose() {
	s.lostOnce.Do(func() { close(s.events) })
}
