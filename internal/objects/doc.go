// Package objects wraps a D-Bus connection scoped to one ObjectManager root.
//
// A Directory enumerates the managed children of the root together with the
// interfaces each child advertises, hands out fresh uncached property views,
// and subscribes to the manager's InterfacesAdded/InterfacesRemoved signals as
// payload-free impulse streams. Setup failures surface as *ConnectionError and
// per-call failures as *IPCError so callers can tell them apart with errors.As.
package objects
