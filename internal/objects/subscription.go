package objects

import (
	"context"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"

	"qbridge/internal/logging"
)

// Subscription is an infinite, non-restartable impulse source. Events is
// closed after Close, after the subscribing context ends, or when the
// underlying connection is lost.
type Subscription interface {
	Events() <-chan struct{}
	Close() error
}

type signalSubscription struct {
	conn    busConn
	options []dbus.MatchOption
	raw     chan *dbus.Signal
	events  chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
	stopped   sync.WaitGroup
}

func (d *Directory) subscribe(ctx context.Context, member string) (Subscription, error) {
	// Signals carry the owner's unique name rather than the well-known one.
	owner, err := d.nameOwner(ctx)
	if err != nil {
		return nil, &ConnectionError{Op: "subscribe " + member, Target: d.service, Err: err}
	}
	options := []dbus.MatchOption{
		dbus.WithMatchSender(d.service),
		dbus.WithMatchObjectPath(d.root),
		dbus.WithMatchInterface(objectManagerInterface),
		dbus.WithMatchMember(member),
	}
	if err := d.conn.AddMatchSignalContext(ctx, options...); err != nil {
		return nil, &ConnectionError{Op: "subscribe " + member, Target: string(d.root), Err: err}
	}

	sub := &signalSubscription{
		conn:    d.conn,
		options: options,
		raw:     make(chan *dbus.Signal, 16),
		events:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	d.conn.Signal(sub.raw)

	sub.stopped.Add(1)
	go func() {
		defer sub.stopped.Done()
		forwardSignals(sub.raw, sub.done, sub.events, signalFilter{
			senders: []string{d.service, owner},
			path:    d.root,
			name:    objectManagerInterface + "." + member,
		})
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	d.logger.Debug("signal subscription opened",
		logging.String(logging.FieldEventType, "signal_subscribed"),
		logging.String(logging.FieldObjectPath, string(d.root)),
		logging.String("member", member),
		logging.String("owner", owner),
	)
	return sub, nil
}

func (d *Directory) nameOwner(ctx context.Context) (string, error) {
	var owner string
	call := d.conn.Object(busDaemonName, busDaemonPath).CallWithContext(ctx, getNameOwner, 0, d.service)
	if err := call.Store(&owner); err != nil {
		return "", err
	}
	return owner, nil
}

// signalFilter narrows the connection-wide signal channel to one member of
// the root's object manager emitted by the service.
type signalFilter struct {
	senders []string
	path    dbus.ObjectPath
	name    string
}

func (f signalFilter) match(sig *dbus.Signal) bool {
	if sig == nil || sig.Path != f.path || sig.Name != f.name {
		return false
	}
	return slices.Contains(f.senders, sig.Sender)
}

func (s *signalSubscription) Events() <-chan struct{} {
	return s.events
}

// Close removes the match rule and signal channel. It is safe to call more
// than once and from multiple goroutines.
func (s *signalSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.stopped.Wait()

		// Keep draining while the connection detaches the channel so a
		// pending delivery cannot block RemoveSignal.
		detached := make(chan struct{})
		go func() {
			for {
				select {
				case _, ok := <-s.raw:
					if !ok {
						return
					}
				case <-detached:
					return
				}
			}
		}()
		s.conn.RemoveSignal(s.raw)
		close(detached)

		s.closeErr = s.conn.RemoveMatchSignalContext(context.Background(), s.options...)
	})
	return s.closeErr
}

// forwardSignals turns matching signals on raw into impulses on events. It
// returns, closing events, when done is closed or raw is closed by the
// connection shutting down.
func forwardSignals(raw <-chan *dbus.Signal, done <-chan struct{}, events chan<- struct{}, filter signalFilter) {
	defer close(events)
	for {
		select {
		case <-done:
			return
		case sig, ok := <-raw:
			if !ok {
				return
			}
			if !filter.match(sig) {
				continue
			}
			select {
			case events <- struct{}{}:
			case <-done:
				return
			}
		}
	}
}
