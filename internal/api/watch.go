package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WatchPath is the route of the change feed.
const WatchPath = "/api/ws"

// WatchURL builds the change feed URL for an API bind address. Wildcard
// hosts are replaced by the loopback address.
func WatchURL(bind string) (string, error) {
	hostPort, err := dialAddress(bind)
	if err != nil {
		return "", err
	}
	return "ws://" + hostPort + WatchPath, nil
}

// BaseURL returns the http:// root for an API bind address, with wildcard
// hosts mapped to loopback. Unparseable binds are used verbatim.
func BaseURL(bind string) string {
	hostPort, err := dialAddress(bind)
	if err != nil {
		return "http://" + strings.TrimSpace(bind)
	}
	return "http://" + hostPort
}

func dialAddress(bind string) (string, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "", fmt.Errorf("parse api bind %q: %w", bind, err)
	}
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::":
		host = "::1"
	}
	return net.JoinHostPort(host, port), nil
}

// Watch follows the change feed at url and calls fn once per event. It
// returns nil when ctx ends or the server closes the feed normally, and the
// first error from fn otherwise.
func Watch(ctx context.Context, url string, fn func(ChangeEvent) error) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseGoingAway {
				return fmt.Errorf("%w: %s", ErrFeedLost, closeReason(closeErr))
			}
			return fmt.Errorf("read change feed: %w", err)
		}
		var event ChangeEvent
		if err := json.Unmarshal(message, &event); err != nil {
			return fmt.Errorf("decode change event: %w", err)
		}
		if err := fn(event); err != nil {
			if errors.Is(err, ErrStopWatching) {
				return nil
			}
			return err
		}
	}
}

// ErrFeedLost reports that the daemon ended the change feed because it lost
// its source, usually the installer bus.
var ErrFeedLost = errors.New("change feed lost")

func closeReason(err *websocket.CloseError) string {
	if err.Text == "" {
		return "daemon went away"
	}
	return err.Text
}

// ErrStopWatching can be returned by a Watch callback to end the watch
// without an error.
var ErrStopWatching = errors.New("stop watching")
