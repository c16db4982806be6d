package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"qbridge/internal/api"
	"qbridge/internal/logging"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	// Payload-free feed on an unauthenticated API; any origin may follow it.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWatch pushes one {"type":"QuestionsChanged"} frame per remote add or
// remove signal until the client leaves, the daemon stops, or the bus
// connection is lost.
func (s *apiServer) handleWatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := s.daemon.Changes(ctx)
	if err != nil {
		s.logger.Warn("change feed unavailable",
			logging.String(logging.FieldEventType, "change_feed_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the installer bus connection"),
			logging.String(logging.FieldImpact, "watch clients cannot follow question changes"),
		)
		s.writeError(w, http.StatusInternalServerError, (&api.QuestionsError{Err: err}).Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	s.daemon.watcherConnected()
	defer s.daemon.watcherDisconnected()
	log := logging.WithContext(r.Context(), s.logger)
	log.Debug("watcher connected", logging.String(logging.FieldEventType, "watcher_connected"))

	// Clients never send data. Reading detects departure and processes
	// control frames.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeFeed(conn, websocket.CloseNormalClosure, "")
			log.Debug("watcher disconnected", logging.String(logging.FieldEventType, "watcher_disconnected"))
			return
		case event, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					s.closeFeed(conn, websocket.CloseNormalClosure, "")
					return
				}
				s.closeFeed(conn, websocket.CloseGoingAway, "change source closed")
				log.Debug("change feed ended", logging.String(logging.FieldEventType, "watcher_feed_ended"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				log.Debug("watcher write failed", logging.Error(err))
				return
			}
			s.daemon.metrics.RecordChangeEvent()
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *apiServer) closeFeed(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}
