package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWatchURL(t *testing.T) {
	tests := []struct {
		bind    string
		want    string
		wantErr bool
	}{
		{bind: "127.0.0.1:3000", want: "ws://127.0.0.1:3000/api/ws"},
		{bind: "0.0.0.0:8080", want: "ws://127.0.0.1:8080/api/ws"},
		{bind: ":9000", want: "ws://127.0.0.1:9000/api/ws"},
		{bind: "[::]:9000", want: "ws://[::1]:9000/api/ws"},
		{bind: "localhost", wantErr: true},
	}
	for _, tt := range tests {
		got, err := WatchURL(tt.bind)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("WatchURL(%q) expected error", tt.bind)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("WatchURL(%q) = %q, %v; want %q", tt.bind, got, err, tt.want)
		}
	}
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:3000": "http://127.0.0.1:3000",
		"0.0.0.0:3000":   "http://127.0.0.1:3000",
		"[::]:3000":      "http://[::1]:3000",
		"localhost":      "http://localhost",
	}
	for bind, want := range tests {
		if got := BaseURL(bind); got != want {
			t.Fatalf("BaseURL(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestQuestionsErrorMessage(t *testing.T) {
	err := &QuestionsError{Err: errors.New("get property /q/1: unknown object")}
	if err.Error() != "Question service error: get property /q/1: unknown object" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, err.Err) {
		t.Fatal("expected cause to unwrap")
	}
}

func TestWatchDeliversEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for range 2 {
			if err := conn.WriteJSON(ChangeEvent{Type: "QuestionsChanged"}); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + WatchPath
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var received []ChangeEvent
	err := Watch(ctx, url, func(ev ChangeEvent) error {
		received = append(received, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(received) != 2 || received[0].Type != "QuestionsChanged" {
		t.Fatalf("unexpected events %+v", received)
	}
}

func TestWatchStopsOnCallbackSentinel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(ChangeEvent{Type: "QuestionsChanged"})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + WatchPath
	calls := 0
	err := Watch(context.Background(), url, func(ChangeEvent) error {
		calls++
		return ErrStopWatching
	})
	if err != nil || calls != 1 {
		t.Fatalf("Watch = %v after %d calls", err, calls)
	}
}

func TestWatchEndings(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		reason  string
		wantErr string
	}{
		{name: "normal closure", code: websocket.CloseNormalClosure},
		{name: "source lost", code: websocket.CloseGoingAway, reason: "change source closed", wantErr: "change feed lost: change source closed"},
		{name: "going away without reason", code: websocket.CloseGoingAway, wantErr: "change feed lost: daemon went away"},
		{name: "server error", code: websocket.CloseInternalServerErr, reason: "boom", wantErr: "read change feed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upgrader := websocket.Upgrader{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				conn, err := upgrader.Upgrade(w, r, nil)
				if err != nil {
					return
				}
				defer conn.Close()
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(tt.code, tt.reason))
			}))
			defer srv.Close()

			url := "ws" + strings.TrimPrefix(srv.URL, "http") + WatchPath
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := Watch(ctx, url, func(ChangeEvent) error { return nil })
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Watch: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if tt.code == websocket.CloseGoingAway && !errors.Is(err, ErrFeedLost) {
				t.Fatalf("expected ErrFeedLost, got %v", err)
			}
		})
	}
}
