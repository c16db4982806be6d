package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"qbridge/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qbridge.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestLast(t *testing.T) {
	tests := []struct {
		name    string
		content string
		n       int
		want    []string
	}{
		{name: "fewer lines than limit", content: "a\nb\n", n: 5, want: []string{"a", "b"}},
		{name: "exact tail", content: "a\nb\nc\n", n: 2, want: []string{"b", "c"}},
		{name: "wrapped ring", content: "a\nb\nc\nd\ne\n", n: 3, want: []string{"c", "d", "e"}},
		{name: "zero limit", content: "a\n", n: 0, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLog(t, tt.content)
			snap, err := logs.Last(path, tt.n)
			if err != nil {
				t.Fatalf("Last: %v", err)
			}
			if len(snap.Lines) != len(tt.want) || (len(tt.want) > 0 && !reflect.DeepEqual(snap.Lines, tt.want)) {
				t.Fatalf("lines = %#v, want %#v", snap.Lines, tt.want)
			}
			if snap.Offset != int64(len(tt.content)) {
				t.Fatalf("offset = %d, want %d", snap.Offset, len(tt.content))
			}
		})
	}
}

func TestLastMissingFile(t *testing.T) {
	snap, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(snap.Lines) != 0 || snap.Offset != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestLastRejectsDirectory(t *testing.T) {
	if _, err := logs.Last(t.TempDir(), 1); err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestSinceHoldsPartialLine(t *testing.T) {
	path := writeLog(t, "first\nsec")
	snap, err := logs.Since(path, 0)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if !reflect.DeepEqual(snap.Lines, []string{"first"}) || snap.Offset != 6 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	appendLog(t, path, "ond\r\n")
	snap, err = logs.Since(path, snap.Offset)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if !reflect.DeepEqual(snap.Lines, []string{"second"}) {
		t.Fatalf("unexpected lines %#v", snap.Lines)
	}
}

func TestSinceRestartsAfterTruncation(t *testing.T) {
	path := writeLog(t, "short\n")
	snap, err := logs.Since(path, 1000)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if !reflect.DeepEqual(snap.Lines, []string{"short"}) {
		t.Fatalf("expected re-read from start, got %#v", snap.Lines)
	}
}

func TestFollowDeliversAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	initial, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, initial.Offset, 20*time.Millisecond, func(lines []string) error {
			got <- lines
			return nil
		})
	}()

	appendLog(t, path, "later\n")
	select {
	case lines := <-got:
		if !reflect.DeepEqual(lines, []string{"later"}) {
			t.Fatalf("unexpected lines %#v", lines)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not deliver appended line")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop after cancel")
	}
}

func TestFollowStopsOnEmitError(t *testing.T) {
	path := writeLog(t, "one\n")
	wantErr := errors.New("closed pipe")
	err := logs.Follow(context.Background(), path, 0, 10*time.Millisecond, func([]string) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected emit error, got %v", err)
	}
}
