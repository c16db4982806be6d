package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// Snapshot is a batch of lines and the byte offset just past the last one.
type Snapshot struct {
	Lines  []string
	Offset int64
}

// Last returns up to n trailing lines of path. A missing file yields an empty
// snapshot.
func Last(path string, n int) (Snapshot, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return Snapshot{}, err
	}
	defer file.Close()

	if n <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return Snapshot{}, fmt.Errorf("seek log file: %w", err)
		}
		return Snapshot{Offset: end}, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	ring := make([]string, n)
	count, next := 0, 0
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % n
		count++
	}
	if err := scanner.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return Snapshot{}, fmt.Errorf("seek log file: %w", err)
	}

	if count < n {
		return Snapshot{Lines: ring[:count], Offset: end}, nil
	}
	lines := make([]string, 0, n)
	for i := range n {
		lines = append(lines, ring[(next+i)%n])
	}
	return Snapshot{Lines: lines, Offset: end}, nil
}

// Since returns the complete lines written after offset. A trailing partial
// line is left for the next call. When the file is shorter than offset it was
// truncated or rotated, and reading restarts at zero.
func Since(path string, offset int64) (Snapshot, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return Snapshot{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Snapshot{Offset: offset}, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Snapshot{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	snap := Snapshot{Offset: offset}
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return snap, nil
			}
			return snap, fmt.Errorf("read log file: %w", err)
		}
		snap.Offset += int64(len(line))
		snap.Lines = append(snap.Lines, trimNewline(line))
	}
}

// Follow polls path every interval starting at offset and hands each
// non-empty batch to emit. It returns nil when ctx ends and stops early on
// the first emit or read error.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func([]string) error) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := Since(path, offset)
		if err != nil {
			return err
		}
		offset = snap.Offset
		if len(snap.Lines) > 0 {
			if err := emit(snap.Lines); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func open(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}

func trimNewline(line string) string {
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
