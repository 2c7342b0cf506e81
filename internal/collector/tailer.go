package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	scanWindow   = 768
	idleInterval = 125 * time.Millisecond
)

// Tailer follows the game log from its current end. It only hands out
// complete lines and restarts from offset 0 when the file is truncated.
type Tailer struct {
	path     string
	file     *os.File
	position int64
	pending  []string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// OpenTailer opens the log and positions it at end of file. A missing log
// is fatal for the caller.
func OpenTailer(path string, logger *slog.Logger) (*Tailer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	pos, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("seeking to end: %w", err)
	}

	t := &Tailer{path: path, file: file, position: pos, logger: logger}

	// Without a watcher the idle sleep alone drives polling.
	if w, err := fsnotify.NewWatcher(); err == nil {
		if err := w.Add(path); err == nil {
			t.watcher = w
		} else {
			w.Close()
		}
	}
	return t, nil
}

// Close releases the file and the watcher.
func (t *Tailer) Close() error {
	if t.watcher != nil {
		t.watcher.Close()
	}
	return t.file.Close()
}

// LastInitGame scans backward from the current end in fixed windows and
// returns the payload of the most recent InitGame line.
func (t *Tailer) LastInitGame() (string, bool, error) {
	end := t.position
	var carry []byte

	for end > 0 {
		size := int64(scanWindow)
		if size > end {
			size = end
		}
		end -= size

		buf := make([]byte, size)
		if _, err := t.file.ReadAt(buf, end); err != nil && err != io.EOF {
			return "", false, fmt.Errorf("reading block: %w", err)
		}
		content := append(buf, carry...)

		// The first fragment may continue in the previous window.
		first := bytes.IndexByte(content, '\n')
		if first < 0 {
			carry = content
			continue
		}
		lines := strings.Split(string(content[first+1:]), "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if payload, ok := initGamePayload(lines[i]); ok {
				return payload, true, nil
			}
		}
		carry = content[:first]
	}

	if payload, ok := initGamePayload(string(carry)); ok {
		return payload, true, nil
	}
	return "", false, nil
}

func initGamePayload(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[1] != "InitGame:" {
		return "", false
	}
	_, payload, _ := strings.Cut(line, "InitGame:")
	return strings.TrimSpace(payload), true
}

// Next returns the next complete line, or false when none is available.
func (t *Tailer) Next() (string, bool, error) {
	if len(t.pending) == 0 {
		if err := t.fill(); err != nil {
			return "", false, err
		}
	}
	if len(t.pending) == 0 {
		return "", false, nil
	}
	line := t.pending[0]
	t.pending = t.pending[1:]
	return line, true, nil
}

// fill reads everything appended since the last call. A trailing partial
// line stays in the file until its newline arrives.
func (t *Tailer) fill() error {
	stat, err := t.file.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	// Handle copytruncate: file size smaller than position
	if stat.Size() < t.position {
		t.position = 0
	}
	if stat.Size() == t.position {
		return nil
	}

	data, err := io.ReadAll(io.NewSectionReader(t.file, t.position, stat.Size()-t.position))
	if err != nil {
		return fmt.Errorf("reading log: %w", err)
	}
	last := bytes.LastIndexByte(data, '\n')
	if last < 0 {
		return nil
	}
	t.position += int64(last + 1)

	for _, line := range strings.Split(string(data[:last]), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			t.pending = append(t.pending, line)
		}
	}
	return nil
}

// Wait blocks until the log changes, the idle interval passes or ctx ends.
func (t *Tailer) Wait(ctx context.Context) {
	timer := time.NewTimer(idleInterval)
	defer timer.Stop()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if t.watcher != nil {
		events, errs = t.watcher.Events, t.watcher.Errors
	}
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-events:
	case err := <-errs:
		t.logger.Debug("log watcher error", "path", t.path, "err", err)
	}
}
