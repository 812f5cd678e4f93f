// Package activitylog writes server log records into one file per day
package activitylog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/hackstorm/internal/dependencies/clock"
)

const (
	dayLayout = "2006-01-02"
	fileExt   = ".log"
)

// Config holds activity log settings
type Config struct {
	Dir string

	// RetentionDays is how many daily files are kept, today included.
	// Zero keeps everything.
	RetentionDays int
}

// DefaultConfig returns defaults rooted at dataDir
func DefaultConfig(dataDir string) Config {
	return Config{
		Dir:           filepath.Join(dataDir, "logs"),
		RetentionDays: 14,
	}
}

// Writer appends to <dir>/YYYY-MM-DD.log, switching files when the local
// date changes and pruning files older than the retention window
type Writer struct {
	cfg   Config
	clock clock.Clock

	mu   sync.Mutex
	day  string
	file *os.File
}

// New creates the log directory and opens today's file
func New(cfg Config, clock clock.Clock) (*Writer, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	w := &Writer{cfg: cfg, clock: clock}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotate(clock.Now().Format(dayLayout)); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends p to the current day's file
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if day := w.clock.Now().Format(dayLayout); day != w.day {
		if err := w.rotate(day); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

// rotate switches to the file for day. Callers hold mu.
func (w *Writer) rotate(day string) error {
	f, err := os.OpenFile(filepath.Join(w.cfg.Dir, day+fileExt), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	w.file = f
	w.day = day
	w.prune(day)
	return nil
}

// prune removes daily files that fell out of the retention window.
// Failures are ignored; a stale file is harmless.
func (w *Writer) prune(today string) {
	if w.cfg.RetentionDays <= 0 {
		return
	}
	t, err := time.Parse(dayLayout, today)
	if err != nil {
		return
	}
	cutoff := t.AddDate(0, 0, -(w.cfg.RetentionDays - 1)).Format(dayLayout)

	for _, day := range w.days() {
		if day < cutoff {
			_ = os.Remove(filepath.Join(w.cfg.Dir, day+fileExt))
		}
	}
}

// days lists the dates that have a log file, oldest first
func (w *Writer) days() []string {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		day := strings.TrimSuffix(name, fileExt)
		if _, err := time.Parse(dayLayout, day); err != nil {
			continue
		}
		out = append(out, day)
	}
	sort.Strings(out)
	return out
}

// Close closes the current file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
