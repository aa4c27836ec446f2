// Package alloc mints day-scoped detection identifiers that stay unique
// across process restarts within one UTC day.
package alloc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/satfire/firewatch/internal/types"
	"go.uber.org/zap"
)

const dayLayout = "20060102"

// Allocator assigns ids of the form "YYYYMMDD-<counter>" to incoming
// detections. The counter resets when the UTC calendar day changes or more
// than 24 hours have passed since the last reset, and is persisted to a
// small cache file so a restart resumes instead of reissuing ids.
//
// Not safe for concurrent use; the engine loop is the only caller.
type Allocator struct {
	path    string
	logger  *zap.SugaredLogger
	stamp   time.Time // moment of the last counter reset, UTC
	counter int
}

// New creates an allocator, loading persisted state from path when the file
// exists. An empty path disables persistence. A malformed state file is a
// startup error.
func New(path string, logger *zap.SugaredLogger) (*Allocator, error) {
	a := &Allocator{
		path:   path,
		logger: logger,
		stamp:  time.Now().UTC(),
	}
	if path == "" {
		logger.Warn("no id cache file configured; detection ids will not survive restarts")
		return a, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading id cache file %s: %w", path, err)
	}

	stamp, counter, err := parseState(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("id cache file %s: %w", path, err)
	}
	a.stamp = stamp
	a.counter = counter
	return a, nil
}

// Next mints the id for one detection arriving at now.
func (a *Allocator) Next(now time.Time) string {
	now = now.UTC()
	if now.Format(dayLayout) != a.stamp.Format(dayLayout) || now.Sub(a.stamp) > 24*time.Hour {
		a.stamp = now
		a.counter = 0
	}
	a.counter++
	return fmt.Sprintf("%s-%d", a.stamp.Format(dayLayout), a.counter)
}

// Assign stamps every id-less detection in the batch, in order. Detections
// already carrying an id keep it.
func (a *Allocator) Assign(ds []types.Detection, now time.Time) {
	for i := range ds {
		if ds[i].ID == "" {
			ds[i].ID = a.Next(now)
		}
	}
}

// Flush persists the allocator state. Callers flush after each batch and on
// shutdown; a flush failure leaves in-memory state authoritative for the
// rest of the run.
func (a *Allocator) Flush() error {
	if a.path == "" {
		return nil
	}
	content := fmt.Sprintf("%s-%d", a.stamp.Format(dayLayout), a.counter)
	if err := os.WriteFile(a.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("persisting id cache to %s: %w", a.path, err)
	}
	return nil
}

// State returns the current id day and counter.
func (a *Allocator) State() (day time.Time, counter int) {
	day, _ = time.ParseInLocation(dayLayout, a.stamp.Format(dayLayout), time.UTC)
	return day, a.counter
}

// parseState decodes "YYYYMMDD-<counter>".
func parseState(s string) (time.Time, int, error) {
	datePart, counterPart, found := strings.Cut(s, "-")
	if !found {
		return time.Time{}, 0, fmt.Errorf("malformed state %q", s)
	}
	stamp, err := time.ParseInLocation(dayLayout, datePart, time.UTC)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("malformed state date %q: %w", datePart, err)
	}
	counter, err := strconv.Atoi(counterPart)
	if err != nil || counter < 0 {
		return time.Time{}, 0, fmt.Errorf("malformed state counter %q", counterPart)
	}
	return stamp, counter, nil
}
