// Package archive persists accepted alarms as one GeoJSON file per record
// and answers time-window queries over the archive directory. Filenames
// encode the alarm's observation time and a per-timestamp sequence id, so
// records can be ordered without opening them.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/satfire/firewatch/internal/detections"
	"github.com/satfire/firewatch/internal/types"
	"go.uber.org/zap"
)

// DefaultPrefix is the filename prefix used when none is configured.
const DefaultPrefix = "sos"

const nameTimeLayout = "20060102_150405"

// Entry is one archive record located by filename only; Time and Seq are
// decoded from the name without reading the file.
type Entry struct {
	Path string
	Time time.Time
	Seq  int
}

// Store is the append-only alarm archive. It is not safe for concurrent
// writers; the engine loop is the only writer in a deployment.
type Store struct {
	dir     string
	prefix  string
	logger  *zap.SugaredLogger
	written map[string]int // encoded timestamp -> next sequence id, this run
}

// NewStore opens (creating if needed) the archive directory.
func NewStore(dir, prefix string, logger *zap.SugaredLogger) (*Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory %s: %w", dir, err)
	}
	return &Store{
		dir:     dir,
		prefix:  prefix,
		logger:  logger,
		written: make(map[string]int),
	}, nil
}

// Dir returns the archive directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Write persists one accepted alarm. Sequence ids start at 0 for each
// distinct encoded timestamp and increment per write at that timestamp
// within this process's run; filenames left by earlier runs at the same
// second are skipped over so records never collide.
func (s *Store) Write(a types.Alarm) (Entry, error) {
	enc := a.Representative.ObservationTime.UTC().Format(nameTimeLayout)

	seq := s.written[enc]
	var path string
	for {
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%s_%d.geojson", s.prefix, enc, seq))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		s.logger.Warnf("archive record %s already exists, advancing sequence id", path)
		seq++
	}

	data, err := json.Marshal(detections.AlarmToFeature(a))
	if err != nil {
		return Entry{}, fmt.Errorf("encoding alarm record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Entry{}, fmt.Errorf("writing alarm record %s: %w", path, err)
	}
	s.written[enc] = seq + 1

	t, _ := time.ParseInLocation(nameTimeLayout, enc, time.UTC)
	return Entry{Path: path, Time: t, Seq: seq}, nil
}

// Between lists records whose encoded observation time falls strictly
// between start and end, ascending by time then sequence id. Filenames that
// do not match the record pattern are ignored.
func (s *Store) Between(start, end time.Time) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing archive directory %s: %w", s.dir, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		t, seq, ok := s.parseName(de.Name())
		if !ok {
			continue
		}
		if t.After(start) && t.Before(end) {
			entries = append(entries, Entry{
				Path: filepath.Join(s.dir, de.Name()),
				Time: t,
				Seq:  seq,
			})
		}
	}

	// deterministic scan order regardless of directory listing order
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Time.Equal(entries[j].Time) {
			return entries[i].Time.Before(entries[j].Time)
		}
		return entries[i].Seq < entries[j].Seq
	})
	return entries, nil
}

// Read decodes the alarm stored in one record.
func (s *Store) Read(e Entry) (types.Alarm, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return types.Alarm{}, fmt.Errorf("reading archive record %s: %w", e.Path, err)
	}
	a, err := detections.UnmarshalAlarm(data)
	if err != nil {
		return types.Alarm{}, fmt.Errorf("archive record %s: %w", e.Path, err)
	}
	return a, nil
}

// parseName decodes "<prefix>_YYYYMMDD_HHMMSS_<seq>.geojson".
func (s *Store) parseName(name string) (time.Time, int, bool) {
	rest, found := strings.CutPrefix(name, s.prefix+"_")
	if !found {
		return time.Time{}, 0, false
	}
	rest, found = strings.CutSuffix(rest, ".geojson")
	if !found {
		return time.Time{}, 0, false
	}

	i := strings.LastIndexByte(rest, '_')
	if i < 0 {
		return time.Time{}, 0, false
	}
	seq, err := strconv.Atoi(rest[i+1:])
	if err != nil || seq < 0 {
		return time.Time{}, 0, false
	}
	t, err := time.ParseInLocation(nameTimeLayout, rest[:i], time.UTC)
	if err != nil {
		return time.Time{}, 0, false
	}
	return t, seq, true
}
