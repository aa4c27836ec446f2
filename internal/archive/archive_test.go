package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/satfire/firewatch/internal/types"
	"go.uber.org/zap"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "alarms"), "sos", zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	return s
}

func testAlarm(obs time.Time) types.Alarm {
	return types.Alarm{
		Representative: types.Detection{
			Longitude:       16.247334,
			Latitude:        57.172443,
			Power:           5.85325146,
			TB:              339.84558105,
			Confidence:      8,
			ObservationTime: obs,
			PlatformName:    "NOAA-20",
		},
		RelatedDetection: true,
	}
}

func TestWriteAndRead(t *testing.T) {
	s := testStore(t)
	obs := time.Date(2021, 6, 19, 0, 58, 45, 700000000, time.UTC)

	entry, err := s.Write(testAlarm(obs))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if got := filepath.Base(entry.Path); got != "sos_20210619_005845_0.geojson" {
		t.Errorf("record filename = %q, want sos_20210619_005845_0.geojson", got)
	}
	if want := time.Date(2021, 6, 19, 0, 58, 45, 0, time.UTC); !entry.Time.Equal(want) {
		t.Errorf("entry time = %v, want %v", entry.Time, want)
	}
	if entry.Seq != 0 {
		t.Errorf("entry seq = %d, want 0", entry.Seq)
	}

	alarm, err := s.Read(entry)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if alarm.Representative.Power != 5.85325146 {
		t.Errorf("read power = %v, want 5.85325146", alarm.Representative.Power)
	}
	if !alarm.RelatedDetection {
		t.Error("read related_detection = false, want true")
	}
}

func TestWriteSequencePerTimestamp(t *testing.T) {
	s := testStore(t)
	ts1 := time.Date(2021, 6, 19, 0, 6, 51, 0, time.UTC)
	ts2 := time.Date(2021, 6, 19, 2, 58, 45, 0, time.UTC)

	writes := []struct {
		obs      time.Time
		wantName string
	}{
		{ts1, "sos_20210619_000651_0.geojson"},
		{ts1, "sos_20210619_000651_1.geojson"},
		{ts2, "sos_20210619_025845_0.geojson"},
		{ts1, "sos_20210619_000651_2.geojson"},
	}
	for i, w := range writes {
		entry, err := s.Write(testAlarm(w.obs))
		if err != nil {
			t.Fatalf("write %d error: %v", i, err)
		}
		if got := filepath.Base(entry.Path); got != w.wantName {
			t.Errorf("write %d filename = %q, want %q", i, got, w.wantName)
		}
	}
}

func TestWriteSkipsExistingRecords(t *testing.T) {
	s := testStore(t)
	obs := time.Date(2021, 6, 19, 0, 6, 51, 0, time.UTC)

	// leftovers from an earlier process run at the same second
	for _, name := range []string{"sos_20210619_000651_0.geojson", "sos_20210619_000651_1.geojson"} {
		if err := os.WriteFile(filepath.Join(s.Dir(), name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	entry, err := s.Write(testAlarm(obs))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if got := filepath.Base(entry.Path); got != "sos_20210619_000651_2.geojson" {
		t.Errorf("record filename = %q, want sos_20210619_000651_2.geojson", got)
	}
}

func TestBetween(t *testing.T) {
	s := testStore(t)
	times := []time.Time{
		time.Date(2021, 6, 18, 12, 48, 19, 0, time.UTC),
		time.Date(2021, 6, 19, 0, 6, 51, 0, time.UTC),
		time.Date(2021, 6, 19, 0, 6, 51, 0, time.UTC), // second record, same timestamp
		time.Date(2021, 6, 19, 2, 58, 45, 0, time.UTC),
	}
	for _, ts := range times {
		if _, err := s.Write(testAlarm(ts)); err != nil {
			t.Fatal(err)
		}
	}

	// noise the scanner must ignore
	for _, name := range []string{"README.txt", "sos_notatime_0.geojson", "other_20210619_000651_0.geojson", "sos_20210619_000651_x.geojson"} {
		if err := os.WriteFile(filepath.Join(s.Dir(), name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	start := time.Date(2021, 6, 18, 20, 58, 45, 0, time.UTC)
	end := time.Date(2021, 6, 19, 2, 58, 45, 0, time.UTC)
	entries, err := s.Between(start, end)
	if err != nil {
		t.Fatalf("Between() error: %v", err)
	}

	// both window endpoints are excluded: the 12:48 record predates the
	// window and the 02:58:45 record sits exactly on its end
	if len(entries) != 2 {
		t.Fatalf("Between() returned %d entries, want 2: %+v", len(entries), entries)
	}
	for i, e := range entries {
		if !strings.HasPrefix(filepath.Base(e.Path), "sos_20210619_000651_") {
			t.Errorf("entry %d = %s, want a 00:06:51 record", i, e.Path)
		}
		if e.Seq != i {
			t.Errorf("entry %d seq = %d, want %d", i, e.Seq, i)
		}
	}
}

func TestBetweenEmptyArchive(t *testing.T) {
	s := testStore(t)
	entries, err := s.Between(time.Date(2021, 6, 18, 0, 0, 0, 0, time.UTC), time.Date(2021, 6, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Between() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Between() on empty archive returned %d entries", len(entries))
	}
}

func TestReadCorruptRecord(t *testing.T) {
	s := testStore(t)
	path := filepath.Join(s.Dir(), "sos_20210619_000651_0.geojson")
	if err := os.WriteFile(path, []byte("not geojson"), 0o644); err != nil {
		t.Fatal(err)
	}
	entry := Entry{Path: path, Time: time.Date(2021, 6, 19, 0, 6, 51, 0, time.UTC)}
	if _, err := s.Read(entry); err == nil {
		t.Error("Read() on corrupt record succeeded, want error")
	}
}

func TestParseName(t *testing.T) {
	s := testStore(t)

	tests := []struct {
		name     string
		wantOK   bool
		wantTime time.Time
		wantSeq  int
	}{
		{
			name:     "sos_20210619_005845_0.geojson",
			wantOK:   true,
			wantTime: time.Date(2021, 6, 19, 0, 58, 45, 0, time.UTC),
			wantSeq:  0,
		},
		{
			name:     "sos_20210618_124819_12.geojson",
			wantOK:   true,
			wantTime: time.Date(2021, 6, 18, 12, 48, 19, 0, time.UTC),
			wantSeq:  12,
		},
		{name: "sos_20210619_005845_0.json", wantOK: false},
		{name: "alarm_20210619_005845_0.geojson", wantOK: false},
		{name: "sos_20210619_005845.geojson", wantOK: false},
		{name: "sos_20211319_005845_0.geojson", wantOK: false},
		{name: "sos_20210619_005845_-1.geojson", wantOK: false},
		{name: "sos.geojson", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotTime, gotSeq, ok := s.parseName(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("parseName(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !gotTime.Equal(tt.wantTime) {
				t.Errorf("parseName(%q) time = %v, want %v", tt.name, gotTime, tt.wantTime)
			}
			if gotSeq != tt.wantSeq {
				t.Errorf("parseName(%q) seq = %d, want %d", tt.name, gotSeq, tt.wantSeq)
			}
		})
	}
}
