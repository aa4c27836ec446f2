package alloc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/satfire/firewatch/internal/types"
	"go.uber.org/zap"
)

func newTestAllocator(t *testing.T, path string) *Allocator {
	t.Helper()
	a, err := New(path, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return a
}

func TestAssignFreshDay(t *testing.T) {
	a := newTestAllocator(t, filepath.Join(t.TempDir(), "fire_detection_id_cache.txt"))

	now := time.Date(2023, 6, 16, 11, 55, 0, 0, time.UTC)
	batch := make([]types.Detection, 4)
	a.Assign(batch, now)

	want := []string{"20230616-1", "20230616-2", "20230616-3", "20230616-4"}
	for i, d := range batch {
		if d.ID != want[i] {
			t.Errorf("detection %d id = %q, want %q", i, d.ID, want[i])
		}
	}

	day, counter := a.State()
	if counter != 4 {
		t.Errorf("counter = %d, want 4", counter)
	}
	if want := time.Date(2023, 6, 16, 0, 0, 0, 0, time.UTC); !day.Equal(want) {
		t.Errorf("state day = %v, want %v", day, want)
	}
}

func TestDayRollover(t *testing.T) {
	a := newTestAllocator(t, "")

	day1 := time.Date(2023, 6, 16, 11, 55, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		a.Next(day1)
	}

	day2 := time.Date(2023, 6, 17, 9, 0, 0, 0, time.UTC)
	if got := a.Next(day2); got != "20230617-1" {
		t.Errorf("first id after rollover = %q, want 20230617-1", got)
	}
	if got := a.Next(day2.Add(time.Minute)); got != "20230617-2" {
		t.Errorf("second id after rollover = %q, want 20230617-2", got)
	}
}

func TestSameDayKeepsCounting(t *testing.T) {
	a := newTestAllocator(t, "")

	morning := time.Date(2023, 6, 16, 0, 30, 0, 0, time.UTC)
	evening := time.Date(2023, 6, 16, 23, 59, 0, 0, time.UTC)
	if got := a.Next(morning); got != "20230616-1" {
		t.Errorf("morning id = %q, want 20230616-1", got)
	}
	if got := a.Next(evening); got != "20230616-2" {
		t.Errorf("evening id = %q, want 20230616-2", got)
	}
}

func TestExistingIDsKept(t *testing.T) {
	a := newTestAllocator(t, "")

	now := time.Date(2023, 6, 16, 11, 55, 0, 0, time.UTC)
	batch := []types.Detection{
		{ID: "20230615-7"},
		{},
		{ID: "20230616-1"},
		{},
	}
	a.Assign(batch, now)

	if batch[0].ID != "20230615-7" {
		t.Errorf("pre-stamped id overwritten: %q", batch[0].ID)
	}
	if batch[1].ID != "20230616-1" {
		t.Errorf("first fresh id = %q, want 20230616-1", batch[1].ID)
	}
	if batch[2].ID != "20230616-1" {
		t.Errorf("pre-stamped id overwritten: %q", batch[2].ID)
	}
	if batch[3].ID != "20230616-2" {
		t.Errorf("second fresh id = %q, want 20230616-2", batch[3].ID)
	}
}

func TestFlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fire_detection_id_cache.txt")
	a := newTestAllocator(t, path)

	a.Next(time.Date(2023, 6, 17, 11, 55, 0, 0, time.UTC))
	if err := a.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "20230617-1" {
		t.Errorf("cache file content = %q, want 20230617-1", string(data))
	}

	reloaded := newTestAllocator(t, path)
	day, counter := reloaded.State()
	if want := time.Date(2023, 6, 17, 0, 0, 0, 0, time.UTC); !day.Equal(want) {
		t.Errorf("reloaded day = %v, want %v", day, want)
	}
	if counter != 1 {
		t.Errorf("reloaded counter = %d, want 1", counter)
	}

	if got := reloaded.Next(time.Date(2023, 6, 17, 12, 0, 0, 0, time.UTC)); got != "20230617-2" {
		t.Errorf("id after reload = %q, want 20230617-2", got)
	}
}

func TestReloadAcrossDayBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fire_detection_id_cache.txt")
	if err := os.WriteFile(path, []byte("20230616-42"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := newTestAllocator(t, path)
	if got := a.Next(time.Date(2023, 6, 17, 0, 5, 0, 0, time.UTC)); got != "20230617-1" {
		t.Errorf("id after day-boundary reload = %q, want 20230617-1", got)
	}
}

func TestMalformedCacheFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no separator", "20230617"},
		{"garbage date", "2023x617-1"},
		{"garbage counter", "20230617-one"},
		{"negative counter", "20230617--4"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cache.txt")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := New(path, zap.NewNop().Sugar()); err == nil {
				t.Errorf("New() accepted malformed cache %q", tt.content)
			}
		})
	}
}

func TestPersistenceDisabled(t *testing.T) {
	a := newTestAllocator(t, "")
	if got := a.Next(time.Date(2023, 6, 16, 11, 55, 0, 0, time.UTC)); got != "20230616-1" {
		t.Errorf("Next() = %q, want 20230616-1", got)
	}
	if err := a.Flush(); err != nil {
		t.Errorf("Flush() with persistence disabled returned %v", err)
	}
}

func TestFlushFailureReported(t *testing.T) {
	a := newTestAllocator(t, filepath.Join(t.TempDir(), "missing", "deeper", "cache.txt"))
	a.Next(time.Date(2023, 6, 16, 11, 55, 0, 0, time.UTC))
	if err := a.Flush(); err == nil {
		t.Error("Flush() into a missing directory succeeded, want error")
	}
}
