package history

import (
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/openhydro/aquasim/internal/simtypes"
)

func openTestSink(t *testing.T) *SQLiteSink {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := openSQLiteSink(path, "sqlite")
	if err != nil {
		t.Fatalf("openSQLiteSink: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSinkRoundTripsTicks(t *testing.T) {
	s := openTestSink(t)

	ticks := []TickResult{
		{Tick: 0, Time: 0, States: map[string]simtypes.Scalars{"res1": {"volume": 1000, "water_level": 10}}},
		{Tick: 1, Time: 1, States: map[string]simtypes.Scalars{"res1": {"volume": 995, "water_level": 9.95}}},
	}
	if err := s.WriteTicks(ticks); err != nil {
		t.Fatalf("WriteTicks: %v", err)
	}

	got, err := s.ReadTicks()
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[1].States["res1"].Get("volume") != 995 {
		t.Fatalf("tick 1 volume = %v, want 995", got[1].States["res1"].Get("volume"))
	}
}

func TestSQLiteSinkInsertOrReplaceOverwritesSameTick(t *testing.T) {
	s := openTestSink(t)

	if err := s.WriteTicks([]TickResult{{Tick: 0, Time: 0, States: map[string]simtypes.Scalars{"a": {"x": 1}}}}); err != nil {
		t.Fatalf("WriteTicks: %v", err)
	}
	if err := s.WriteTicks([]TickResult{{Tick: 0, Time: 0, States: map[string]simtypes.Scalars{"a": {"x": 2}}}}); err != nil {
		t.Fatalf("WriteTicks: %v", err)
	}

	got, err := s.ReadTicks()
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].States["a"].Get("x") != 2 {
		t.Fatalf("x = %v, want 2 (replaced)", got[0].States["a"].Get("x"))
	}
}

func TestNewSQLiteSinkCreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	os.MkdirAll(filepath.Dir(path), 0700)
	s, err := openSQLiteSink(path, "sqlite")
	if err != nil {
		t.Fatalf("openSQLiteSink: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file to exist: %v", err)
	}
}
