package runstore

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewDB() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationsApply(t *testing.T) {
	db := newTestDB(t)
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion() error: %v", err)
	}
	if dirty {
		t.Error("schema left dirty after NewDB")
	}
	if version == 0 {
		t.Error("no migrations applied")
	}
}

func TestInsertAndListRuns(t *testing.T) {
	db := newTestDB(t)

	run := &Run{
		Epsilon:         0.5,
		BaseCount:       100,
		GenCount:        90,
		ExtraBaseCount:  12,
		ExtraGenCount:   5,
		ExtraGenPercent: 5.0,
		ArtifactDir:     "/tmp/artifacts/run-a",
	}
	if err := db.InsertRun(run); err != nil {
		t.Fatalf("InsertRun() error: %v", err)
	}
	if run.RunID == "" {
		t.Error("InsertRun() did not assign a run ID")
	}
	if run.CreatedAtNs == 0 {
		t.Error("InsertRun() did not stamp creation time")
	}

	second := &Run{ArtifactDir: "/tmp/artifacts/run-b", CreatedAtNs: run.CreatedAtNs + 1}
	if err := db.InsertRun(second); err != nil {
		t.Fatalf("InsertRun() error: %v", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() = %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].RunID != second.RunID {
		t.Errorf("ListRuns()[0] = %s, want newest run %s", runs[0].RunID, second.RunID)
	}
	if runs[1].ExtraGenCount != 5 || runs[1].ExtraGenPercent != 5.0 {
		t.Errorf("round-tripped run fields mismatch: %+v", runs[1])
	}
}

func TestListRunsHonorsLimit(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UnixNano()
	for i := 0; i < 5; i++ {
		if err := db.InsertRun(&Run{ArtifactDir: "/tmp/x", CreatedAtNs: base + int64(i)}); err != nil {
			t.Fatalf("InsertRun() error: %v", err)
		}
	}
	runs, err := db.ListRuns(3)
	if err != nil {
		t.Fatalf("ListRuns() error: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("ListRuns(3) = %d runs, want 3", len(runs))
	}
}

func TestPruneBefore(t *testing.T) {
	db := newTestDB(t)
	cutoff := time.Now()

	old := &Run{ArtifactDir: "/tmp/artifacts/old", CreatedAtNs: cutoff.Add(-time.Hour).UnixNano()}
	fresh := &Run{ArtifactDir: "/tmp/artifacts/fresh", CreatedAtNs: cutoff.Add(time.Hour).UnixNano()}
	for _, r := range []*Run{old, fresh} {
		if err := db.InsertRun(r); err != nil {
			t.Fatalf("InsertRun() error: %v", err)
		}
	}

	dirs, err := db.PruneBefore(cutoff)
	if err != nil {
		t.Fatalf("PruneBefore() error: %v", err)
	}
	if len(dirs) != 1 || dirs[0] != "/tmp/artifacts/old" {
		t.Errorf("PruneBefore() = %v, want [/tmp/artifacts/old]", dirs)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != fresh.RunID {
		t.Errorf("registry after prune = %+v, want only fresh run", runs)
	}
}
