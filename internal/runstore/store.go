// Package runstore persists compare-run records in SQLite. Each run owns a
// unique artifact directory; the store is the source of truth for which
// directories are live, which lets retention reclaim old artifacts
// out-of-band instead of clearing a shared directory per request.
package runstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB wraps the run registry database.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the registry at path and applies pending
// migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db := &DB{conn}
	if err := db.MigrateUp(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Run is one recorded compare invocation.
type Run struct {
	RunID           string  `json:"run_id"`
	Epsilon         float64 `json:"epsilon"`
	BaseCount       int     `json:"base_count"`
	GenCount        int     `json:"gen_count"`
	ExtraBaseCount  int     `json:"extra_base_count"`
	ExtraGenCount   int     `json:"extra_gen_count"`
	ExtraGenPercent float64 `json:"extra_gen_percent"`
	ArtifactDir     string  `json:"artifact_dir"`
	CreatedAtNs     int64   `json:"created_at_ns"`
}

// InsertRun records a completed run. A missing RunID or CreatedAtNs is
// filled in.
func (db *DB) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = time.Now().UnixNano()
	}
	_, err := db.Exec(`
		INSERT INTO compare_runs (
			run_id, epsilon, base_count, gen_count,
			extra_base_count, extra_gen_count, extra_gen_percent,
			artifact_dir, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Epsilon, run.BaseCount, run.GenCount,
		run.ExtraBaseCount, run.ExtraGenCount, run.ExtraGenPercent,
		run.ArtifactDir, run.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT run_id, epsilon, base_count, gen_count,
		       extra_base_count, extra_gen_count, extra_gen_percent,
		       artifact_dir, created_at_ns
		FROM compare_runs
		ORDER BY created_at_ns DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.RunID, &r.Epsilon, &r.BaseCount, &r.GenCount,
			&r.ExtraBaseCount, &r.ExtraGenCount, &r.ExtraGenPercent,
			&r.ArtifactDir, &r.CreatedAtNs,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PruneBefore deletes registry rows older than cutoff and returns the
// artifact directories they owned. Removing those directories from disk is
// the caller's job, so a filesystem failure never leaves the registry
// claiming artifacts that are gone.
func (db *DB) PruneBefore(cutoff time.Time) ([]string, error) {
	rows, err := db.Query(
		`SELECT artifact_dir FROM compare_runs WHERE created_at_ns < ?`,
		cutoff.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("select stale runs: %w", err)
	}
	var dirs []string
	for rows.Next() {
		var dir string
		if err := rows.Scan(&dir); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan stale run: %w", err)
		}
		dirs = append(dirs, dir)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := db.Exec(
		`DELETE FROM compare_runs WHERE created_at_ns < ?`,
		cutoff.UnixNano()); err != nil {
		return nil, fmt.Errorf("delete stale runs: %w", err)
	}
	return dirs, nil
}
