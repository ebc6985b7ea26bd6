package cache

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/urbanopt/internal/metrics"
	"github.com/sells-group/urbanopt/internal/scenario"
)

// SnapshotStore persists cache contents to SQLite so a later run over the
// same geometry can start warm instead of cold.
type SnapshotStore struct {
	db *sql.DB
}

// OpenSnapshotStore opens (or creates) a snapshot database at the given path
// and ensures the schema exists.
func OpenSnapshotStore(ctx context.Context, dsn string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open snapshot db")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}

	const migration = `
CREATE TABLE IF NOT EXISTS metric_cache (
	fingerprint TEXT NOT NULL,
	metric      TEXT NOT NULL,
	value       REAL NOT NULL,
	seq         INTEGER NOT NULL,
	PRIMARY KEY (fingerprint, metric)
);

CREATE INDEX IF NOT EXISTS idx_metric_cache_seq ON metric_cache(seq);
`
	if _, err := db.ExecContext(ctx, migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: migrate snapshot db")
	}
	return &SnapshotStore{db: db}, nil
}

// Save replaces the stored snapshot with the cache's current entries. The
// sequence column records LRU order so Load can replay oldest-first.
func (s *SnapshotStore) Save(ctx context.Context, c *Cache) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "cache: begin snapshot tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM metric_cache`); err != nil {
		return eris.Wrap(err, "cache: clear snapshot")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO metric_cache (fingerprint, metric, value, seq) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "cache: prepare snapshot insert")
	}
	defer stmt.Close()

	for seq, entry := range c.Entries() {
		fp := entry.Fingerprint.String()
		for name, value := range entry.Result {
			if _, err := stmt.ExecContext(ctx, fp, name, value, seq); err != nil {
				return eris.Wrapf(err, "cache: insert snapshot row %s/%s", fp, name)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "cache: commit snapshot")
}

// Load seeds the cache from the stored snapshot, oldest entries first so the
// reloaded cache evicts in the same order the saved one would have.
func (s *SnapshotStore) Load(ctx context.Context, c *Cache) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, metric, value FROM metric_cache ORDER BY seq, metric`)
	if err != nil {
		return 0, eris.Wrap(err, "cache: query snapshot")
	}
	defer rows.Close()

	pending := make(map[scenario.Fingerprint]metrics.Result)
	var order []scenario.Fingerprint
	for rows.Next() {
		var fpHex, name string
		var value float64
		if err := rows.Scan(&fpHex, &name, &value); err != nil {
			return 0, eris.Wrap(err, "cache: scan snapshot row")
		}
		raw, err := strconv.ParseUint(fpHex, 16, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "cache: parse fingerprint %q", fpHex)
		}
		fp := scenario.Fingerprint(raw)
		if _, ok := pending[fp]; !ok {
			pending[fp] = make(metrics.Result)
			order = append(order, fp)
		}
		pending[fp][name] = value
	}
	if err := rows.Err(); err != nil {
		return 0, eris.Wrap(err, "cache: iterate snapshot rows")
	}

	for _, fp := range order {
		c.Put(fp, pending[fp])
	}
	return len(order), nil
}

// Close releases the underlying database handle.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
