// Package storage persists match-run snapshots in sqlite. The snapshot
// is a cache of the latest run, never the source of truth: the engine is
// expected to rebuild everything from the source files on each run.
package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"thp/internal"
)

type DB struct {
	conn *sql.DB
}

// GroupSnapshot pairs a match group with its price summary for storage.
type GroupSnapshot struct {
	Group   internal.MatchGroup
	Summary internal.GroupSummary
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS sources (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  file_name TEXT,
  records INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS match_groups (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  groupKey TEXT NOT NULL,
  reason TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT,
  code TEXT,
  code_type TEXT,
  source_count INTEGER NOT NULL,
  min_price REAL NOT NULL,
  max_price REAL NOT NULL,
  spread REAL NOT NULL,
  spread_percent REAL NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_groups_key ON match_groups(groupKey);
CREATE INDEX IF NOT EXISTS idx_groups_spread ON match_groups(spread);

CREATE TABLE IF NOT EXISTS group_prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  groupId INTEGER NOT NULL,
  source TEXT NOT NULL,
  price REAL NOT NULL,
  FOREIGN KEY(groupId) REFERENCES match_groups(id)
);
CREATE INDEX IF NOT EXISTS idx_group_prices_lookup ON group_prices(groupId, source);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertSource(name, fileName string, result internal.IngestResult) error {
	_, err := d.conn.Exec(`
INSERT INTO sources (name, file_name, records, skipped)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  file_name=excluded.file_name,
  records=excluded.records,
  skipped=excluded.skipped,
  updatedAt=CURRENT_TIMESTAMP
`, name, fileName, result.Processed, result.Skipped)
	return err
}

type SourceRow struct {
	ID       int
	Name     string
	FileName string
	Records  int
	Skipped  int
}

func (d *DB) ListSources() ([]SourceRow, error) {
	rows, err := d.conn.Query(`SELECT id, name, COALESCE(file_name, ''), records, skipped FROM sources ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceRow
	for rows.Next() {
		var row SourceRow
		if err := rows.Scan(&row.ID, &row.Name, &row.FileName, &row.Records, &row.Skipped); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReplaceSnapshot swaps the stored groups for the result of a new run.
// The previous snapshot is dropped in the same transaction.
func (d *DB) ReplaceSnapshot(snapshots []GroupSnapshot) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM group_prices`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM match_groups`); err != nil {
		return err
	}

	groupStmt, err := tx.Prepare(`
INSERT INTO match_groups (groupKey, reason, description, category, code, code_type, source_count, min_price, max_price, spread, spread_percent)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer groupStmt.Close()

	priceStmt, err := tx.Prepare(`INSERT INTO group_prices (groupId, source, price) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer priceStmt.Close()

	for _, snap := range snapshots {
		var codeValue, codeType *string
		if snap.Group.PrimaryCode != nil {
			v := snap.Group.PrimaryCode.Value
			t := string(snap.Group.PrimaryCode.Type)
			codeValue, codeType = &v, &t
		}
		res, err := groupStmt.Exec(
			snap.Group.Key, string(snap.Group.Reason), snap.Group.Description, snap.Group.Category,
			codeValue, codeType, snap.Group.SourceCount(),
			snap.Summary.MinPrice, snap.Summary.MaxPrice, snap.Summary.Spread, snap.Summary.SpreadPercent,
		)
		if err != nil {
			return err
		}
		groupID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		sources := make([]string, 0, len(snap.Summary.PerSourceBest))
		for source := range snap.Summary.PerSourceBest {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		for _, source := range sources {
			if _, err := priceStmt.Exec(groupID, source, snap.Summary.PerSourceBest[source]); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (d *DB) GroupCount() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM match_groups`).Scan(&n)
	return n, err
}

// TopSpreads returns the stored groups with the largest absolute price
// spread, each with its per-source best prices.
func (d *DB) TopSpreads(limit int) ([]internal.GroupExportRow, error) {
	return d.exportRows(`ORDER BY spread DESC LIMIT ?`, limit)
}

// ExportRows returns the whole snapshot ordered by spread.
func (d *DB) ExportRows() ([]internal.GroupExportRow, error) {
	return d.exportRows(`ORDER BY spread DESC`)
}

func (d *DB) exportRows(tail string, args ...any) ([]internal.GroupExportRow, error) {
	rows, err := d.conn.Query(`
SELECT id, groupKey, reason, description, COALESCE(category, ''), code, code_type,
       source_count, min_price, max_price, spread, spread_percent
FROM match_groups `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.GroupExportRow
	ids := []int64{}
	for rows.Next() {
		var row internal.GroupExportRow
		var id int64
		if err := rows.Scan(
			&id, &row.Key, &row.Reason, &row.Description, &row.Category,
			&row.CodeValue, &row.CodeType,
			&row.Sources, &row.MinPrice, &row.MaxPrice, &row.Spread, &row.SpreadPercent,
		); err != nil {
			return nil, err
		}
		row.PerSourceBest = map[string]float64{}
		out = append(out, row)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		priceRows, err := d.conn.Query(`SELECT source, price FROM group_prices WHERE groupId = ?`, id)
		if err != nil {
			return nil, err
		}
		for priceRows.Next() {
			var source string
			var price float64
			if err := priceRows.Scan(&source, &price); err != nil {
				_ = priceRows.Close()
				return nil, err
			}
			out[i].PerSourceBest[source] = price
		}
		if err := priceRows.Err(); err != nil {
			_ = priceRows.Close()
			return nil, err
		}
		_ = priceRows.Close()
	}

	return out, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
