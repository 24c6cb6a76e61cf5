package history

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openhydro/aquasim/internal/simtypes"
)

// SQLiteSink persists tick batches to a sqlite database, gzip-compressing
// the per-tick state JSON before storage. Grounded on the teacher's
// checkpoint.Store, which applies the same gzip-blob-in-sqlite shape to
// conversation checkpoints; here the blob is a tick's component states
// rather than a conversation snapshot.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (creating if absent) a sqlite database at path
// using the mattn/go-sqlite3 cgo driver, the production driver named
// "sqlite3".
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	return openSQLiteSink(path, "sqlite3")
}

// openSQLiteSink lets tests swap in the pure-Go modernc.org/sqlite
// driver (registered under "sqlite") so the history package's tests
// need no cgo toolchain.
func openSQLiteSink(path, driverName string) (*SQLiteSink, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open history sink: %w", err)
	}
	s := &SQLiteSink{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS ticks (
			tick     INTEGER PRIMARY KEY,
			time     REAL NOT NULL,
			states_gz BLOB NOT NULL
		);
	`)
	return err
}

// WriteTicks inserts or replaces a batch of ticks inside a single
// transaction.
func (s *SQLiteSink) WriteTicks(ticks []TickResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO ticks (tick, time, states_gz) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range ticks {
		blob, err := compressStates(t.States)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(t.Tick, t.Time, blob); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert tick %d: %w", t.Tick, err)
		}
	}

	return tx.Commit()
}

// ReadTicks returns every tick stored in the sink, ordered by tick
// index. It exists for inspection and tests; the simulation run itself
// never reads back from the sink.
func (s *SQLiteSink) ReadTicks() ([]TickResult, error) {
	rows, err := s.db.Query(`SELECT tick, time, states_gz FROM ticks ORDER BY tick ASC`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []TickResult
	for rows.Next() {
		var t TickResult
		var blob []byte
		if err := rows.Scan(&t.Tick, &t.Time, &blob); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		states, err := decompressStates(blob)
		if err != nil {
			return nil, err
		}
		t.States = states
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func compressStates(states map[string]simtypes.Scalars) ([]byte, error) {
	payload, err := json.Marshal(states)
	if err != nil {
		return nil, fmt.Errorf("marshal states: %w", err)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return nil, fmt.Errorf("compress states: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressStates(blob []byte) (map[string]simtypes.Scalars, error) {
	gr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gr.Close()
	payload, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("decompress states: %w", err)
	}
	var states map[string]simtypes.Scalars
	if err := json.Unmarshal(payload, &states); err != nil {
		return nil, fmt.Errorf("unmarshal states: %w", err)
	}
	return states, nil
}
