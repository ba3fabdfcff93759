package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS inconsistencies (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL,
	kind    TEXT NOT NULL,
	entity  TEXT NOT NULL,
	id      INTEGER NOT NULL,
	related TEXT,
	detail  TEXT,
	warning INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS inconsistencies_kind ON inconsistencies(kind);
CREATE INDEX IF NOT EXISTS inconsistencies_entity ON inconsistencies(entity, id);
`

// SQLiteSink inserts inconsistencies into a SQLite table. Rows become
// visible when the sink is closed.
type SQLiteSink struct {
	mu   sync.Mutex
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
}

// NewSQLiteSink opens (or creates) the database at path.
func NewSQLiteSink(ctx context.Context, path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create report schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO inconsistencies (run_id, kind, entity, id, related, detail, warning) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		_ = db.Close()
		return nil, err
	}
	return &SQLiteSink{db: db, tx: tx, stmt: stmt}, nil
}

func (s *SQLiteSink) Record(in Inconsistency) error {
	var related []byte
	if len(in.Related) > 0 {
		var err error
		if related, err = json.Marshal(in.Related); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stmt == nil {
		return sql.ErrTxDone
	}
	_, err := s.stmt.Exec(in.RunID, string(in.Kind), string(in.Entity), in.ID, string(related), in.Detail, in.Warning)
	return err
}

// Close commits the inserted rows and closes the database.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stmt == nil {
		return nil
	}
	_ = s.stmt.Close()
	s.stmt = nil
	err := s.tx.Commit()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}
