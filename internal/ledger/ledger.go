// Package ledger keeps a local history of stored exports in SQLite.
// Nothing in it is read back when deciding whether to create or update.
package ledger

import (
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const fileName = "timeexport.db"

type DB struct {
	conn *sql.DB
}

type Entry struct {
	ID        int64
	RunAt     time.Time
	Name      string
	FileID    string
	Link      string
	FolderID  string
	StartDate string
	EndDate   string
	Bytes     int64
	Created   bool
}

func New(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	dbPath := filepath.Join(dataDir, fileName)
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	return db, nil
}

func (db *DB) migrate() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "failed to set dialect")
	}

	return goose.Up(db.conn, "migrations")
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Record(e *Entry) error {
	result, err := db.conn.Exec(`
		INSERT INTO exports (run_at, name, file_id, link, folder_id, start_date, end_date, bytes, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.RunAt.UTC(), e.Name, e.FileID, e.Link, e.FolderID, e.StartDate, e.EndDate, e.Bytes, e.Created)
	if err != nil {
		return errors.Wrap(err, "failed to record export")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	e.ID = id
	return nil
}

// Recent returns up to limit entries, newest first.
func (db *DB) Recent(limit int) ([]Entry, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_at, name, file_id, link, folder_id, start_date, end_date, bytes, created
		FROM exports ORDER BY run_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query exports")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RunAt, &e.Name, &e.FileID, &e.Link, &e.FolderID, &e.StartDate, &e.EndDate, &e.Bytes, &e.Created); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
