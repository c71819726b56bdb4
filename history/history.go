// Package history - Lauf-Historie ueber SQLite
//
// Dieses Modul enthaelt:
// - Store: SQLite-Verbindung mit Schema-Initialisierung
// - Run: ein abgeschlossener Finetuning-Lauf
//
// SQLite verwaltet sein eigenes Locking fuer konkurrierende Zugriffe;
// der WAL-Modus erlaubt Lesern, Schreiber nicht zu blockieren. Die
// Historie ist per TUNE_NOHISTORY abschaltbar, das prueft der Aufrufer.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite-Treiber registrieren
)

// Run ist ein abgeschlossener Finetuning-Lauf
type Run struct {
	ID          string
	Name        string
	Task        string
	BatchSize   int
	Epochs      int
	Steps       int
	BestValLoss float64
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Store umhuellt die SQLite-Verbindung
type Store struct {
	conn *sql.DB
}

// Open oeffnet die Historie unter dbPath und initialisiert das Schema
func Open(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize history database: %w", err)
	}
	return s, nil
}

// Close schliesst die Datenbankverbindung
func (s *Store) Close() error {
	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	return s.conn.Close()
}

// init initialisiert das Datenbankschema
func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		task TEXT NOT NULL,
		batch_size INTEGER NOT NULL DEFAULT 0,
		epochs INTEGER NOT NULL DEFAULT 0,
		steps INTEGER NOT NULL DEFAULT 0,
		best_val_loss REAL NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record speichert einen Lauf. Eine leere ID wird generiert.
func (s *Store) Record(run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.conn.Exec(`
		INSERT INTO runs (id, name, task, batch_size, epochs, steps, best_val_loss, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Task, run.BatchSize, run.Epochs, run.Steps, run.BestValLoss,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

// Runs liefert die juengsten Laeufe, neueste zuerst. limit <= 0
// bedeutet alle.
func (s *Store) Runs(limit int) ([]Run, error) {
	query := `
		SELECT id, name, task, batch_size, epochs, steps, best_val_loss, started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Name, &r.Task, &r.BatchSize, &r.Epochs, &r.Steps, &r.BestValLoss, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
