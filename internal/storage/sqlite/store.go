package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
)

// Store is a SQLite implementation of RecordStore
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.RecordStore = (*Store)(nil)

// New creates a new SQLite store
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps in-memory databases shared across calls and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db, now: time.Now}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			user_input TEXT NOT NULL,
			analysis TEXT NOT NULL,
			response TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_created ON records(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Save(ctx context.Context, payload domain.RecordPayload) (*domain.Record, error) {
	rec := &domain.Record{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		UserInput: payload.UserInput,
		Analysis:  payload.Analysis,
		Response:  payload.Response,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, user_input, analysis, response, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.UserInput, rec.Analysis, rec.Response, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context) ([]*domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_input, analysis, response, created_at FROM records ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*domain.Record
	for rows.Next() {
		var (
			rec       domain.Record
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.UserInput, &rec.Analysis, &rec.Response, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
