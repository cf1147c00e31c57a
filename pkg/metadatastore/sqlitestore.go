package metadatastore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mimir-aip/finqa/pkg/models"
)

// SQLiteStore provides SQLite-based persistence for query history and model summaries
type SQLiteStore struct {
	db *sql.DB
}

var _ MetadataStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// writes are serialized by SQLite anyway
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check journal mode: %w", err)
	}
	if journalMode != "wal" && journalMode != "delete" && journalMode != "memory" {
		db.Close()
		return nil, fmt.Errorf("unexpected journal mode: got %s", journalMode)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// retryOnBusy retries a database operation if it fails due to SQLITE_BUSY
func (s *SQLiteStore) retryOnBusy(operation func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "SQLITE_BUSY") {
			return err
		}
		// 10ms, 20ms, 40ms, ...
		time.Sleep(time.Duration(10*(1<<uint(i))) * time.Millisecond)
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		intent TEXT NOT NULL,
		failure TEXT NOT NULL,
		entity TEXT,
		created_at DATETIME NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_queries_created_at ON queries(created_at);

	CREATE TABLE IF NOT EXISTS model_summaries (
		entity TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		best TEXT NOT NULL,
		trained_at DATETIME NOT NULL,
		data TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveQuery stores record, assigning an ID and timestamp when missing
func (s *SQLiteStore) SaveQuery(record *models.QueryRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO queries (id, question, intent, failure, entity, created_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	err = s.retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			record.ID,
			record.Question,
			string(record.Intent),
			string(record.Failure),
			record.Entity,
			record.CreatedAt,
			string(data),
		)
		return err
	}, 5)
	if err != nil {
		return fmt.Errorf("failed to save query: %w", err)
	}

	return nil
}

// GetQuery retrieves a query record by ID
func (s *SQLiteStore) GetQuery(id string) (*models.QueryRecord, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM queries WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query: %w", err)
	}

	var record models.QueryRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal query: %w", err)
	}
	return &record, nil
}

// ListQueries returns the most recent records first; limit <= 0 means all
func (s *SQLiteStore) ListQueries(limit int) ([]*models.QueryRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`SELECT data FROM queries ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	records := make([]*models.QueryRecord, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}

		var record models.QueryRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// SaveModelSummaries replaces all stored summaries with summaries
func (s *SQLiteStore) SaveModelSummaries(summaries []models.ModelSummary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM model_summaries`); err != nil {
		return fmt.Errorf("failed to clear model summaries: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO model_summaries (entity, position, best, trained_at, data)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, summary := range summaries {
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to marshal summary for %s: %w", summary.Entity, err)
		}
		if _, err := stmt.Exec(summary.Entity, i, string(summary.Best), summary.TrainedAt, string(data)); err != nil {
			return fmt.Errorf("failed to save summary for %s: %w", summary.Entity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit model summaries: %w", err)
	}
	return nil
}

// ListModelSummaries returns the summaries of the last training run in table order
func (s *SQLiteStore) ListModelSummaries() ([]models.ModelSummary, error) {
	rows, err := s.db.Query(`SELECT data FROM model_summaries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list model summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ModelSummary, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan model summary: %w", err)
		}

		var summary models.ModelSummary
		if err := json.Unmarshal([]byte(data), &summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal model summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}
