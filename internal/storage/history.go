package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DefaultRecentLimit bounds Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 50

// MaxRecentLimit caps a single Recent query.
const MaxRecentLimit = 500

// Prediction is one served classification.
type Prediction struct {
	ID              string    `json:"id"`
	ImageSHA256     string    `json:"image_sha256"`
	Filename        string    `json:"filename"`
	Variant         string    `json:"variant"`
	HasCrack        bool      `json:"has_crack"`
	Class           string    `json:"class"`
	Confidence      float64   `json:"confidence"`
	ConfidenceLevel string    `json:"confidence_level"`
	Probability     float64   `json:"probability"`
	CreatedAt       time.Time `json:"created_at"`
}

// HistoryStore persists served predictions. It is append-only and never
// consulted when producing a classification.
type HistoryStore interface {
	Record(ctx context.Context, p *Prediction) error
	Recent(ctx context.Context, limit int) ([]Prediction, error)
	Close() error
}

// SQLiteHistory implements HistoryStore on SQLite.
type SQLiteHistory struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string) (*SQLiteHistory, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteHistory{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("history store opened")
	return s, nil
}

func (s *SQLiteHistory) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		image_sha256 TEXT NOT NULL,
		filename TEXT,
		variant TEXT,
		has_crack INTEGER NOT NULL,
		class TEXT NOT NULL,
		confidence REAL NOT NULL,
		confidence_level TEXT NOT NULL,
		probability REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);
	CREATE INDEX IF NOT EXISTS idx_predictions_hash ON predictions(image_sha256);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Record inserts p, assigning an ID and timestamp when unset.
func (s *SQLiteHistory) Record(ctx context.Context, p *Prediction) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions
			(id, image_sha256, filename, variant, has_crack, class, confidence, confidence_level, probability, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ImageSHA256, p.Filename, p.Variant, p.HasCrack, p.Class,
		p.Confidence, p.ConfidenceLevel, p.Probability, p.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record prediction: %w", err)
	}
	return nil
}

// Recent returns up to limit predictions, newest first.
func (s *SQLiteHistory) Recent(ctx context.Context, limit int) ([]Prediction, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, MaxRecentLimit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, image_sha256, filename, variant, has_crack, class, confidence, confidence_level, probability, created_at
		FROM predictions
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	predictions := make([]Prediction, 0, limit)
	for rows.Next() {
		var (
			p       Prediction
			created int64
		)
		if err := rows.Scan(&p.ID, &p.ImageSHA256, &p.Filename, &p.Variant, &p.HasCrack, &p.Class,
			&p.Confidence, &p.ConfidenceLevel, &p.Probability, &created); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p.CreatedAt = time.Unix(0, created)
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// Close closes the database.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}
