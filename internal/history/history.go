// Package history records asked questions and their answers so repeated
// questions can be served without another generation call.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/devflow/internal/db"
)

// ErrNotFound is returned by Lookup when no reusable answer exists.
var ErrNotFound = errors.New("history entry not found")

// DefaultLimit caps Recent when the caller passes no limit.
const DefaultLimit = 20

const timeLayout = "2006-01-02 15:04:05.000"

// Entry is one answered question.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   []string  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists history entries in the catalog database.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Record saves e, assigning an ID and timestamp when missing.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.Question = strings.TrimSpace(e.Question)
	if e.Sources == nil {
		e.Sources = []string{}
	}

	sources, err := json.Marshal(e.Sources)
	if err != nil {
		return Entry{}, fmt.Errorf("marshalling sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history (id, session_id, question, answer, sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Question, e.Answer, string(sources), e.CreatedAt.Format(timeLayout))
	if err != nil {
		return Entry{}, fmt.Errorf("inserting history entry: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, question, answer, sources, created_at
		FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Lookup returns the newest successful answer to exactly this question.
// Answers that carry a generation error are never reused.
func (s *Store) Lookup(ctx context.Context, question string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, question, answer, sources, created_at
		FROM history
		WHERE question = ? AND answer NOT LIKE 'Error:%'
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, strings.TrimSpace(question))

	e, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up history: %w", err)
	}
	return e, nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e           Entry
		sourcesJSON string
		created     string
	)
	if err := sc.Scan(&e.ID, &e.SessionID, &e.Question, &e.Answer, &sourcesJSON, &created); err != nil {
		return nil, err
	}
	e.CreatedAt = parseTime(created)
	if err := json.Unmarshal([]byte(sourcesJSON), &e.Sources); err != nil || e.Sources == nil {
		e.Sources = []string{}
	}
	return &e, nil
}

// parseTime accepts the stored layout and the RFC 3339 form the driver
// produces when it has already parsed the column as a time.
func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
