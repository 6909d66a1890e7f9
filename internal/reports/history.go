package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HistoryEntry is one logged question/answer pair.
type HistoryEntry struct {
	ID       int64     `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// HistoryStore logs report questions in a separate audit database reached
// over database/sql with the pq driver, so the audit trail survives wipes of
// the main scheduling database.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore wraps an open database handle.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	if db == nil {
		panic("reports: history db required")
	}
	return &HistoryStore{db: db}
}

// Log records one question and its answer.
func (h *HistoryStore) Log(ctx context.Context, question, answer string) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO prompt_history (question, answer)
		VALUES ($1, $2)
	`, question, answer)
	if err != nil {
		return fmt.Errorf("reports: log history: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (h *HistoryStore) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, question, answer, asked_at
		FROM prompt_history
		ORDER BY asked_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("reports: recent history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &e.AskedAt); err != nil {
			return nil, fmt.Errorf("reports: scan history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ HistoryLogger = (*HistoryStore)(nil)
