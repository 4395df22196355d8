package repository

import (
	"time"

	"github.com/google/uuid"

	"golivebuddy/internal/domain"
)

// QueryLogRepository records user queries for the pulse analytics surface
type QueryLogRepository struct {
	db *DB
}

// NewQueryLogRepository creates a new query log repository
func NewQueryLogRepository(db *DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

// Insert records one user query
func (r *QueryLogRepository) Insert(q *domain.UserQuery) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	q.CreatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO user_queries (id, tech_id, query_text, detected_process, user_sentiment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, q.ID, q.TechID, q.QueryText, q.DetectedProcess, q.UserSentiment, q.CreatedAt)

	return err
}

// ListRecent retrieves the most recent queries for a tech id, newest first
func (r *QueryLogRepository) ListRecent(techID string, limit int) ([]*domain.UserQuery, error) {
	rows, err := r.db.Query(`
		SELECT id, tech_id, query_text, detected_process, user_sentiment, created_at
		FROM user_queries WHERE tech_id = ?
		ORDER BY created_at DESC LIMIT ?
	`, techID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []*domain.UserQuery
	for rows.Next() {
		q := &domain.UserQuery{}
		if err := rows.Scan(&q.ID, &q.TechID, &q.QueryText, &q.DetectedProcess,
			&q.UserSentiment, &q.CreatedAt); err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}

	return queries, rows.Err()
}

// Count returns the total number of logged queries
func (r *QueryLogRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM user_queries`).Scan(&count)
	return count, err
}
