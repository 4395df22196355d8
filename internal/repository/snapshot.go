package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"golivebuddy/internal/domain"
)

// SnapshotRepository persists pulse analytics snapshots
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert stores a snapshot
func (r *SnapshotRepository) Insert(snap *domain.PulseSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	snap.CreatedAt = time.Now()

	takeawaysJSON, _ := json.Marshal(snap.KeyTakeaways)
	trendingJSON, _ := json.Marshal(snap.TrendingProcesses)

	_, err := r.db.Exec(`
		INSERT INTO pulse_snapshots (id, tech_id, summary_text, key_takeaways, trending_processes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.TechID, snap.SummaryText, string(takeawaysJSON), string(trendingJSON), snap.CreatedAt)

	return err
}

// Latest retrieves the most recent snapshot for a tech id
func (r *SnapshotRepository) Latest(techID string) (*domain.PulseSnapshot, error) {
	snap := &domain.PulseSnapshot{}
	var takeawaysJSON, trendingJSON sql.NullString

	err := r.db.QueryRow(`
		SELECT id, tech_id, summary_text, key_takeaways, trending_processes, created_at
		FROM pulse_snapshots WHERE tech_id = ?
		ORDER BY created_at DESC LIMIT 1
	`, techID).Scan(&snap.ID, &snap.TechID, &snap.SummaryText,
		&takeawaysJSON, &trendingJSON, &snap.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if takeawaysJSON.Valid && takeawaysJSON.String != "" {
		json.Unmarshal([]byte(takeawaysJSON.String), &snap.KeyTakeaways)
	}
	if trendingJSON.Valid && trendingJSON.String != "" {
		json.Unmarshal([]byte(trendingJSON.String), &snap.TrendingProcesses)
	}

	return snap, nil
}
