package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"golivebuddy/internal/config"
	"golivebuddy/internal/domain"
	"golivebuddy/internal/repository"
)

// PulseGenerator asks the backend to aggregate queries into a snapshot
type PulseGenerator interface {
	GeneratePulse(ctx context.Context, techID string) (*domain.PulseSnapshot, error)
}

// AnalyticsService owns the query log and pulse snapshots
type AnalyticsService struct {
	cfg       *config.Config
	queries   *repository.QueryLogRepository
	snapshots *repository.SnapshotRepository
	generator PulseGenerator
	logger    *zap.Logger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(
	cfg *config.Config,
	queries *repository.QueryLogRepository,
	snapshots *repository.SnapshotRepository,
	generator PulseGenerator,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		cfg:       cfg,
		queries:   queries,
		snapshots: snapshots,
		generator: generator,
		logger:    logger,
	}
}

// Record logs one user query. Failures are swallowed; analytics must
// never interrupt a conversation.
func (s *AnalyticsService) Record(techID, query string) {
	if !s.cfg.Analytics.Enabled {
		return
	}
	q := &domain.UserQuery{
		TechID:          techID,
		QueryText:       query,
		DetectedProcess: "Unknown",
		UserSentiment:   "Neutral",
	}
	if err := s.queries.Insert(q); err != nil {
		s.logger.Warn("failed to record user query", zap.Error(err))
	}
}

// Latest returns the most recent pulse snapshot for a tech id
func (s *AnalyticsService) Latest(techID string) (*domain.PulseSnapshot, error) {
	snap, err := s.snapshots.Latest(techID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, domain.ErrNotFound
	}
	return snap, nil
}

// Generate builds a fresh snapshot from the recent query log and stores it
func (s *AnalyticsService) Generate(ctx context.Context, techID string) (*domain.PulseSnapshot, error) {
	recent, err := s.queries.ListRecent(techID, s.cfg.Analytics.QueryLimit)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, fmt.Errorf("not enough data to generate pulse: %w", domain.ErrInvalidRequest)
	}

	snap, err := s.generator.GeneratePulse(ctx, techID)
	if err != nil {
		return nil, err
	}

	if err := s.snapshots.Insert(snap); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}
	return snap, nil
}
