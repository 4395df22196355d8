package service

import (
	"context"

	"go.uber.org/zap"

	"golivebuddy/internal/conversation"
	"golivebuddy/internal/domain"
	"golivebuddy/internal/repository"
)

// IngestForwarder forwards ingestion requests to the backend pipeline
type IngestForwarder interface {
	ForwardIngest(ctx context.Context, req *domain.IngestRequest) error
}

// AdminService handles the admin surface: ingest forwarding and stats
type AdminService struct {
	store     *conversation.Store
	queries   *repository.QueryLogRepository
	forwarder IngestForwarder
	logger    *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(
	store *conversation.Store,
	queries *repository.QueryLogRepository,
	forwarder IngestForwarder,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		store:     store,
		queries:   queries,
		forwarder: forwarder,
		logger:    logger,
	}
}

// ForwardIngest relays an ingestion request to the backend
func (s *AdminService) ForwardIngest(ctx context.Context, req *domain.IngestRequest) error {
	if err := s.forwarder.ForwardIngest(ctx, req); err != nil {
		return err
	}
	s.logger.Info("ingestion forwarded",
		zap.String("source_url", req.SourceURL),
		zap.String("namespace", req.Namespace),
	)
	return nil
}

// GetStats returns system statistics
func (s *AdminService) GetStats(ctx context.Context) (*domain.Stats, error) {
	sessions, messages := s.store.Counts()
	queries, err := s.queries.Count()
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		TotalSessions: sessions,
		TotalMessages: messages,
		TotalQueries:  queries,
	}, nil
}
