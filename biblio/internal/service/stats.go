package service

import (
	"context"

	"github.com/Astemirdum/biblio-service/biblio/internal/repository"
	"github.com/Astemirdum/biblio-service/pkg/kafka"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"go.uber.org/zap"
)

// StatsService keeps per-school counters fed from the lifecycle event topic.
type StatsService struct {
	repo repository.StatsRepository
	log  *zap.Logger
}

func NewStatsService(repo repository.StatsRepository, log *zap.Logger) *StatsService {
	return &StatsService{
		repo: repo,
		log:  log.Named("stats"),
	}
}

func (s *StatsService) SaveEvent(ctx context.Context, event kafka.LoanEvent) error {
	if event.SchoolID == "" {
		s.log.Warn("event without school dropped", zap.String("type", string(event.EventType)))
		return nil
	}
	return s.repo.SaveEvent(ctx, event)
}

func (s *StatsService) GetStats(ctx context.Context, ident model.Identity) (model.SchoolStats, error) {
	if err := requireRole(ident, model.RoleStaff); err != nil {
		return model.SchoolStats{}, err
	}
	return s.repo.GetStats(ctx, ident.SchoolID())
}
