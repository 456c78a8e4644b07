package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// PipelineStats is the operator dashboard summary.
type PipelineStats struct {
	ByStatus     map[model.Status]int
	LastCreated  time.Time
	LastPostedAt map[model.Platform]time.Time
}

type StatsUseCase interface {
	Summary(ctx context.Context) (*PipelineStats, error)
}

type statsUC struct {
	contents  repository.ContentRepository
	platforms []model.Platform

	log *zerolog.Logger
}

func NewStatsUseCase(contents repository.ContentRepository, platforms []model.Platform, logger *zerolog.Logger) *statsUC {
	return &statsUC{contents: contents, platforms: platforms, log: logger}
}

func (s *statsUC) Summary(ctx context.Context) (*PipelineStats, error) {
	counts, err := s.contents.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	lastCreated, err := s.contents.LatestCreatedAt(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	lastPosted := make(map[model.Platform]time.Time, len(s.platforms))
	for _, p := range s.platforms {
		t, err := s.contents.LatestPostedAt(ctx, repository.NoTX, p)
		if err != nil {
			return nil, err
		}
		lastPosted[p] = t
	}

	return &PipelineStats{
		ByStatus:     counts,
		LastCreated:  lastCreated,
		LastPostedAt: lastPosted,
	}, nil
}
