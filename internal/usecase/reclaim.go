package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/scrape-coordinator/internal/repository"
	"github.com/user/scrape-coordinator/pkg/metrics"
)

// ReclaimSweeper periodically returns claimed/running chunks with an
// expired lease back to pending, so work held by a crashed runner is
// eventually re-dispatched instead of sticking forever.
type ReclaimSweeper struct {
	chunkRepo repository.ChunkRepository
	interval  time.Duration
}

// NewReclaimSweeper creates a sweeper running at the given interval.
func NewReclaimSweeper(chunkRepo repository.ChunkRepository, interval time.Duration) *ReclaimSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReclaimSweeper{chunkRepo: chunkRepo, interval: interval}
}

// Run blocks, sweeping until the context is cancelled.
func (s *ReclaimSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReclaimSweeper) sweep(ctx context.Context) {
	reclaimed, err := s.chunkRepo.ReclaimExpired(ctx)
	if err != nil {
		slog.Error("Chunk reclaim sweep failed", "error", err)
		return
	}
	if reclaimed > 0 {
		metrics.ChunksReclaimedTotal.Add(float64(reclaimed))
		slog.Warn("Reclaimed expired chunk claims", "count", reclaimed)
	}
}
