package core

// sweeper.go runs store maintenance in the background.
//
// The sweeper is long-running and context-aware so it stops with the
// server. A sweep never fails; it only logs how many reports it dropped.

import (
	"context"
	"log/slog"
	"time"
)

// StartReportSweeper removes expired reports every interval until ctx is done.
// It blocks; run it in its own goroutine.
func (s *Service) StartReportSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		slog.Info("report sweeper disabled")
		return
	}

	slog.Info("report sweeper started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("report sweeper stopped")
			return
		case <-ticker.C:
			s.sweepReports()
		}
	}
}

func (s *Service) sweepReports() {
	start := time.Now()
	removed := s.store.Sweep()
	if removed == 0 {
		return
	}
	slog.Info("expired reports removed",
		"removed", removed,
		"remaining", s.store.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
