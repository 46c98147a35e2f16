package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/metrics"
	"github.com/robfig/cron/v3"
)

const defaultBatchSize = 100

// Repository is the subset of repository.WarrantyRepository the expirer needs.
type Repository interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// Expirer moves registered and active warranties past their end date to
// expired, on a cron schedule.
type Expirer struct {
	repo      Repository
	schedule  cron.Schedule
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

// NewExpirer accepts standard 5-field cron expressions and descriptors such as
// "@hourly" or "@every 15m".
func NewExpirer(repo Repository, spec string, logger *slog.Logger) (*Expirer, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse expiry schedule %q: %w", spec, err)
	}
	return &Expirer{
		repo:      repo,
		schedule:  sched,
		batchSize: defaultBatchSize,
		now:       time.Now,
		logger:    logger.With("component", "expirer"),
	}, nil
}

func (e *Expirer) Start(ctx context.Context) {
	e.logger.Info("expirer started", "next_run", e.schedule.Next(e.now()))

	for {
		next := e.schedule.Next(e.now())
		timer := time.NewTimer(next.Sub(e.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("expirer shut down")
			return
		case <-timer.C:
			if _, err := e.RunOnce(ctx); err != nil && ctx.Err() == nil {
				e.logger.Error("expiry run", "error", err)
			}
		}
	}
}

// RunOnce expires due warranties in batches until a short batch comes back.
func (e *Expirer) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.ExpiryRunDuration.Observe(time.Since(start).Seconds()) }()

	now := e.now()
	total := 0
	for {
		n, err := e.repo.ExpireDue(ctx, now, e.batchSize)
		total += n
		metrics.WarrantiesExpiredTotal.Add(float64(n))
		if err != nil {
			return total, fmt.Errorf("expire due warranties: %w", err)
		}
		if n < e.batchSize {
			break
		}
	}

	if total > 0 {
		e.logger.Info("warranties expired", "count", total)
	}
	return total, nil
}
