package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nagaralert/alerthub/internal/config"
	"github.com/nagaralert/alerthub/internal/logging"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const jobTimeout = 5 * time.Minute

// VoteReconciler repairs denormalized vote counters.
type VoteReconciler interface {
	Reconcile(ctx context.Context) (int64, error)
}

// Service runs the periodic maintenance jobs.
type Service struct {
	config *config.Config
	votes  VoteReconciler
	purge  func(ctx context.Context, days int) (int64, error)
	cron   *cron.Cron
}

func NewService(cfg *config.Config, votes VoteReconciler, db *gorm.DB) *Service {
	return &Service{
		config: cfg,
		votes:  votes,
		purge: func(ctx context.Context, days int) (int64, error) {
			return logging.PurgeOlderThan(ctx, db, days)
		},
		cron: cron.New(cron.WithSeconds()),
	}
}

// Start registers both jobs and starts the cron loop.
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(s.config.VoteReconcileCron, s.reconcileVotes); err != nil {
		return fmt.Errorf("invalid VOTE_RECONCILE_CRON %q: %w", s.config.VoteReconcileCron, err)
	}
	if _, err := s.cron.AddFunc(s.config.LogRetentionCron, s.purgeLogs); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_CRON %q: %w", s.config.LogRetentionCron, err)
	}

	s.cron.Start()
	slog.Info("scheduler started", "vote_reconcile", s.config.VoteReconcileCron, "log_retention", s.config.LogRetentionCron)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		slog.Info("scheduler stopped")
	}
}

func (s *Service) reconcileVotes() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	fixed, err := s.votes.Reconcile(ctx)
	if err != nil {
		slog.Error("vote reconciliation failed", "action", "reconcile_votes", "error", err)
		return
	}
	if fixed > 0 {
		slog.Warn("vote counters drifted from ledger", "action", "reconcile_votes", "fixed", fixed)
	}
}

func (s *Service) purgeLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := s.purge(ctx, s.config.LogRetentionDays)
	if err != nil {
		slog.Error("log retention failed", "action", "purge_logs", "error", err)
		return
	}
	slog.Info("old system logs purged", "action", "purge_logs", "removed", removed)
}
