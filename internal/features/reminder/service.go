package reminder

import (
	"context"
	"time"

	"go-expense/internal/config"
	"go-expense/internal/features/expense"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ReminderService periodically flags claims that have been pending for
// too long so approvers can be chased. It only reads and logs; sending
// the actual notification is an external concern.
type ReminderService struct {
	expenseRepo expense.ExpenseRepository
	logger      *zap.Logger
	staleAfter  time.Duration
	schedule    string

	scheduler *cron.Cron
}

func NewReminderService(lc fx.Lifecycle, cfg *config.Config, expenseRepo expense.ExpenseRepository, logger *zap.Logger) *ReminderService {
	s := &ReminderService{
		expenseRepo: expenseRepo,
		logger:      logger,
		staleAfter:  time.Duration(cfg.StalePendingHours) * time.Hour,
		schedule:    cfg.ReminderSchedule,
		scheduler:   cron.New(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := s.scheduler.AddFunc(s.schedule, s.ScanStalePending); err != nil {
				return err
			}
			s.scheduler.Start()
			logger.Info("Stale-claim reminder scheduled", zap.String("schedule", s.schedule))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := s.scheduler.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})

	return s
}

// ScanStalePending logs every claim pending longer than the configured age
func (s *ReminderService) ScanStalePending() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.staleAfter)
	stale, err := s.expenseRepo.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Stale-claim scan failed", zap.Error(err))
		return
	}

	for _, claim := range stale {
		s.logger.Warn("Expense pending too long",
			zap.String("expense_id", claim.ID.Hex()),
			zap.String("company_id", claim.CompanyID.Hex()),
			zap.Duration("pending_for", time.Since(claim.CreatedAt)))
	}

	if len(stale) > 0 {
		s.logger.Info("Stale-claim scan finished", zap.Int("stale_count", len(stale)))
	}
}
