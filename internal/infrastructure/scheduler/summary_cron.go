package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appaudit "github.com/taxfiling/backend/internal/application/audit"
	"github.com/taxfiling/backend/internal/infrastructure/config"
)

// schedulerActorID is stamped as the generating user on reports produced
// by the cron scheduler rather than by an interactive request.
var schedulerActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// SummaryGenerator is the slice of the reporting service the scheduler needs
type SummaryGenerator interface {
	GenerateSummary(ctx context.Context, req appaudit.GenerateSummaryRequest) (*appaudit.SummaryReportResponse, error)
}

// SummaryCronScheduler generates monthly summary reports for every company
// with activity in the closed month. It wakes on a check interval and runs
// once per month, on the first day at or after the configured UTC hour.
type SummaryCronScheduler struct {
	cfg       config.SchedulerConfig
	generator SummaryGenerator
	companies CompanySource
	jobs      JobRepository
	logger    *zap.Logger

	mu         sync.Mutex
	isRunning  bool
	lastPeriod string
	lastRunAt  *time.Time
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewSummaryCronScheduler creates a new SummaryCronScheduler
func NewSummaryCronScheduler(
	cfg config.SchedulerConfig,
	generator SummaryGenerator,
	companies CompanySource,
	jobs JobRepository,
	logger *zap.Logger,
) *SummaryCronScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryCronScheduler{
		cfg:       cfg,
		generator: generator,
		companies: companies,
		jobs:      jobs,
		logger:    logger,
	}
}

// Start launches the cron loop. A completed period recorded by a previous
// process is honored so restarts do not regenerate the same month.
func (s *SummaryCronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.isRunning = true

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	if s.jobs != nil {
		if period, err := s.jobs.LastCompletedPeriod(ctx); err != nil {
			s.logger.Warn("Failed to load last completed scheduler period", zap.Error(err))
		} else if period != "" {
			s.mu.Lock()
			s.lastPeriod = period
			s.mu.Unlock()
		}
	}

	s.wg.Add(1)
	go s.cronLoop(loopCtx)

	s.logger.Info("Summary cron scheduler started",
		zap.Duration("check_interval", s.cfg.CheckInterval),
		zap.Int("run_hour_utc", s.cfg.RunHourUTC),
	)
	return nil
}

// Stop shuts the cron loop down, waiting up to the context deadline
func (s *SummaryCronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Summary cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Summary cron scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *SummaryCronScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if period, ok := s.due(now); ok {
				s.runMonthlyAggregation(ctx, period)
			}
		}
	}
}

// due reports whether the previous month still needs generation at the
// given wall time. The hour check uses >= rather than == so a process
// started after the run hour still catches up the same day.
func (s *SummaryCronScheduler) due(now time.Time) (string, bool) {
	now = now.UTC()
	if now.Day() != 1 || now.Hour() < s.cfg.RunHourUTC {
		return "", false
	}
	period := previousPeriod(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastPeriod == period {
		return "", false
	}
	return period, true
}

// previousPeriod returns the YYYY-MM period of the month before now
func previousPeriod(now time.Time) string {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, -1, 0).Format("2006-01")
}

// periodWindow returns the [start, end) bounds of a YYYY-MM period
func periodWindow(period string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}

// runMonthlyAggregation generates one monthly summary per active company
func (s *SummaryCronScheduler) runMonthlyAggregation(ctx context.Context, period string) {
	s.logger.Info("Starting monthly summary aggregation", zap.String("period", period))

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	start, end, err := periodWindow(period)
	if err != nil {
		s.logger.Error("Invalid aggregation period", zap.String("period", period), zap.Error(err))
		return
	}

	companyIDs, err := s.companies.CompaniesWithActivity(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to enumerate companies for aggregation", zap.Error(err))
		return
	}

	failures := 0
	for _, companyID := range companyIDs {
		if ctx.Err() != nil {
			return
		}
		if err := s.generateForCompany(ctx, companyID, period); err != nil {
			failures++
			s.logger.Error("Monthly summary generation failed",
				zap.String("company_id", companyID.String()),
				zap.String("period", period),
				zap.Error(err),
			)
		}
	}

	// A month with zero companies still counts as done for this process;
	// companies that failed are retried on the next tick.
	if failures == 0 {
		s.mu.Lock()
		s.lastPeriod = period
		s.mu.Unlock()
	}

	s.logger.Info("Monthly summary aggregation finished",
		zap.String("period", period),
		zap.Int("company_count", len(companyIDs)),
		zap.Int("failures", failures),
	)
}

func (s *SummaryCronScheduler) generateForCompany(ctx context.Context, companyID uuid.UUID, period string) error {
	var jobID uuid.UUID
	if s.jobs != nil {
		var err error
		jobID, err = s.jobs.RecordJobStart(ctx, companyID, period)
		if err != nil {
			s.logger.Warn("Failed to record scheduler job start",
				zap.String("company_id", companyID.String()),
				zap.Error(err),
			)
		}
	}

	jobCtx := ctx
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	_, err := s.generator.GenerateSummary(jobCtx, appaudit.GenerateSummaryRequest{
		CompanyID:    companyID,
		ReportType:   "MONTHLY",
		ReportPeriod: period,
		GeneratedBy:  schedulerActorID,
	})

	if s.jobs != nil && jobID != uuid.Nil {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		if recordErr := s.jobs.RecordJobComplete(ctx, jobID, err == nil, errMsg); recordErr != nil {
			s.logger.Warn("Failed to record scheduler job completion",
				zap.String("company_id", companyID.String()),
				zap.Error(recordErr),
			)
		}
	}
	return err
}

// TriggerManualRun forces aggregation for the previous month, regardless of
// the first-of-month gate. It runs asynchronously so an HTTP caller is not
// held for the duration of the run.
func (s *SummaryCronScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	period := previousPeriod(time.Now())
	go s.runMonthlyAggregation(context.Background(), period)
	return nil
}

// GetStatus returns the current scheduler status for operational endpoints
func (s *SummaryCronScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":        s.cfg.Enabled,
		"is_running":     s.isRunning,
		"run_hour_utc":   s.cfg.RunHourUTC,
		"check_interval": s.cfg.CheckInterval.String(),
		"last_period":    s.lastPeriod,
		"last_run_at":    s.lastRunAt,
	}
}
