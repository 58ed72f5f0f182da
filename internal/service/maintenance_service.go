package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/push-engine/internal/domain"
	"github.com/kursadbilgin/push-engine/internal/observability"
	"github.com/kursadbilgin/push-engine/internal/repository"
	"github.com/kursadbilgin/push-engine/internal/validation"
	"go.uber.org/zap"
)

const cleanupDeactivationReason = "deactivated by maintenance cleanup"

// MaintenanceConfig carries every tunable maintenance threshold.
type MaintenanceConfig struct {
	Enabled                 bool
	Interval                time.Duration
	HistorySize             int
	MaxTokenAgeDays         int
	HealthScoreCutoff       int
	JobDurationAlert        time.Duration
	UnhealthyAlertPercent   int
	RecentFailureAlertCount int
}

// MaintenanceService runs periodic token upkeep. At most one job runs at a
// time; a second trigger fails fast with ErrMaintenanceRunning instead of
// queueing. A running job is never cancelled mid-run.
type MaintenanceService struct {
	tokens repository.TokenRepository
	cfg    MaintenanceConfig

	running atomic.Bool

	mu      sync.Mutex
	state   domain.MaintenanceState
	lastRun *time.Time
	history []domain.MaintenanceJob

	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewMaintenanceService(
	tokens repository.TokenRepository,
	cfg MaintenanceConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*MaintenanceService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token repository is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("maintenance interval must be positive")
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	if cfg.MaxTokenAgeDays <= 0 {
		cfg.MaxTokenAgeDays = 90
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MaintenanceService{
		tokens:  tokens,
		cfg:     cfg,
		state:   domain.MaintenanceIdle,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// ShouldRun reports whether a scheduled run is due. Force bypasses the
// interval check but never the enabled flag.
func (s *MaintenanceService) ShouldRun(force bool) bool {
	if !s.cfg.Enabled {
		return false
	}
	if force {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return true
	}
	return s.now().Sub(*s.lastRun) >= s.cfg.Interval
}

// RunJob executes the selected maintenance phases. Exactly one job may run at
// a time; concurrent triggers get ErrMaintenanceRunning immediately. Phase
// errors are isolated: they land in the job summary, never abort the run.
func (s *MaintenanceService) RunJob(ctx context.Context, opts domain.MaintenanceOptions) (*domain.MaintenanceJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrMaintenanceRunning
	}
	defer s.running.Store(false)

	s.setState(domain.MaintenanceRunning)

	if !opts.IncludeCleanup && !opts.IncludeHealthRefresh && !opts.IncludeAnalytics {
		opts.IncludeCleanup = true
		opts.IncludeHealthRefresh = true
		opts.IncludeAnalytics = true
	}
	if opts.MaxAgeInDays <= 0 {
		opts.MaxAgeInDays = s.cfg.MaxTokenAgeDays
	}

	job := &domain.MaintenanceJob{
		JobID:     uuid.NewString(),
		StartTime: s.now().UTC(),
	}

	s.logger.Info("maintenance job started",
		zap.String("jobId", job.JobID),
		zap.Bool("cleanup", opts.IncludeCleanup),
		zap.Bool("healthRefresh", opts.IncludeHealthRefresh),
		zap.Bool("analytics", opts.IncludeAnalytics),
	)

	if opts.IncludeCleanup {
		cleanup, err := s.runCleanup(ctx, opts.MaxAgeInDays)
		job.Operations.Cleanup = outcome(err)
		if cleanup != nil {
			job.Cleanup = cleanup
			job.Summary.TokensProcessed += cleanup.TokensProcessed
			job.Summary.TokensDeactivated += cleanup.TokensDeactivated
			job.Summary.TokensDeleted += cleanup.TokensDeleted
		}
		if err != nil {
			job.Summary.Errors = append(job.Summary.Errors, fmt.Sprintf("cleanup: %v", err))
		}
	}

	if opts.IncludeHealthRefresh {
		refresh, err := s.runHealthRefresh(ctx)
		job.Operations.HealthRefresh = outcome(err)
		if refresh != nil {
			job.Refresh = refresh
			job.Summary.TokensProcessed += refresh.TokensProcessed
			job.Summary.HealthyTokens = refresh.HealthyTokens
			job.Summary.UnhealthyTokens = refresh.UnhealthyTokens
		}
		if err != nil {
			job.Summary.Errors = append(job.Summary.Errors, fmt.Sprintf("health refresh: %v", err))
		}
	}

	if opts.IncludeAnalytics {
		analytics, err := s.runAnalytics(ctx)
		job.Operations.Analytics = outcome(err)
		if analytics != nil {
			job.Analytics = analytics
		}
		if err != nil {
			job.Summary.Errors = append(job.Summary.Errors, fmt.Sprintf("analytics: %v", err))
		}
	}

	job.EndTime = s.now().UTC()
	job.Duration = job.EndTime.Sub(job.StartTime)
	job.Success = len(job.Summary.Errors) == 0

	s.finishJob(job)
	s.alert(job)

	return job, nil
}

// Status reports the current state and history-derived statistics.
func (s *MaintenanceService) Status() domain.MaintenanceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := domain.MaintenanceStatus{
		State:     s.state,
		IsRunning: s.state == domain.MaintenanceRunning,
		LastRun:   s.lastRun,
	}

	if s.cfg.Enabled && s.lastRun != nil {
		next := s.lastRun.Add(s.cfg.Interval)
		status.NextScheduledRun = &next
	}

	status.RecentJobs = make([]domain.MaintenanceJob, len(s.history))
	copy(status.RecentJobs, s.history)

	if len(s.history) > 0 {
		succeeded := 0
		var total time.Duration
		for _, job := range s.history {
			if job.Success {
				succeeded++
			}
			total += job.Duration
		}
		status.SuccessRate = float64(succeeded) / float64(len(s.history))
		status.AverageDuration = total / time.Duration(len(s.history))
	}

	return status
}

// runCleanup deactivates stale active tokens and hard-deletes tokens that
// have already been inactive past the age cutoff.
func (s *MaintenanceService) runCleanup(ctx context.Context, maxAgeDays int) (*domain.CleanupResult, error) {
	candidates, err := s.tokens.FindStaleOrUnhealthy(ctx, maxAgeDays)
	if err != nil {
		return nil, fmt.Errorf("failed to select cleanup candidates: %w", err)
	}

	result := &domain.CleanupResult{TokensProcessed: len(candidates)}
	cutoff := s.now().UTC().AddDate(0, 0, -maxAgeDays)

	deleteIDs := make([]string, 0, len(candidates))
	for _, t := range candidates {
		if !t.IsActive {
			if t.DeactivatedAt != nil && t.DeactivatedAt.Before(cutoff) {
				deleteIDs = append(deleteIDs, t.ID)
			}
			continue
		}

		if err := s.tokens.Deactivate(ctx, t.Token, cleanupDeactivationReason); err != nil {
			s.logger.Warn("cleanup deactivation failed",
				zap.String("tokenId", t.ID),
				zap.Error(err),
			)
			continue
		}
		result.TokensDeactivated++
	}

	if len(deleteIDs) > 0 {
		deleted, err := s.tokens.DeleteByIDs(ctx, deleteIDs)
		if err != nil {
			return result, fmt.Errorf("failed to delete expired tokens: %w", err)
		}
		result.TokensDeleted = int(deleted)
	}

	s.metrics.IncTokensDeactivated("maintenance_cleanup", result.TokensDeactivated)

	return result, nil
}

// runHealthRefresh re-scores every active token against the current clock.
func (s *MaintenanceService) runHealthRefresh(ctx context.Context) (*domain.HealthRefreshResult, error) {
	active, err := s.tokens.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active tokens: %w", err)
	}

	now := s.now().UTC()
	result := &domain.HealthRefreshResult{TokensProcessed: len(active)}

	for _, t := range active {
		check := validation.Validate(t.Token)
		score := validation.HealthScore(now, validation.ScoreInput{
			CreatedAt:  t.CreatedAt,
			LastUsed:   t.LastUsed,
			DeviceID:   t.DeviceID,
			DeviceName: t.DeviceName,
		}, check)
		healthy := check.IsValid && score >= s.cfg.HealthScoreCutoff

		if err := s.tokens.UpdateHealth(ctx, t.ID, score, healthy, now); err != nil {
			s.logger.Warn("health refresh update failed",
				zap.String("tokenId", t.ID),
				zap.Error(err),
			)
			continue
		}

		if healthy {
			result.HealthyTokens++
		} else {
			result.UnhealthyTokens++
		}
	}

	return result, nil
}

func (s *MaintenanceService) runAnalytics(ctx context.Context) (*domain.TokenAnalytics, error) {
	analytics, err := s.tokens.Analytics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate token analytics: %w", err)
	}
	return analytics, nil
}

// finishJob stamps the terminal state on the job, records it in the bounded
// history, and returns the service to IDLE for the next trigger.
func (s *MaintenanceService) finishJob(job *domain.MaintenanceJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Success {
		job.State = domain.MaintenanceCompletedSuccess
	} else {
		job.State = domain.MaintenanceCompletedWithErrors
	}
	s.state = domain.MaintenanceIdle

	end := job.EndTime
	s.lastRun = &end

	s.history = append(s.history, *job)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}

	outcomeLabel := "success"
	if !job.Success {
		outcomeLabel = "errors"
	}
	s.metrics.IncMaintenanceRun(outcomeLabel)
	s.metrics.ObserveMaintenanceRunDuration(job.Duration)
}

// alert emits advisory warnings about the finished job. Alerts are logs only;
// they never change the job outcome.
func (s *MaintenanceService) alert(job *domain.MaintenanceJob) {
	if s.cfg.JobDurationAlert > 0 && job.Duration > s.cfg.JobDurationAlert {
		s.logger.Warn("maintenance job exceeded duration threshold",
			zap.String("jobId", job.JobID),
			zap.Duration("duration", job.Duration),
			zap.Duration("threshold", s.cfg.JobDurationAlert),
		)
	}

	if s.cfg.UnhealthyAlertPercent > 0 && job.Refresh != nil && job.Refresh.TokensProcessed > 0 {
		pct := 100 * job.Refresh.UnhealthyTokens / job.Refresh.TokensProcessed
		if pct > s.cfg.UnhealthyAlertPercent {
			s.logger.Warn("unhealthy token share above threshold",
				zap.String("jobId", job.JobID),
				zap.Int("unhealthyPercent", pct),
				zap.Int("threshold", s.cfg.UnhealthyAlertPercent),
			)
		}
	}

	if len(job.Summary.Errors) > 0 {
		s.logger.Warn("maintenance job completed with errors",
			zap.String("jobId", job.JobID),
			zap.Strings("errors", job.Summary.Errors),
		)
	}

	if s.cfg.RecentFailureAlertCount > 0 {
		if failures := s.recentConsecutiveFailures(); failures >= s.cfg.RecentFailureAlertCount {
			s.logger.Warn("consecutive maintenance failures",
				zap.Int("failures", failures),
			)
		}
	}
}

func (s *MaintenanceService) recentConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	failures := 0
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Success {
			break
		}
		failures++
	}
	return failures
}

func (s *MaintenanceService) setState(state domain.MaintenanceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func outcome(err error) domain.OperationOutcome {
	out := domain.OperationOutcome{Executed: true}
	if err != nil {
		msg := err.Error()
		out.Error = &msg
	}
	return out
}
