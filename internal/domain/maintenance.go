package domain

import "time"

// MaintenanceState is the explicit job state machine. A single RUNNING value
// enforces mutual exclusion; COMPLETED_* are recorded on the finished job and
// the service itself returns to IDLE.
type MaintenanceState string

const (
	MaintenanceIdle                MaintenanceState = "IDLE"
	MaintenanceRunning             MaintenanceState = "RUNNING"
	MaintenanceCompletedSuccess    MaintenanceState = "COMPLETED_SUCCESS"
	MaintenanceCompletedWithErrors MaintenanceState = "COMPLETED_WITH_ERRORS"
)

func (s MaintenanceState) String() string { return string(s) }

// MaintenanceOptions selects which sub-operations a job runs.
type MaintenanceOptions struct {
	IncludeCleanup       bool `json:"includeCleanup"`
	IncludeHealthRefresh bool `json:"includeHealthRefresh"`
	IncludeAnalytics     bool `json:"includeAnalytics"`
	MaxAgeInDays         int  `json:"maxAgeInDays,omitempty"`
}

// OperationOutcome records one sub-operation of a maintenance job.
type OperationOutcome struct {
	Executed bool    `json:"executed"`
	Error    *string `json:"error,omitempty"`
}

// CleanupResult tallies the cleanup phase.
type CleanupResult struct {
	TokensProcessed   int `json:"tokensProcessed"`
	TokensDeactivated int `json:"tokensDeactivated"`
	TokensDeleted     int `json:"tokensDeleted"`
}

// HealthRefreshResult tallies the health-refresh phase.
type HealthRefreshResult struct {
	TokensProcessed int `json:"tokensProcessed"`
	HealthyTokens   int `json:"healthyTokens"`
	UnhealthyTokens int `json:"unhealthyTokens"`
}

// TokenAnalytics aggregates usage and health statistics. Read-only.
type TokenAnalytics struct {
	TotalTokens     int64                `json:"totalTokens"`
	ActiveTokens    int64                `json:"activeTokens"`
	HealthyTokens   int64                `json:"healthyTokens"`
	UnhealthyTokens int64                `json:"unhealthyTokens"`
	ByPlatform      map[Platform]int64   `json:"byPlatform,omitempty"`
	ByFormat        map[TokenFormat]int64 `json:"byFormat,omitempty"`
	AverageScore    float64              `json:"averageScore"`
}

// MaintenanceOperations groups per-phase outcomes.
type MaintenanceOperations struct {
	Cleanup       OperationOutcome `json:"cleanup"`
	HealthRefresh OperationOutcome `json:"healthRefresh"`
	Analytics     OperationOutcome `json:"analytics"`
}

// MaintenanceSummary is the roll-up over all executed phases.
type MaintenanceSummary struct {
	TokensProcessed   int      `json:"tokensProcessed"`
	TokensDeactivated int      `json:"tokensDeactivated"`
	TokensDeleted     int      `json:"tokensDeleted"`
	HealthyTokens     int      `json:"healthyTokens"`
	UnhealthyTokens   int      `json:"unhealthyTokens"`
	Errors            []string `json:"errors,omitempty"`
}

// MaintenanceJob is one completed run. Never mutated after completion.
type MaintenanceJob struct {
	JobID      string                `json:"jobId"`
	StartTime  time.Time             `json:"startTime"`
	EndTime    time.Time             `json:"endTime"`
	Duration   time.Duration         `json:"duration"`
	Success    bool                  `json:"success"`
	State      MaintenanceState      `json:"state"`
	Operations MaintenanceOperations `json:"operations"`
	Cleanup    *CleanupResult        `json:"cleanup,omitempty"`
	Refresh    *HealthRefreshResult  `json:"healthRefresh,omitempty"`
	Analytics  *TokenAnalytics       `json:"analytics,omitempty"`
	Summary    MaintenanceSummary    `json:"summary"`
}

// MaintenanceStatus is the externally visible scheduler state.
type MaintenanceStatus struct {
	State            MaintenanceState `json:"state"`
	IsRunning        bool             `json:"isRunning"`
	LastRun          *time.Time       `json:"lastRun,omitempty"`
	NextScheduledRun *time.Time       `json:"nextScheduledRun,omitempty"`
	RecentJobs       []MaintenanceJob `json:"recentJobs"`
	SuccessRate      float64          `json:"successRate"`
	AverageDuration  time.Duration    `json:"averageDuration"`
}
