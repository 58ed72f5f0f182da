package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

// Config carries every externally tunable threshold. No delivery or
// maintenance constant is hard-coded elsewhere.
type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	ExpoPushURL        string `env:"EXPO_PUSH_URL,default=https://exp.host/--/api/v2/push/send"`
	GatewayChunkSize   int    `env:"GATEWAY_CHUNK_SIZE,default=100"`
	GatewayRatePerSec  int    `env:"GATEWAY_RATE_PER_SEC,default=50"`
	GatewayTimeoutSecs int    `env:"GATEWAY_TIMEOUT_SECS,default=10"`

	RecipientCacheTTLSecs int `env:"RECIPIENT_CACHE_TTL_SECS,default=300"`
	HealthScoreCutoff     int `env:"HEALTH_SCORE_CUTOFF,default=50"`
	FailureThreshold      int `env:"FAILURE_THRESHOLD,default=5"`

	MaintenanceEnabled      bool `env:"MAINTENANCE_ENABLED,default=true"`
	MaintenanceIntervalMins int  `env:"MAINTENANCE_INTERVAL_MINS,default=360"`
	MaintenanceHistorySize  int  `env:"MAINTENANCE_HISTORY_SIZE,default=50"`
	MaxTokenAgeDays         int  `env:"MAX_TOKEN_AGE_DAYS,default=90"`
	JobDurationAlertSecs    int  `env:"JOB_DURATION_ALERT_SECS,default=60"`
	UnhealthyAlertPercent   int  `env:"UNHEALTHY_ALERT_PERCENT,default=25"`
	RecentFailureAlertCount int  `env:"RECENT_FAILURE_ALERT_COUNT,default=3"`

	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=8"`
	APIPort           int    `env:"API_PORT,default=8080"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
