package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EventBusInProcess = "inprocess"
	EventBusRedis     = "redis"
	EventBusNATS      = "nats"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `yaml:"service_name"`
	HTTPPort    string `yaml:"http_port"`
	LogFormat   string `yaml:"log_format"`
	PostgresDSN string `yaml:"postgres_dsn"`

	EventBus           string `yaml:"event_bus"`
	RedisURL           string `yaml:"redis_url"`
	NATSURL            string `yaml:"nats_url"`
	EventSubjectPrefix string `yaml:"event_subject_prefix"`
	EventStreamMaxLen  int64  `yaml:"event_stream_max_len"`

	JWTSecret          string   `yaml:"jwt_secret"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	DefaultQuorumBps     int  `yaml:"default_quorum_bps"`
	EnforceVotingWindow  bool `yaml:"enforce_voting_window"`
	RejectZeroPowerVotes bool `yaml:"reject_zero_power_votes"`

	OutboxBatchSize    int           `yaml:"outbox_batch_size"`
	WorkerPollInterval time.Duration `yaml:"worker_poll_interval"`
	SnapshotCacheTTL   time.Duration `yaml:"snapshot_cache_ttl"`
}

func Default() Config {
	return Config{
		ServiceName:          "fangov",
		HTTPPort:             "8080",
		LogFormat:            "text",
		EventBus:             EventBusInProcess,
		EventSubjectPrefix:   "governance",
		EventStreamMaxLen:    100000,
		DefaultQuorumBps:     5000,
		EnforceVotingWindow:  true,
		RejectZeroPowerVotes: false,
		OutboxBatchSize:      100,
		WorkerPollInterval:   2 * time.Second,
		SnapshotCacheTTL:     24 * time.Hour,
	}
}

// Load layers defaults, then the YAML file at path (if any), then the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envString("SERVICE_NAME", &cfg.ServiceName)
	envString("HTTP_PORT", &cfg.HTTPPort)
	envString("LOG_FORMAT", &cfg.LogFormat)
	envString("POSTGRES_DSN", &cfg.PostgresDSN)
	envString("EVENT_BUS", &cfg.EventBus)
	envString("REDIS_URL", &cfg.RedisURL)
	envString("NATS_URL", &cfg.NATSURL)
	envString("EVENT_SUBJECT_PREFIX", &cfg.EventSubjectPrefix)
	envString("JWT_SECRET", &cfg.JWTSecret)

	if origins := envList("CORS_ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.CORSAllowedOrigins = origins
	}
	cfg.EnforceVotingWindow = envBool("ENFORCE_VOTING_WINDOW", cfg.EnforceVotingWindow)
	cfg.RejectZeroPowerVotes = envBool("REJECT_ZERO_POWER_VOTES", cfg.RejectZeroPowerVotes)

	var err error
	if cfg.DefaultQuorumBps, err = envInt("DEFAULT_QUORUM_BPS", cfg.DefaultQuorumBps); err != nil {
		return err
	}
	if cfg.OutboxBatchSize, err = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize); err != nil {
		return err
	}
	if cfg.WorkerPollInterval, err = envDuration("WORKER_POLL_INTERVAL", cfg.WorkerPollInterval); err != nil {
		return err
	}
	if cfg.SnapshotCacheTTL, err = envDuration("SNAPSHOT_CACHE_TTL", cfg.SnapshotCacheTTL); err != nil {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	var problems []error
	switch c.EventBus {
	case EventBusInProcess:
	case EventBusRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			problems = append(problems, errors.New("redis_url is required when event_bus is redis"))
		}
	case EventBusNATS:
		if strings.TrimSpace(c.NATSURL) == "" {
			problems = append(problems, errors.New("nats_url is required when event_bus is nats"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown event_bus %q", c.EventBus))
	}
	if c.DefaultQuorumBps < 0 || c.DefaultQuorumBps > 10000 {
		problems = append(problems, errors.New("default_quorum_bps must be within 0..10000"))
	}
	if c.OutboxBatchSize <= 0 {
		problems = append(problems, errors.New("outbox_batch_size must be positive"))
	}
	if c.WorkerPollInterval <= 0 {
		problems = append(problems, errors.New("worker_poll_interval must be positive"))
	}
	if c.SnapshotCacheTTL < 0 {
		problems = append(problems, errors.New("snapshot_cache_ttl must not be negative"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		problems = append(problems, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	return errors.Join(problems...)
}

func envString(name string, target *string) {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		*target = value
	}
}

func envList(name string) []string {
	var items []string
	for _, value := range strings.Split(os.Getenv(name), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", name, err)
	}
	return value, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
