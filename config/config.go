package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Redis         RedisConfig         `yaml:"redis"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Observability ObservabilityConfig `yaml:"observability"`
	Ranked        RankedConfig        `yaml:"ranked"`
	Tournament    TournamentConfig    `yaml:"tournament"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL        string `yaml:"url"`
	NKeySeed   string `yaml:"nkey_seed"`
	QueueGroup string `yaml:"queue_group"`
}

// RedisConfig holds Redis configuration. An empty address keeps the poll
// guard in process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// RateLimit is requests per second per client IP; RateBurst the bucket.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}

type RankedConfig struct {
	TickInterval   time.Duration `yaml:"tick_interval"`
	StaleAge       time.Duration `yaml:"stale_age"`
	PollGuardTTL   time.Duration `yaml:"poll_guard_ttl"`
	BattleTimeout  time.Duration `yaml:"battle_timeout"`
	ToleranceSteps []StepConfig  `yaml:"tolerance_steps"`
	ToleranceMax   int           `yaml:"tolerance_max"`
}

// StepConfig is one rung of the matchmaking tolerance ladder.
type StepConfig struct {
	Below  time.Duration `yaml:"below"`
	Radius int           `yaml:"radius"`
}

type TournamentConfig struct {
	RoundDuration time.Duration `yaml:"round_duration"`
}

// LoadConfig loads the configuration from a YAML file. A missing file falls
// back to environment variables alone.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) error {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = d
		}
		return nil
	}

	setString("DATABASE_URL", &cfg.Postgres.DSN)
	setString("NATS_URL", &cfg.NATS.URL)
	setString("NATS_NKEY_SEED", &cfg.NATS.NKeySeed)
	setString("NATS_QUEUE_GROUP", &cfg.NATS.QueueGroup)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setString("HTTP_ADDR", &cfg.HTTP.Addr)
	setString("JWT_SECRET", &cfg.JWT.Secret)
	setString("METRICS_ADDRESS", &cfg.Observability.MetricsAddress)
	setString("OTLP_ENDPOINT", &cfg.Observability.OTLPEndpoint)
	setString("ENV", &cfg.Observability.Environment)
	setString("LOG_LEVEL", &cfg.Observability.LogLevel)

	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.HTTP.AllowedOrigins = append(cfg.HTTP.AllowedOrigins, o)
			}
		}
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB value: %w", err)
		}
		cfg.Redis.DB = n
	}
	if v := os.Getenv("HTTP_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid HTTP_RATE_LIMIT value: %w", err)
		}
		cfg.HTTP.RateLimit = f
	}

	for key, dst := range map[string]*time.Duration{
		"RANKED_TICK_INTERVAL":      &cfg.Ranked.TickInterval,
		"RANKED_STALE_AGE":          &cfg.Ranked.StaleAge,
		"RANKED_POLL_GUARD_TTL":     &cfg.Ranked.PollGuardTTL,
		"RANKED_BATTLE_TIMEOUT":     &cfg.Ranked.BattleTimeout,
		"TOURNAMENT_ROUND_DURATION": &cfg.Tournament.RoundDuration,
	} {
		if err := setDuration(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.NATS.QueueGroup == "" {
		c.NATS.QueueGroup = "shinobi-ranked"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit <= 0 {
		c.HTTP.RateLimit = 10
	}
	if c.HTTP.RateBurst <= 0 {
		c.HTTP.RateBurst = 20
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "development"
	}
	if c.Ranked.TickInterval <= 0 {
		c.Ranked.TickInterval = 5 * time.Second
	}
	if c.Ranked.StaleAge <= 0 {
		c.Ranked.StaleAge = 7 * 24 * time.Hour
	}
	if c.Ranked.PollGuardTTL <= 0 {
		c.Ranked.PollGuardTTL = 10 * time.Second
	}
	if c.Ranked.BattleTimeout <= 0 {
		c.Ranked.BattleTimeout = 5 * time.Second
	}
	if c.Tournament.RoundDuration <= 0 {
		c.Tournament.RoundDuration = 30 * time.Minute
	}
}

func ToObsConfig(appCfg *Config, version string) observability.Config {
	return observability.Config{
		ServiceName:  "shinobi-ranked",
		Environment:  appCfg.Observability.Environment,
		Version:      version,
		LogLevel:     appCfg.Observability.LogLevel,
		OTLPEndpoint: appCfg.Observability.OTLPEndpoint,
	}
}
