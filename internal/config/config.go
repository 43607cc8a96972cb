package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "GATEWAY_"

type Config struct {
	Primary      Primary            `koanf:"primary"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Repository   RepositoryConfig   `koanf:"repository"`
	BillerClient BillerClientConfig `koanf:"biller_client"`
	Breaker      BreakerConfig      `koanf:"breaker"`
	Features     FeaturesConfig     `koanf:"features"`
	Events       EventsConfig       `koanf:"events"`
	Logger       LoggerConfig       `koanf:"logger"`
	Worker       WorkerConfig       `koanf:"worker"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`

	// PendingTTL is how long a transaction may wait on a 3DS challenge before it is aborted.
	PendingTTL time.Duration `koanf:"pending_ttl" validate:"required"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig is the operational listener serving /metrics and /healthz.
type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// RepositoryConfig selects the document store ("postgres" or "memory") and the write retry budget.
type RepositoryConfig struct {
	Driver           string        `koanf:"driver" validate:"required,oneof=postgres memory"`
	MaxWriteAttempts int           `koanf:"max_write_attempts" validate:"required,min=1"`
	BaseDelay        time.Duration `koanf:"base_delay"`
}

type BillerClientConfig struct {
	BaseURL    string        `koanf:"base_url" validate:"required,url"`
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
	MaxRetries int           `koanf:"max_retries" validate:"min=0"`
	BaseDelay  time.Duration `koanf:"base_delay"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout" validate:"required"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"required,min=1"`
}

type FeaturesConfig struct {
	NSFCardUpload bool `koanf:"nsf_card_upload"`
}

// EventsConfig controls where BI events go. Without a Redis address they are only logged.
type EventsConfig struct {
	RedisAddress string `koanf:"redis_address"`
	Stream       string `koanf:"stream"`
	MaxLen       int64  `koanf:"max_len"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if mainConfig.Events.RedisAddress != "" && mainConfig.Events.Stream == "" {
		err = errors.New("events.stream is required when events.redis_address is set")
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if mainConfig.Repository.Driver == "postgres" {
		if err := validate.Struct(postgresRequired(mainConfig.Database)); err != nil {
			logger.Error("database config validation failed", "error", err)
			return nil, err
		}
	}

	return mainConfig, nil
}

// postgresRequired narrows the database fields that must be set when the
// postgres store is selected.
func postgresRequired(c DatabaseConfig) any {
	return struct {
		Host    string `validate:"required"`
		Port    int    `validate:"required"`
		User    string `validate:"required"`
		Name    string `validate:"required"`
		SSLMode string `validate:"required"`
	}{c.Host, c.Port, c.User, c.Name, c.SSLMode}
}
