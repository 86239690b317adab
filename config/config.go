package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type UpstreamConfig struct {
	BaseURL             string `mapstructure:"base_url"`
	AppID               string `mapstructure:"app_id"`
	DefaultCity         string `mapstructure:"default_city"`
	Timeout             string `mapstructure:"timeout"`
	HealthCheckInterval string `mapstructure:"health_check_interval"`
}

type RateLimitConfig struct {
	Window      string `mapstructure:"window"`
	MaxRequests int    `mapstructure:"max_requests"`
	FailOpen    bool   `mapstructure:"fail_open"`
	Store       string `mapstructure:"store"`
	RedisAddr   string `mapstructure:"redis_addr"`
}

type RetryConfig struct {
	MaxRetries     int     `mapstructure:"max_retries"`
	InitialDelay   string  `mapstructure:"initial_delay"`
	BackoffFactor  float64 `mapstructure:"backoff_factor"`
	MaxDelay       string  `mapstructure:"max_delay"`
	AttemptTimeout string  `mapstructure:"attempt_timeout"`
}

type BreakerSettings struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	ResetTimeout     string `mapstructure:"reset_timeout"`
	HalfOpenTimeout  string `mapstructure:"half_open_timeout"`
}

type BreakerConfig struct {
	Default  BreakerSettings            `mapstructure:"default"`
	Services map[string]BreakerSettings `mapstructure:"services"`
}

type TelemetryConfig struct {
	SlowRequest   string `mapstructure:"slow_request"`
	MemoryDeltaMB int    `mapstructure:"memory_delta_mb"`
	CPUTime       string `mapstructure:"cpu_time"`
	BufferSize    int    `mapstructure:"buffer_size"`
	Retention     string `mapstructure:"retention"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Production reports whether the gateway runs with production hardening
// (diagnostic details stripped from error responses).
func (c *Config) Production() bool {
	return c.Server.Environment == EnvProd
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8000")

	viper.SetDefault("upstream.base_url", "http://api.openweathermap.org/data/2.5")
	viper.SetDefault("upstream.default_city", "Helsinki,fi")
	viper.SetDefault("upstream.timeout", "10s")
	viper.SetDefault("upstream.health_check_interval", "30s")

	viper.SetDefault("rate_limit.window", "900s")
	viper.SetDefault("rate_limit.max_requests", 100)
	viper.SetDefault("rate_limit.fail_open", true)
	viper.SetDefault("rate_limit.store", StoreMemory)

	viper.SetDefault("retry.max_retries", 3)
	viper.SetDefault("retry.initial_delay", "1s")
	viper.SetDefault("retry.backoff_factor", 2.0)
	viper.SetDefault("retry.max_delay", "5s")
	viper.SetDefault("retry.attempt_timeout", "30s")

	viper.SetDefault("breaker.default.failure_threshold", 5)
	viper.SetDefault("breaker.default.reset_timeout", "30s")
	viper.SetDefault("breaker.default.half_open_timeout", "5s")

	viper.SetDefault("telemetry.slow_request", "1s")
	viper.SetDefault("telemetry.memory_delta_mb", 50)
	viper.SetDefault("telemetry.cpu_time", "70ms")
	viper.SetDefault("telemetry.buffer_size", 256)
	viper.SetDefault("telemetry.retention", "5m")

	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Upstream,
			validation.Required,
			validation.By(func(value interface{}) error {
				uc, ok := value.(UpstreamConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an UpstreamConfig")
				}
				return validation.ValidateStruct(&uc,
					validation.Field(&uc.BaseURL,
						validation.Required,
						validation.By(validateServerURL),
					),
					validation.Field(&uc.Timeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&uc.HealthCheckInterval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.RateLimit,
			validation.Required,
			validation.By(func(value interface{}) error {
				rl, ok := value.(RateLimitConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RateLimitConfig")
				}
				return validation.ValidateStruct(&rl,
					validation.Field(&rl.Window,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&rl.MaxRequests,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&rl.Store,
						validation.Required,
						validation.In(StoreMemory, StoreRedis),
					),
					validation.Field(&rl.RedisAddr,
						validation.When(rl.Store == StoreRedis,
							validation.Required,
							validation.By(validateHostPort),
						),
					),
				)
			}),
		),
		validation.Field(&c.Retry,
			validation.Required,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RetryConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RetryConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.MaxRetries,
						validation.Min(0),
					),
					validation.Field(&rc.InitialDelay,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&rc.BackoffFactor,
						validation.Required,
						validation.Min(1.0),
					),
					validation.Field(&rc.MaxDelay,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&rc.AttemptTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				if err := validateBreakerSettings(bc.Default); err != nil {
					return err
				}
				for _, svc := range bc.Services {
					if err := validateBreakerSettings(svc); err != nil {
						return err
					}
				}
				return nil
			}),
		),
		validation.Field(&c.Telemetry,
			validation.Required,
			validation.By(func(value interface{}) error {
				tc, ok := value.(TelemetryConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a TelemetryConfig")
				}
				return validation.ValidateStruct(&tc,
					validation.Field(&tc.SlowRequest,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&tc.MemoryDeltaMB,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&tc.CPUTime,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&tc.BufferSize,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&tc.Retention,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
	)
}

func validateBreakerSettings(s BreakerSettings) error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.FailureThreshold,
			validation.Required,
			validation.Min(1),
		),
		validation.Field(&s.ResetTimeout,
			validation.Required,
			validation.By(validateDuration),
		),
		validation.Field(&s.HalfOpenTimeout,
			validation.Required,
			validation.By(validateDuration),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "upstream URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
