package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/weather-gateway/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
		os.Unsetenv("RATE_LIMIT_MAX_REQUESTS")
	})

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				configContent := `
server:
  address: ":8000"
  environment: "dev"

upstream:
  base_url: "http://api.openweathermap.org/data/2.5"
  app_id: "test-app-id"
  timeout: "10s"
  health_check_interval: "30s"

rate_limit:
  window: "900s"
  max_requests: 100
  fail_open: true
  store: "memory"

retry:
  max_retries: 3
  initial_delay: "1s"
  backoff_factor: 2
  max_delay: "5s"
  attempt_timeout: "30s"

breaker:
  default:
    failure_threshold: 5
    reset_timeout: "30s"
    half_open_timeout: "5s"
  services:
    weather:
      failure_threshold: 3
      reset_timeout: "30s"
      half_open_timeout: "5s"

telemetry:
  slow_request: "1s"
  memory_delta_mb: 50
  cpu_time: "70ms"
  buffer_size: 256
  retention: "5m"

logging:
  level: "info"
`
				configPath := filepath.Join(tempDir, "config.yaml")
				err := os.WriteFile(configPath, []byte(configContent), 0644)
				Expect(err).NotTo(HaveOccurred())

				err = os.Chdir(tempDir)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
			})

			It("should parse the rate limit section", func() {
				cfg, _ := config.Load()
				Expect(cfg.RateLimit.MaxRequests).To(Equal(100))
				Expect(cfg.RateLimit.Window).To(Equal("900s"))
				Expect(cfg.RateLimit.FailOpen).To(BeTrue())
			})

			It("should parse per-service breaker overrides", func() {
				cfg, _ := config.Load()
				Expect(cfg.Breaker.Default.FailureThreshold).To(Equal(5))
				Expect(cfg.Breaker.Services).To(HaveKey("weather"))
				Expect(cfg.Breaker.Services["weather"].FailureThreshold).To(Equal(3))
			})

			It("should report non-production for dev environment", func() {
				cfg, _ := config.Load()
				Expect(cfg.Production()).To(BeFalse())
			})
		})

		Context("without a config file", func() {
			BeforeEach(func() {
				err := os.Chdir(tempDir)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should use defaults when config file missing", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.RateLimit.MaxRequests).To(Equal(100))
				Expect(cfg.Retry.MaxRetries).To(Equal(3))
				Expect(cfg.Breaker.Default.FailureThreshold).To(Equal(5))
			})
		})
	})

	Describe("Validate", func() {
		var cfg *config.Config

		BeforeEach(func() {
			cfg = &config.Config{
				Server:   config.ServerConfig{Address: ":8000", Environment: config.EnvDev},
				Upstream: config.UpstreamConfig{BaseURL: "http://api.openweathermap.org/data/2.5", Timeout: "10s", HealthCheckInterval: "30s"},
				RateLimit: config.RateLimitConfig{
					Window: "900s", MaxRequests: 100, Store: config.StoreMemory,
				},
				Retry: config.RetryConfig{
					MaxRetries: 3, InitialDelay: "1s", BackoffFactor: 2, MaxDelay: "5s", AttemptTimeout: "30s",
				},
				Breaker: config.BreakerConfig{
					Default: config.BreakerSettings{FailureThreshold: 5, ResetTimeout: "30s", HalfOpenTimeout: "5s"},
				},
				Telemetry: config.TelemetryConfig{
					SlowRequest: "1s", MemoryDeltaMB: 50, CPUTime: "70ms", BufferSize: 256, Retention: "5m",
				},
				Logging: config.LoggingConfig{Level: config.LogLevelInfo},
			}
		})

		It("should accept a complete configuration", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject an invalid window duration", func() {
			cfg.RateLimit.Window = "fifteen minutes"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a zero rate ceiling", func() {
			cfg.RateLimit.MaxRequests = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject an unknown counter store", func() {
			cfg.RateLimit.Store = "memcached"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should require a redis address when the redis store is selected", func() {
			cfg.RateLimit.Store = config.StoreRedis
			Expect(cfg.Validate()).NotTo(Succeed())

			cfg.RateLimit.RedisAddr = "localhost:6379"
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject a backoff factor below one", func() {
			cfg.Retry.BackoffFactor = 0.5
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a service override with a zero threshold", func() {
			cfg.Breaker.Services = map[string]config.BreakerSettings{
				"weather": {FailureThreshold: 0, ResetTimeout: "30s", HalfOpenTimeout: "5s"},
			}
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})
})
