// Package config loads the engine's process configuration from environment
// variables, with optional YAML overlay: defaults -> YAML file -> env vars,
// with required keys validated after load.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the engine's complete runtime configuration.
type Config struct {
	Benefits      BenefitsConfig `yaml:"benefits" env:"BENEFITS"`
	Accumulators  UpstreamConfig `yaml:"accumulators" env:"ACCUMULATORS"`
	Token         TokenConfig    `yaml:"token" env:"TOKEN"`
	Resilience    ResilienceConfig `yaml:"resilience" env:"RESILIENCE"`
	RateDB        RateDBConfig   `yaml:"rate_db" env:"RATE_DB"`
	SpecialtyCache SpecialtyCacheConfig `yaml:"specialty_cache" env:"SPECIALTY_CACHE"`
	Log           LogConfig      `yaml:"log" env:"LOG"`
	Telemetry     TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
	RequestDeadline time.Duration `yaml:"request_deadline" env:"REQUEST_DEADLINE"`
}

// UpstreamConfig configures one resilient-HTTP-client endpoint (Benefits or
// Accumulators).
type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	InsecureTLS bool          `yaml:"insecure_tls" env:"INSECURE_TLS"`
}

// BenefitsConfig configures the Benefits endpoint plus the two constants the
// wire request requires alongside each query (spec §6's benefitProductType
// and planIdentifier) but doesn't say where they come from — treated here as
// deployment-level configuration rather than per-request fields, since a
// single engine deployment serves one plan/product combination.
type BenefitsConfig struct {
	BaseURL            string        `yaml:"base_url" env:"BASE_URL"`
	Timeout            time.Duration `yaml:"timeout" env:"TIMEOUT"`
	InsecureTLS        bool          `yaml:"insecure_tls" env:"INSECURE_TLS"`
	BenefitProductType string        `yaml:"benefit_product_type" env:"BENEFIT_PRODUCT_TYPE"`
	PlanIdentifier     string        `yaml:"plan_identifier" env:"PLAN_IDENTIFIER"`
}

// TokenConfig configures the OAuth token issuer endpoint.
type TokenConfig struct {
	URL          string `yaml:"url" env:"URL"`
	ClientID     string `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"CLIENT_SECRET"`
}

// ResilienceConfig configures the shared breaker/retry policy applied to
// both upstream clients (spec §4.2 gives both the same defaults; there is
// no per-endpoint override).
type ResilienceConfig struct {
	RetryMaxAttempts int           `yaml:"retry_max_attempts" env:"RETRY_MAX_ATTEMPTS"`
	BackoffMinSec    int           `yaml:"backoff_min_sec" env:"BACKOFF_MIN_SEC"`
	BackoffMaxSec    int           `yaml:"backoff_max_sec" env:"BACKOFF_MAX_SEC"`
	CircuitThreshold int           `yaml:"circuit_threshold" env:"CIRCUIT_THRESHOLD"`
	CircuitCooldownSec int         `yaml:"circuit_cooldown_sec" env:"CIRCUIT_COOLDOWN_SEC"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls" env:"HALF_OPEN_MAX_CALLS"`
}

// RateDBConfig configures the negotiated-rate store's Postgres connection.
type RateDBConfig struct {
	DSN string `yaml:"dsn" env:"DSN"`
}

// SpecialtyCacheConfig configures the Redis-backed PCP specialty-code cache.
type SpecialtyCacheConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	DB              int           `yaml:"db" env:"DB"`
	SetKey          string        `yaml:"set_key" env:"SET_KEY"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"REFRESH_INTERVAL"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string   `yaml:"level" env:"LEVEL"`
	Format      string   `yaml:"format" env:"FORMAT"`
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig configures OTel export and the Prometheus metrics listener.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	MetricsPort  int     `yaml:"metrics_port" env:"METRICS_PORT"`
}

// Default returns the engine's baseline configuration (spec §6's stated
// defaults: 3 retry attempts, [4s,10s] backoff, breaker threshold 5 /
// cooldown 30s).
func Default() *Config {
	return &Config{
		Benefits: BenefitsConfig{
			BenefitProductType: "MEDICAL",
			PlanIdentifier:     "DEFAULT",
		},
		Resilience: ResilienceConfig{
			RetryMaxAttempts:   3,
			BackoffMinSec:      4,
			BackoffMaxSec:      10,
			CircuitThreshold:   5,
			CircuitCooldownSec: 30,
			HalfOpenMaxCalls:   1,
		},
		RequestDeadline: 30 * time.Second,
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "benefit-estimator",
			SampleRate:   1.0,
			MetricsPort:  9091,
		},
		SpecialtyCache: SpecialtyCacheConfig{
			SetKey:          "pcp-specialty-codes",
			RefreshInterval: 5 * time.Minute,
		},
	}
}

// Loader loads a Config from an optional YAML file overlaid with
// environment variables, priority: defaults -> YAML file -> env vars.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader builds a Loader with the engine's default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "ESTIMATOR"}
}

// WithConfigPath sets an optional YAML file to overlay onto the defaults.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load builds the final Config and validates required keys.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(envKey)
		if !ok || raw == "" {
			continue
		}
		if err := setFieldValue(field, raw); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// Validate enforces the start-up-fatal required keys: the Benefits,
// Accumulators, and Token URLs and the rate store DSN must be configured;
// everything else has a usable default.
func (c *Config) Validate() error {
	var errs []string
	if c.Benefits.BaseURL == "" {
		errs = append(errs, "benefits base_url is required")
	}
	if c.Accumulators.BaseURL == "" {
		errs = append(errs, "accumulators base_url is required")
	}
	if c.Token.URL == "" {
		errs = append(errs, "token url is required")
	}
	if c.RateDB.DSN == "" {
		errs = append(errs, "rate_db dsn is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
