package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCachetBaseURL is used when neither the config file nor CACHET_BASE_URL names a Cachet instance.
const DefaultCachetBaseURL = "http://localhost:8000"

// Status policies accepted by reconcile.statusPolicy.
const (
	StatusPolicyAlert = "alert"
	StatusPolicyBatch = "batch"
)

// Config captures the settings required to boot the bridge.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cachet    CachetConfig    `yaml:"cachet"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the webhook, metrics and gRPC health listeners.
type ServerConfig struct {
	Address           string        `yaml:"address"`
	MetricsAddress    string        `yaml:"metricsAddress"`
	GRPCHealthAddress string        `yaml:"grpcHealthAddress"`
	GracefulTimeout   time.Duration `yaml:"gracefulTimeout"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	MaxBodyBytes      int64         `yaml:"maxBodyBytes"`
}

// CachetConfig configures access to the Cachet status page API.
type CachetConfig struct {
	BaseURL   string        `yaml:"baseURL"`
	AuthToken string        `yaml:"authToken"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DispatchConfig bounds the per-request fan-out of status updates.
type DispatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// ReconcileConfig selects which status field drives resolution.
type ReconcileConfig struct {
	StatusPolicy string `yaml:"statusPolicy"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from an optional YAML file and environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CACHET_BRIDGE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         "0.0.0.0:8888",
			GracefulTimeout: 10 * time.Second,
			ReadTimeout:     10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Cachet: CachetConfig{
			BaseURL: DefaultCachetBaseURL,
			Timeout: 10 * time.Second,
		},
		Dispatch:  DispatchConfig{Concurrency: 8},
		Reconcile: ReconcileConfig{StatusPolicy: StatusPolicyAlert},
		Logging:   LoggingConfig{Level: "warn"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BIND_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("GRPC_HEALTH_ADDRESS"); v != "" {
		cfg.Server.GRPCHealthAddress = v
	}
	if v := os.Getenv("GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("CACHET_BASE_URL"); v != "" {
		cfg.Cachet.BaseURL = v
	}
	if v := os.Getenv("CACHET_AUTH_TOKEN"); v != "" {
		cfg.Cachet.AuthToken = v
	}
	if v := os.Getenv("CACHET_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cachet.Timeout = d
		}
	}
	if v := os.Getenv("DISPATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dispatch.Concurrency = n
		}
	}
	if v := os.Getenv("STATUS_POLICY"); v != "" {
		cfg.Reconcile.StatusPolicy = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Server.Address) == "" {
		return errors.New("server.address is required")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.maxBodyBytes must be positive, got %d", cfg.Server.MaxBodyBytes)
	}
	u, err := url.Parse(cfg.Cachet.BaseURL)
	if err != nil {
		return fmt.Errorf("cachet.baseURL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("cachet.baseURL %q must use http or https", cfg.Cachet.BaseURL)
	}
	if cfg.Cachet.Timeout <= 0 {
		return errors.New("cachet.timeout must be positive")
	}
	if cfg.Dispatch.Concurrency <= 0 {
		return fmt.Errorf("dispatch.concurrency must be positive, got %d", cfg.Dispatch.Concurrency)
	}
	switch cfg.Reconcile.StatusPolicy {
	case StatusPolicyAlert, StatusPolicyBatch:
	default:
		return fmt.Errorf("reconcile.statusPolicy %q unknown: want %s|%s", cfg.Reconcile.StatusPolicy, StatusPolicyAlert, StatusPolicyBatch)
	}
	return nil
}
