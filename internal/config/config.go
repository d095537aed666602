package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cadenza-app/cadenza/internal/domain"
)

// Config holds the cadenza API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	LLM       LLMConfig       `yaml:"llm"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Sources   SourcesConfig   `yaml:"sources"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File  string `yaml:"file"`  // optional rotated log file path
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RedisConfig holds the score store connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	ScoreTTLHours    int      `yaml:"score_ttl_hours"` // 0 = keep forever
}

// AnalyticsConfig holds the analytics database settings.
type AnalyticsConfig struct {
	Path string `yaml:"path"`
}

// LLMConfig holds the lesson generation provider settings. User is an
// optional end-user identifier forwarded to the provider for abuse tracking.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	User    string `yaml:"user"`
}

// ResolverConfig holds the resolution chain settings.
type ResolverConfig struct {
	Order           []string `yaml:"order"`             // catalog priority; defaults to all known
	ChainTimeoutSec int      `yaml:"chain_timeout_sec"` // whole-chain deadline
}

// SourcesConfig maps catalog name to its per-source tuning.
type SourcesConfig map[string]SourceConfig

// SourceConfig holds per-catalog fetch and matching settings.
type SourceConfig struct {
	Threshold       float64 `yaml:"threshold"` // match acceptance, strictly greater
	Retries         int     `yaml:"retries"`
	InitialDelayMs  int     `yaml:"initial_delay_ms"`
	TimeoutSec      int     `yaml:"timeout_sec"`
	RatePerSec      float64 `yaml:"rate_per_sec"`
	Burst           int     `yaml:"burst"`
	BreakerFailures int     `yaml:"breaker_failures"`
	BreakerResetSec int     `yaml:"breaker_reset_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Analytics.Path == "" {
		c.Analytics.Path = "cadenza.db"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if len(c.Resolver.Order) == 0 {
		for _, s := range domain.AllSources() {
			c.Resolver.Order = append(c.Resolver.Order, string(s))
		}
	}
	if c.Resolver.ChainTimeoutSec <= 0 {
		c.Resolver.ChainTimeoutSec = 45
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	for _, name := range c.Resolver.Order {
		if _, ok := domain.ParseSource(name); !ok {
			return fmt.Errorf("resolver.order contains unknown source %q", name)
		}
	}
	for name, sc := range c.Sources {
		if _, ok := domain.ParseSource(name); !ok {
			return fmt.Errorf("sources contains unknown source %q", name)
		}
		if sc.Threshold < 0 || sc.Threshold >= 1 {
			return fmt.Errorf("sources.%s.threshold must be in [0, 1), got %v", name, sc.Threshold)
		}
	}
	return nil
}

// ChainTimeout returns the whole-chain resolution deadline.
func (c *Config) ChainTimeout() time.Duration {
	return time.Duration(c.Resolver.ChainTimeoutSec) * time.Second
}

// ScoreTTL returns the score cache TTL, 0 meaning keep forever.
func (c *Config) ScoreTTL() time.Duration {
	return time.Duration(c.Redis.ScoreTTLHours) * time.Hour
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
