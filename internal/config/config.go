package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the smartsearch client and mock server configuration.
type Config struct {
	Client     ClientConfig     `yaml:"client"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Database   DatabaseConfig   `yaml:"database"`
	HTTP       HTTPConfig       `yaml:"http"`
	Mock       MockConfig       `yaml:"mock"`
	Correction CorrectionConfig `yaml:"correction"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for the mock server.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// ClientConfig selects and tunes the search backend the client talks to.
type ClientConfig struct {
	Transport       string `yaml:"transport"` // http, mock (default: http)
	BaseURL         string `yaml:"base_url"`
	Token           string `yaml:"token"`
	Streaming       bool   `yaml:"streaming"`
	RateLimit       int    `yaml:"rate_limit"` // requests per second, 0 = unlimited
	TimeoutSec      int    `yaml:"timeout_sec"`
	StreamChunkSize int    `yaml:"stream_chunk_size"`
	MaxQueryRunes   int    `yaml:"max_query_runes"`
	PageSize        int    `yaml:"page_size"`
	CacheTTLSec     int    `yaml:"cache_ttl_sec"` // 0 = entries never go stale
	Admin           bool   `yaml:"admin"`
}

// TelemetryConfig selects where "duration already sent" markers live.
type TelemetryConfig struct {
	Store string `yaml:"store"` // memory, file, redis (default: memory)
	Path  string `yaml:"path"`  // file store location
}

// HTTPConfig holds mock server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// MockConfig tunes the in-process backend.
type MockConfig struct {
	LatencyMs     int `yaml:"latency_ms"`
	StreamDelayMs int `yaml:"stream_delay_ms"`
}

// DatabaseConfig holds Redis/Valkey connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// CorrectionConfig selects how the mock backend corrects queries.
type CorrectionConfig struct {
	Provider    string `yaml:"provider"` // none, vocabulary, openai (default: vocabulary)
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // cached in Redis when database.addrs is set
}

// UsesRedis reports whether any component needs the Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Telemetry.Store == "redis" || (c.Correction.Provider == "openai" && len(c.Database.Addrs) > 0)
}

// Load reads configuration from a YAML file by environment name (local, mock, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML file.
func LoadFile(configPath string) (Config, error) {
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
	if c.Client.Transport == "" {
		c.Client.Transport = "http"
	}
	if c.Client.TimeoutSec <= 0 {
		c.Client.TimeoutSec = 30
	}
	if c.Client.MaxQueryRunes <= 0 {
		c.Client.MaxQueryRunes = 300
	}
	if c.Client.PageSize <= 0 {
		c.Client.PageSize = 10
	}
	if c.Telemetry.Store == "" {
		c.Telemetry.Store = "memory"
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Correction.Provider == "" {
		c.Correction.Provider = "vocabulary"
	}
	if c.Correction.Model == "" {
		c.Correction.Model = "gpt-4o-mini"
	}
	if c.Correction.CacheTTLSec <= 0 {
		c.Correction.CacheTTLSec = 86400
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "smartsearch:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Client.Transport {
	case "http":
		if c.Client.BaseURL == "" {
			return fmt.Errorf("client.base_url is required for the http transport")
		}
	case "mock":
	default:
		return fmt.Errorf("client.transport must be \"http\" or \"mock\", got %q", c.Client.Transport)
	}
	if c.Client.RateLimit < 0 {
		return fmt.Errorf("client.rate_limit must be >= 0, got %d", c.Client.RateLimit)
	}
	switch c.Telemetry.Store {
	case "memory":
	case "file":
		if c.Telemetry.Path == "" {
			return fmt.Errorf("telemetry.path is required for the file store")
		}
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis store")
		}
	default:
		return fmt.Errorf("telemetry.store must be \"memory\", \"file\" or \"redis\", got %q", c.Telemetry.Store)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Correction.Provider {
	case "none", "vocabulary":
	case "openai":
		if c.Correction.APIKey == "" {
			return fmt.Errorf("correction.api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf(
			"correction.provider must be \"none\", \"vocabulary\" or \"openai\", got %q",
			c.Correction.Provider,
		)
	}
	return nil
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
