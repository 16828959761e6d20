package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	RateLimit  RateLimitConfig
	Model      ModelConfig
	Validation ValidationConfig
	Audit      AuditConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	BodyLimit      string
	// TrustProxy resolves the client address from X-Forwarded-For (API gateway / CDN in front).
	TrustProxy  bool
	Environment string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	// URL (redis:// or rediss://) takes precedence over Host/Port/Password/DB.
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
	File   string // optional rotating file sink
}

// Rate limit backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type RateLimitConfig struct {
	Backend        string
	MaxPerWindow   int
	Window         time.Duration
	KeyPrefix      string
	StoreTimeout   time.Duration
	Skip           bool
	JanitorEvery   time.Duration
	HashIdentities bool
}

// Model providers.
const (
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
)

type ModelConfig struct {
	Provider    string
	ModelID     string
	Region      string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	MaxRPS      float64
	Burst       int
}

type ValidationConfig struct {
	MinLength      int
	MaxLength      int
	MaxSuggestions int
}

type AuditConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 150*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("SERVER_ALLOWED_ORIGINS", []string{"*"}),
			BodyLimit:      getEnv("SERVER_BODY_LIMIT", "64K"),
			TrustProxy:     getBoolEnv("SERVER_TRUST_PROXY", false),
			Environment:    getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Enabled:         getBoolEnv("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "requirements_evaluator"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 2*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		RateLimit: RateLimitConfig{
			Backend:        strings.ToLower(getEnv("RATE_LIMIT_BACKEND", BackendRedis)),
			MaxPerWindow:   getIntEnv("RATE_LIMIT_MAX", 50),
			Window:         getDurationEnv("RATE_LIMIT_WINDOW", 24*time.Hour),
			KeyPrefix:      getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:client"),
			StoreTimeout:   getDurationEnv("RATE_LIMIT_STORE_TIMEOUT", time.Second),
			Skip:           getBoolEnv("SKIP_RATE_LIMIT", false),
			JanitorEvery:   getDurationEnv("RATE_LIMIT_JANITOR_EVERY", 10*time.Minute),
			HashIdentities: getBoolEnv("RATE_LIMIT_HASH_IDENTITIES", true),
		},
		Model: ModelConfig{
			Provider:    strings.ToLower(getEnv("MODEL_PROVIDER", ProviderBedrock)),
			ModelID:     getEnv("MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
			Region:      getEnv("MODEL_REGION", "us-east-1"),
			BaseURL:     getEnv("MODEL_BASE_URL", ""),
			APIKey:      getEnv("MODEL_API_KEY", ""),
			Timeout:     getDurationEnv("MODEL_TIMEOUT", 30*time.Second),
			Temperature: getFloatEnv("MODEL_TEMPERATURE", 0.2),
			MaxTokens:   getIntEnv("MODEL_MAX_TOKENS", 1024),
			MaxRPS:      getFloatEnv("MODEL_MAX_RPS", 0),
			Burst:       getIntEnv("MODEL_BURST", 5),
		},
		Validation: ValidationConfig{
			MinLength:      getIntEnv("REQUIREMENT_MIN_LENGTH", 10),
			MaxLength:      getIntEnv("REQUIREMENT_MAX_LENGTH", 5000),
			MaxSuggestions: getIntEnv("MAX_SUGGESTIONS", 5),
		},
		Audit: AuditConfig{
			Enabled: getBoolEnv("AUDIT_ENABLED", true),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic; got %q", c.Log.Level)
	}
	switch c.RateLimit.Backend {
	case BackendRedis, BackendMemory:
	case BackendPostgres:
		if !c.Database.Enabled {
			return fmt.Errorf("RATE_LIMIT_BACKEND=postgres requires DB_ENABLED=true")
		}
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}
	if c.RateLimit.MaxPerWindow < 1 || c.RateLimit.MaxPerWindow > 10000 {
		return fmt.Errorf("RATE_LIMIT_MAX must be between 1 and 10000, got %d", c.RateLimit.MaxPerWindow)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	switch c.Model.Provider {
	case ProviderBedrock:
		if len(c.Model.Region) < 3 {
			return fmt.Errorf("MODEL_REGION appears invalid: %q", c.Model.Region)
		}
	case ProviderOpenAI:
		if c.Model.BaseURL == "" {
			return fmt.Errorf("MODEL_BASE_URL is required for provider %s", c.Model.Provider)
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unknown MODEL_PROVIDER %q", c.Model.Provider)
	}
	if c.Model.ModelID == "" {
		return fmt.Errorf("MODEL_ID is required")
	}
	if c.Model.Timeout < 5*time.Second || c.Model.Timeout > 120*time.Second {
		return fmt.Errorf("MODEL_TIMEOUT must be between 5s and 120s, got %s", c.Model.Timeout)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("MODEL_TEMPERATURE must be between 0 and 1, got %v", c.Model.Temperature)
	}
	if c.Model.MaxTokens < 256 || c.Model.MaxTokens > 4096 {
		return fmt.Errorf("MODEL_MAX_TOKENS must be between 256 and 4096, got %d", c.Model.MaxTokens)
	}
	if c.Model.MaxRPS < 0 {
		return fmt.Errorf("MODEL_MAX_RPS must not be negative")
	}
	if c.Validation.MinLength < 1 {
		return fmt.Errorf("REQUIREMENT_MIN_LENGTH must be at least 1, got %d", c.Validation.MinLength)
	}
	if c.Validation.MaxLength < 100 || c.Validation.MaxLength <= c.Validation.MinLength {
		return fmt.Errorf("REQUIREMENT_MAX_LENGTH must be at least 100 and greater than the minimum, got %d", c.Validation.MaxLength)
	}
	if c.Validation.MaxSuggestions < 1 || c.Validation.MaxSuggestions > evaluation.MaxSuggestions {
		return fmt.Errorf("MAX_SUGGESTIONS must be between 1 and %d, got %d", evaluation.MaxSuggestions, c.Validation.MaxSuggestions)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
