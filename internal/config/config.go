package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	SourceSQLite = "sqlite"
	SourceMongo  = "mongo"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv   string
	DBPath   string
	DBDriver string

	// ResponseSource selects where survey responses are read from: sqlite or mongo.
	ResponseSource string
	MongoURI       string
	MongoDatabase  string

	RedisAddr    string
	CacheEnabled bool
	CacheTTL     time.Duration

	GRPCPort              int
	GRPCReflectionEnabled bool
	HTTPAddr              string
	CORSOrigins           []string

	LLMProvider string
	LLMAPIKey   string
	LLMModel    string
	LLMBaseURL  string
	LLMTimeout  time.Duration

	DetractorMin int
	Period       string
	TopAspects   int
	TopTerms     int
}

// Load reads .env files if present, then the environment.
func Load(files ...string) *Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", "openai"))

	return &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		DBPath:   getEnv("DB_PATH", "./data/nps.db"),
		DBDriver: getEnv("DB_DRIVER", "sqlite3"),

		ResponseSource: strings.ToLower(getEnv("RESPONSE_SOURCE", SourceSQLite)),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "NPSResponsesDB"),

		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		CacheEnabled: getBool("CACHE_ENABLED", true),
		CacheTTL:     getDuration("CACHE_TTL", 10*time.Minute),

		GRPCPort:              getInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		CORSOrigins:           getList("CORS_ORIGINS"),

		LLMProvider: provider,
		LLMAPIKey:   apiKeyFor(provider),
		LLMModel:    getEnv("LLM_MODEL", ""),
		LLMBaseURL:  getEnv("LLM_BASE_URL", ""),
		LLMTimeout:  getDuration("LLM_TIMEOUT", 60*time.Second),

		DetractorMin: getInt("NPS_DETRACTOR_MIN", 0),
		Period:       strings.ToLower(getEnv("NPS_PERIOD", "month")),
		TopAspects:   getInt("NPS_TOP_ASPECTS", 5),
		TopTerms:     getInt("NPS_TOP_TERMS", 50),
	}
}

// Validate reports settings that would fail later at wiring time.
func (c *Config) Validate() error {
	var errs []error
	switch c.ResponseSource {
	case SourceSQLite, SourceMongo:
	default:
		errs = append(errs, fmt.Errorf("RESPONSE_SOURCE must be %q or %q, got %q", SourceSQLite, SourceMongo, c.ResponseSource))
	}
	if c.DetractorMin != 0 && c.DetractorMin != 1 {
		errs = append(errs, fmt.Errorf("NPS_DETRACTOR_MIN must be 0 or 1, got %d", c.DetractorMin))
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("GRPC_PORT out of range: %d", c.GRPCPort))
	}
	if c.TopAspects <= 0 || c.TopTerms <= 0 {
		errs = append(errs, errors.New("NPS_TOP_ASPECTS and NPS_TOP_TERMS must be positive"))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// apiKeyFor prefers LLM_API_KEY and falls back to the provider's conventional variable.
func apiKeyFor(provider string) string {
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		return key
	}
	if provider == "anthropic" {
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return os.Getenv("OPENAI_API_KEY")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}

// getDuration accepts Go durations ("90s") or plain seconds ("90").
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
