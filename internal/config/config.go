// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server, logging,
// storage, scheduler, avatar cache, AI provider and observability settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SchedulerConfig tunes post generation.
type SchedulerConfig struct {
	Interval          time.Duration // SCHEDULER_INTERVAL; 0 disables the background runner
	RecentWindow      int           // RECENT_AUTHOR_WINDOW
	MaxBatch          int           // MAX_BATCH
	CinemagraphChance float64       // CINEMAGRAPH_CHANCE in [0,1]
	RandomSeed        int64         // RANDOM_SEED; 0 is time based
	HomeCountry       string        // HOME_COUNTRY
	MinConfidence     float64       // VISION_MIN_CONFIDENCE in [0,1]
}

// AvatarConfig selects and sizes the durable avatar tier.
type AvatarConfig struct {
	Store     string // AVATAR_STORE: memory|sqlite|redis
	Capacity  int    // AVATAR_CAPACITY
	KeyPrefix string // AVATAR_KEY_PREFIX
}

// RedisConfig is used when AVATAR_STORE=redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AIConfig selects the generation collaborators.
type AIConfig struct {
	Provider         string // AI_PROVIDER: offline|gemini
	GeminiAPIKey     string
	GeminiTextModel  string
	GeminiImageModel string

	CopyProvider  string // COPY_PROVIDER: ai|openai
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // generation requests are slow
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int    // bytes
	MaxBodyBytes      int64  // analyze uploads carry base64 images
	GinMode           string // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// Storage
	DBPath      string // SQLite path
	CatalogPath string // optional YAML catalog override

	// Rate limiting (generation and analysis routes)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration

	Scheduler SchedulerConfig
	Avatar    AvatarConfig
	Redis     RedisConfig
	AI        AIConfig

	// Observability
	OTEL OTELConfig
}

// LoadDotEnv loads variables from the given files (".env" when none) without
// overriding variables already set. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 5*time.Minute),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 15*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 8<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DBPath:      getenv("DB_PATH", "kkitchen.db"),
		CatalogPath: getenv("CATALOG_PATH", ""),

		RateRPS:   getfloat("RATE_RPS", 0.5),
		RateBurst: getint("RATE_BURST", 3),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Scheduler: SchedulerConfig{
			Interval:          getdur("SCHEDULER_INTERVAL", 0),
			RecentWindow:      getint("RECENT_AUTHOR_WINDOW", 5),
			MaxBatch:          getint("MAX_BATCH", 10),
			CinemagraphChance: getfloat("CINEMAGRAPH_CHANCE", 0.5),
			RandomSeed:        int64(getint("RANDOM_SEED", 0)),
			HomeCountry:       getenv("HOME_COUNTRY", "Korea"),
			MinConfidence:     getfloat("VISION_MIN_CONFIDENCE", 0.6),
		},
		Avatar: AvatarConfig{
			Store:     strings.ToLower(getenv("AVATAR_STORE", "memory")),
			Capacity:  getint("AVATAR_CAPACITY", 50),
			KeyPrefix: getenv("AVATAR_KEY_PREFIX", "k-kitchen-avatar-"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},
		AI: AIConfig{
			Provider:         strings.ToLower(getenv("AI_PROVIDER", "offline")),
			GeminiAPIKey:     getenv("GEMINI_API_KEY", ""),
			GeminiTextModel:  getenv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
			GeminiImageModel: getenv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			CopyProvider:     strings.ToLower(getenv("COPY_PROVIDER", "ai")),
			OpenAIAPIKey:     getenv("OPENAI_API_KEY", ""),
			OpenAIModel:      getenv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:    getenv("OPENAI_BASE_URL", ""),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "k-kitchen"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 || cfg.MaxBodyBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES and MAX_BODY_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}

	s := cfg.Scheduler
	if s.Interval < 0 {
		return errors.New("SCHEDULER_INTERVAL must be >= 0")
	}
	if s.RecentWindow < 0 {
		return errors.New("RECENT_AUTHOR_WINDOW must be >= 0")
	}
	if s.MaxBatch < 1 {
		return errors.New("MAX_BATCH must be >= 1")
	}
	if s.CinemagraphChance < 0 || s.CinemagraphChance > 1 {
		return errors.New("CINEMAGRAPH_CHANCE must be in [0,1]")
	}
	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		return errors.New("VISION_MIN_CONFIDENCE must be in [0,1]")
	}

	switch cfg.Avatar.Store {
	case "memory", "sqlite", "redis":
	default:
		return errors.New("AVATAR_STORE must be one of: memory, sqlite, redis")
	}
	if cfg.Avatar.Capacity < 1 {
		return errors.New("AVATAR_CAPACITY must be >= 1")
	}
	if cfg.Avatar.Store == "redis" && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("REDIS_ADDR is required when AVATAR_STORE=redis")
	}

	switch cfg.AI.Provider {
	case "offline":
	case "gemini":
		if cfg.AI.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required when AI_PROVIDER=gemini")
		}
	default:
		return errors.New("AI_PROVIDER must be one of: offline, gemini")
	}
	switch cfg.AI.CopyProvider {
	case "ai":
	case "openai":
		if cfg.AI.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required when COPY_PROVIDER=openai")
		}
	default:
		return errors.New("COPY_PROVIDER must be one of: ai, openai")
	}

	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
