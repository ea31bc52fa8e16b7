package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string
	JWTSecret      string
	CORSOrigins    []string
	DefaultLocale  string
	GeoIPDBPath    string

	TextProvider      string
	ImageProvider     string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIImageModel  string
	OpenAIBaseURL     string
	OpenAIOrg         string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	ElevenLabsModel   string
	ElevenLabsVoice   string
	ProviderTimeout   time.Duration

	StorageDriver  string
	StoragePath    string
	StorageBaseURL string
	CloudinaryURL  string

	MaxScenes        int
	MaxLengthMinutes int
	StageTimeout     time.Duration
	MaxInFlight      int
	ShutdownDrain    time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	HousekeepingInterval  time.Duration
	HousekeepingStale     time.Duration
	HousekeepingRetention time.Duration
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	return loadConfig(true)
}

// LoadToolConfig is LoadConfig for operator tools that never verify tokens.
func LoadToolConfig() (*Config, error) {
	return loadConfig(false)
}

func loadConfig(requireAuth bool) (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           port,
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/studio.db"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		CORSOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3030")),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "en"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),

		TextProvider:      strings.ToLower(getEnv("TEXT_PROVIDER", "openai")),
		ImageProvider:     strings.ToLower(getEnv("IMAGE_PROVIDER", "openai")),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIImageModel:  getEnv("OPENAI_IMAGE_MODEL", "dall-e-3"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:         os.Getenv("OPENAI_ORG"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		ElevenLabsAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		ElevenLabsModel:   getEnv("ELEVENLABS_MODEL", "eleven_multilingual_v2"),
		ElevenLabsVoice:   getEnv("ELEVENLABS_DEFAULT_VOICE", "21m00Tcm4TlvDq8ikWAM"),
		ProviderTimeout:   time.Second * time.Duration(getEnvInt("PROVIDER_HTTP_TIMEOUT_SECONDS", 60)),

		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		CloudinaryURL:  os.Getenv("CLOUDINARY_URL"),

		MaxScenes:        getEnvInt("PIPELINE_MAX_SCENES", 5),
		MaxLengthMinutes: getEnvInt("PIPELINE_MAX_LENGTH_MINUTES", 10),
		StageTimeout:     time.Second * time.Duration(getEnvInt("PIPELINE_STAGE_TIMEOUT_SECONDS", 180)),
		MaxInFlight:      getEnvInt("PIPELINE_MAX_IN_FLIGHT", 32),
		ShutdownDrain:    time.Second * time.Duration(getEnvInt("SHUTDOWN_DRAIN_SECONDS", 60)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		HousekeepingInterval:  time.Second * time.Duration(getEnvInt("HOUSEKEEPING_INTERVAL_SECONDS", 300)),
		HousekeepingStale:     time.Minute * time.Duration(getEnvInt("HOUSEKEEPING_STALE_MINUTES", 60)),
		HousekeepingRetention: time.Hour * time.Duration(getEnvInt("HOUSEKEEPING_RETENTION_HOURS", 72)),
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	if requireAuth && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.StorageDriver {
	case "local":
	case "cloudinary":
		if cfg.CloudinaryURL == "" {
			return nil, fmt.Errorf("CLOUDINARY_URL is required for the cloudinary storage driver")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	for _, p := range []string{cfg.TextProvider, cfg.ImageProvider} {
		if p != "openai" && p != "gemini" {
			return nil, fmt.Errorf("unsupported provider %q", p)
		}
	}

	if cfg.MaxScenes <= 0 || cfg.MaxInFlight <= 0 || cfg.MaxLengthMinutes <= 0 {
		return nil, fmt.Errorf("pipeline limits must be positive")
	}

	return cfg, nil
}

// StorageHost returns the host serving stored objects, used by the thumbnail override allowlist.
func (c *Config) StorageHost() string {
	u, err := url.Parse(c.StorageBaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
