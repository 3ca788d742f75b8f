package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	StorageDriver  string
	StoragePath    string
	StorageBaseURL string
	StorageAPIURL  string
	StorageAPIKey  string
	StorageBucket  string

	RedisAddr        string
	InlineQuotaBytes int

	ReplicateAPIToken      string
	ReplicateBaseURL       string
	ReplicateModel         string
	ReplicateFallbackModel string
	ReplicatePollInterval  time.Duration
	ReplicateMaxPolls      int

	PredictFunctionURL    string
	PredictFunctionAPIKey string
	MaxConcurrentPredicts int
	PipelineMaxRetries    int
	PipelineRetryDelay    time.Duration
	SessionTTL            time.Duration

	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	return loadConfig(true)
}

// LoadCLIConfig is LoadConfig without the JWT secret, for commands that
// never serve HTTP.
func LoadCLIConfig() (*Config, error) {
	return loadConfig(false)
}

func loadConfig(requireSecret bool) (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        port,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", "file")),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: strings.TrimRight(getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/storage"), "/"),
		StorageAPIURL:  strings.TrimRight(os.Getenv("STORAGE_API_URL"), "/"),
		StorageAPIKey:  os.Getenv("STORAGE_API_KEY"),
		StorageBucket:  getEnv("STORAGE_BUCKET", "ancestor-photos"),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		InlineQuotaBytes: getEnvInt("INLINE_QUOTA_BYTES", 5*1024*1024),

		ReplicateAPIToken:      os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:       getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		ReplicateModel:         getEnv("REPLICATE_MODEL", "stability-ai/sdxl:c221b2b8ef527988fb59bf24a8b97c4561f1c671f73bd389f866bfb27c061316"),
		ReplicateFallbackModel: getEnv("REPLICATE_FALLBACK_MODEL", "stability-ai/stable-diffusion-xl-1024-v1-0:933f815b357e11039d1cc8dd339f4b82d35d5973b775addb7144c9eda74c4064"),
		ReplicatePollInterval:  time.Second * time.Duration(getEnvInt("REPLICATE_POLL_INTERVAL_SECONDS", 3)),
		ReplicateMaxPolls:      getEnvInt("REPLICATE_MAX_POLLS", 50),

		PredictFunctionURL:    os.Getenv("PREDICT_FUNCTION_URL"),
		PredictFunctionAPIKey: os.Getenv("PREDICT_FUNCTION_API_KEY"),
		MaxConcurrentPredicts: getEnvInt("MAX_CONCURRENT_PREDICTS", 4),
		PipelineMaxRetries:    getEnvInt("PIPELINE_MAX_RETRIES", 2),
		PipelineRetryDelay:    time.Second * time.Duration(getEnvInt("PIPELINE_RETRY_DELAY_SECONDS", 2)),
		SessionTTL:            time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.PredictFunctionURL == "" {
		cfg.PredictFunctionURL = "http://localhost:" + port + "/functions/v1/predict-ancestor"
	}

	if requireSecret && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.StorageDriver {
	case "file":
	case "http":
		if cfg.StorageAPIURL == "" {
			return nil, fmt.Errorf("STORAGE_API_URL is required when STORAGE_DRIVER=http")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.PipelineMaxRetries < 0 {
		cfg.PipelineMaxRetries = 0
	}

	return cfg, nil
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
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
