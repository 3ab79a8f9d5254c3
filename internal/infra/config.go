package infra

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Image host backends selectable through IMAGE_HOST.
const (
	ImageHostCloudflare = "cloudflare"
	ImageHostS3         = "s3"
)

// Config represents application configuration loaded from environment variables.
// It is built once at process start and handed to every collaborator; nothing
// below cmd/ reads the environment on its own.
type Config struct {
	AppEnv string
	Port   string

	Channel3APIKey  string
	Channel3BaseURL string

	ImageHost             string
	CloudflareAccountID   string
	CloudflareImagesToken string
	CloudflareImagesHash  string
	CloudflareBaseURL     string
	S3Bucket              string
	S3Region              string
	S3UploadPrefix        string
	ImageUploadExpiry     time.Duration

	GlamAIAPIKey  string
	GlamAIBaseURL string

	TryOnPollInterval time.Duration
	TryOnPollTimeout  time.Duration
	UpstreamTimeout   time.Duration

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

// LoadDotEnv reads .env.local then .env when present. Variables already set in
// the process environment win, and missing files are skipped.
func LoadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Provider credentials are optional here; operations that need them report a
// configuration error at request time instead of refusing to boot.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		Port:                  getEnv("PORT", "8080"),
		Channel3APIKey:        strings.TrimSpace(os.Getenv("CHANNEL3_API_KEY")),
		Channel3BaseURL:       getEnv("CHANNEL3_BASE_URL", "https://api.trychannel3.com/v0"),
		ImageHost:             strings.ToLower(getEnv("IMAGE_HOST", ImageHostCloudflare)),
		CloudflareAccountID:   strings.TrimSpace(os.Getenv("CLOUDFLARE_ACCOUNT_ID")),
		CloudflareImagesToken: strings.TrimSpace(os.Getenv("CLOUDFLARE_IMAGES_API_TOKEN")),
		CloudflareImagesHash:  strings.TrimSpace(os.Getenv("CLOUDFLARE_IMAGES_ACCOUNT_HASH")),
		CloudflareBaseURL:     getEnv("CLOUDFLARE_BASE_URL", "https://api.cloudflare.com/client/v4"),
		S3Bucket:              strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:              strings.TrimSpace(os.Getenv("S3_REGION")),
		S3UploadPrefix:        getEnv("S3_UPLOAD_PREFIX", "uploads"),
		ImageUploadExpiry:     time.Minute * time.Duration(getEnvInt("IMAGE_UPLOAD_EXPIRY_MINUTES", 30)),
		GlamAIAPIKey:          strings.TrimSpace(os.Getenv("GLAM_AI_API_KEY")),
		GlamAIBaseURL:         getEnv("GLAM_AI_BASE_URL", "https://api.glam.ai/api/v1"),
		TryOnPollInterval:     time.Millisecond * time.Duration(getEnvInt("TRYON_POLL_INTERVAL_MS", 2000)),
		TryOnPollTimeout:      time.Second * time.Duration(getEnvInt("TRYON_POLL_TIMEOUT_SECONDS", 60)),
		UpstreamTimeout:       time.Second * time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 45)),
		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:       getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins:    splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"http://localhost:3000", "http://localhost:" + cfg.Port}
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && i > 0 {
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
