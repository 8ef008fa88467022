package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Report generator providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

const defaultMaxBodyBytes int64 = 25 << 20

// Config holds application configuration.
type Config struct {
	Env              string
	Port             string
	DatabaseURL      string
	CORSAllowOrigins []string
	MaxBodyBytes     int64

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	ReportProvider string
	ReportModel    string
	GeminiAPIKey   string
	OpenAIAPIKey   string
	ReportTimeout  time.Duration

	SQSQueueURL string
	CatalogPath string
}

// Load reads configuration from the environment. Local .env files are
// loaded first, without overriding variables that are already set.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Env:              env,
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      dbURL,
		CORSAllowOrigins: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		MaxBodyBytes:     getEnvInt64("MAX_BODY_BYTES", defaultMaxBodyBytes),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		ReportProvider: normalizeProvider(getEnv("REPORT_PROVIDER", ProviderGemini)),
		ReportModel:    getEnv("REPORT_MODEL", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		ReportTimeout:  time.Duration(getEnvInt64("REPORT_TIMEOUT_SECONDS", 120)) * time.Second,

		SQSQueueURL: getEnv("SQS_QUEUE_URL", ""),
		CatalogPath: getEnv("KB_CATALOG_PATH", ""),
	}
}

func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("env file %s ignored: %v", path, err)
		}
	}
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid, using %d", key, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "s3") {
		return "s3"
	}
	return "local"
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ProviderOpenAI:
		return ProviderOpenAI
	case ProviderNone, "off", "disabled":
		return ProviderNone
	default:
		return ProviderGemini
	}
}
