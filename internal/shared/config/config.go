package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	LogFormat       string
	LogLevel        string

	// Object storage for uploaded CVs and interview audio.
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	SQSQueueURL     string

	// Application database (users, documents, reports, conversations).
	DatabaseURL string
	AutoMigrate bool

	// Language models
	LLMProvider        string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAITimeoutSecs  int
	GeminiAPIKey       string
	RouterModel        string
	RouterTemperature  float64
	SQLModel           string
	RAGModel           string
	AdvisorModel       string
	InterviewModel     string
	EmbeddingModel     string
	EmbeddingDims      int
	TranscriptionModel string
	OrchestratorMode   string

	// Jobs database queried by the SQL agent.
	JobsDBType      string
	SQLiteDBPath    string
	JobsDatabaseURL string

	// Vector store queried by the RAG agent.
	VectorStore      string
	VectorCollection string
	WeaviateHost     string
	WeaviateScheme   string
	WeaviateAPIKey   string

	// Identity
	JWTSecret          string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string

	UsageLimit int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		SQSQueueURL:     getEnv("SQS_QUEUE_URL", ""),

		DatabaseURL: dbURL,
		AutoMigrate: getEnvBool("AUTO_MIGRATE", false),

		LLMProvider:        normalizeProvider(getEnv("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		OpenAITimeoutSecs:  getEnvInt("OPENAI_TIMEOUT_SECONDS", 60),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		RouterModel:        getEnv("ROUTER_MODEL", "gpt-4o-mini"),
		RouterTemperature:  getEnvFloat("ROUTER_TEMPERATURE", 0.7),
		SQLModel:           getEnv("SQL_MODEL", "gpt-3.5-turbo"),
		RAGModel:           getEnv("RAG_MODEL", "gpt-4o-mini"),
		AdvisorModel:       getEnv("ADVISOR_MODEL", "gpt-4o-mini"),
		InterviewModel:     getEnv("INTERVIEW_MODEL", "gpt-4o-mini"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDims:      getEnvInt("EMBEDDING_DIMENSIONS", 1536),
		TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		OrchestratorMode:   normalizeMode(getEnv("ORCHESTRATOR_MODE", "router")),

		JobsDBType:      normalizeJobsDBType(getEnv("JOBS_DB_TYPE", "sqlite")),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "data/processed/jobs.db"),
		JobsDatabaseURL: getEnv("JOBS_DATABASE_URL", ""),

		VectorStore:      normalizeVectorStore(getEnv("VECTOR_STORE", "memory")),
		VectorCollection: getEnv("VECTOR_COLLECTION", "job_market"),
		WeaviateHost:     getEnv("WEAVIATE_HOST", "localhost:8081"),
		WeaviateScheme:   getEnv("WEAVIATE_SCHEME", "http"),
		WeaviateAPIKey:   getEnv("WEAVIATE_API_KEY", ""),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),

		UsageLimit: getEnvInt("USAGE_LIMIT", 10),
	}

	if cfg.JobsDBType == "postgres" && cfg.JobsDatabaseURL == "" {
		cfg.JobsDatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			getEnv("JOBS_DB_USER", "postgres"),
			getEnv("JOBS_DB_PASSWORD", "postgres"),
			getEnv("JOBS_DB_HOST", "localhost"),
			getEnv("JOBS_DB_PORT", "5432"),
			getEnv("JOBS_DB_NAME", "postgres"),
		)
	}

	return cfg
}

// IsDev reports whether the process runs in a developer environment.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "local"
}

func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		// Load never overrides variables already present in the environment.
		if err := godotenv.Load(path); err != nil {
			log.Printf("skipping env file %s: %v", path, err)
		}
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
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
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "google":
		return "gemini"
	default:
		return "openai"
	}
}

func normalizeMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tools", "agent":
		return "tools"
	default:
		return "router"
	}
}

func normalizeJobsDBType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "postgresql", "pg":
		return "postgres"
	default:
		return "sqlite"
	}
}

func normalizeVectorStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pgvector", "postgres":
		return "pgvector"
	case "weaviate":
		return "weaviate"
	default:
		return "memory"
	}
}
