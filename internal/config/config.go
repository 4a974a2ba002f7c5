package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Nats     NatsConfig
	Keys     APIKeys
	Ai       AIConfig
	Rag      RagConfig
	Store    StoreConfig
	Data     DataConfig
	Worker   WorkerConfig
	Otel     OtelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	SessionSecret      string
	SessionTTL         time.Duration
	MaxSessions        int
	AdminToken         string
	InstanceID         string
}

type DatabaseConfig struct {
	// Connection is optional; without it predictions are not logged.
	Connection string
}

type RedisConfig struct {
	// URL is optional; without it task status stays in process memory.
	URL string
}

type NatsConfig struct {
	// URL is optional; without it bundle installs are not announced to other instances.
	URL string
}

type APIKeys struct {
	OpenAI       string
	Anthropic    string
	GoogleGemini string
	Jina         string
}

type AIConfig struct {
	EmbeddingProvider  string // "openai", "ollama", "gemini", "jina" or "local"
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingBatchSize int
	EmbeddingTimeout   time.Duration
	EmbeddingRPS       float64
	OpenAIBaseURL      string
	OllamaBaseURL      string
	LLMProvider        string // "ollama", "openai" or "anthropic"
	LLMModel           string
	LLMBaseURL         string
	CompletionTimeout  time.Duration
	MaxTokens          int
}

type RagConfig struct {
	DefaultK      int
	OverFetch     int
	BatchLimit    int
	BatchWorkers  int
	EvaluateLimit int
}

type StoreConfig struct {
	Backend     string // "local", "minio" or "s3"
	LocalRoot   string
	Compression string // "none", "zstd" or "lz4"
	Bucket      string
	Prefix      string
	Endpoint    string
	Region      string
	AccessKey   string
	SecretKey   string
	UseSSL      bool
}

type DataConfig struct {
	DatasetPath string
	ModelPath   string
	Watch       bool
}

type WorkerConfig struct {
	Concurrency int
	TaskTTL     time.Duration
}

type OtelConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	hostname, _ := os.Hostname()

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			SessionSecret:      getEnv("SESSION_SECRET", "change-me"),
			SessionTTL:         getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			MaxSessions:        getEnvAsInt("MAX_SESSIONS", 256),
			AdminToken:         getEnv("ADMIN_TOKEN", ""),
			InstanceID:         getEnv("INSTANCE_ID", hostname),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Nats: NatsConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Keys: APIKeys{
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			Anthropic:    getEnv("ANTHROPIC_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "local"),
			EmbeddingModel:     getEnv("EMBEDDING_MODEL", ""),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 256),
			EmbeddingBatchSize: getEnvAsInt("BATCH_SIZE", 100),
			EmbeddingTimeout:   getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			EmbeddingRPS:       getEnvAsFloat("EMBEDDING_RPS", 0),
			OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:           getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:         getEnv("LLM_BASE_URL", ""),
			CompletionTimeout:  getEnvAsDuration("COMPLETION_TIMEOUT", 30*time.Second),
			MaxTokens:          getEnvAsInt("LLM_MAX_TOKENS", 5),
		},
		Rag: RagConfig{
			DefaultK:      getEnvAsInt("RAG_DEFAULT_K", 25),
			OverFetch:     getEnvAsInt("RAG_OVERFETCH", 3),
			BatchLimit:    getEnvAsInt("RAG_BATCH_LIMIT", 100),
			BatchWorkers:  getEnvAsInt("RAG_BATCH_WORKERS", 4),
			EvaluateLimit: getEnvAsInt("RAG_EVALUATE_LIMIT", 200),
		},
		Store: StoreConfig{
			Backend:     getEnv("STORE_BACKEND", "local"),
			LocalRoot:   getEnv("STORE_LOCAL_ROOT", "vector_stores"),
			Compression: getEnv("STORE_COMPRESSION", "zstd"),
			Bucket:      getEnv("STORE_BUCKET", "vector-stores"),
			Prefix:      getEnv("STORE_PREFIX", ""),
			Endpoint:    getEnv("STORE_ENDPOINT", ""),
			Region:      getEnv("STORE_REGION", "us-east-1"),
			AccessKey:   getEnv("STORE_ACCESS_KEY", ""),
			SecretKey:   getEnv("STORE_SECRET_KEY", ""),
			UseSSL:      getEnvAsBool("STORE_USE_SSL", false),
		},
		Data: DataConfig{
			DatasetPath: getEnv("DATASET_PATH", "data/dataset.csv"),
			ModelPath:   getEnv("TABULAR_MODEL_PATH", "models/random_forest.json"),
			Watch:       getEnvAsBool("DATASET_WATCH", false),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 2),
			TaskTTL:     getEnvAsDuration("TASK_TTL", time.Hour),
		},
		Otel: OtelConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "exoplanet-classifier-be"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
