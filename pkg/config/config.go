package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RelevancePolicy decides how the chat orchestrator turns retrieval
// results into a relevance verdict. Deployments tune this together with
// SimilarityThreshold: strict threshold + AnyChunk rejects unrelated
// questions, a near-zero threshold + Always answers everything.
type RelevancePolicy string

const (
	// PolicyAnyChunk: relevant iff at least one chunk cleared the threshold.
	PolicyAnyChunk RelevancePolicy = "any-chunk"
	// PolicyMaxScore: relevant iff the best score cleared the threshold.
	PolicyMaxScore RelevancePolicy = "max-score"
	// PolicyAlways: relevant whenever retrieval returned anything at all.
	PolicyAlways RelevancePolicy = "always"
)

type Config struct {
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	JWTSecret      string
	JWTExpiration  time.Duration
	Port           int
	LogMode        string

	UploadDir      string
	VectorStoreDir string

	// embedding
	EmbeddingBackends []string // ordered preference list, first success wins
	OpenAIKey         string
	OpenAIBaseURL     string
	EmbeddingModel    string
	EmbeddingDim      int
	EmbeddingCacheCap int

	// generation
	GenerationModel   string
	GenerationBaseURL string

	// rag
	ChunkSize           int
	TokenMultiplier     float64
	EmbedBatchSize      int
	TopKResults         int
	SimilarityThreshold float64
	RelevancePolicy     RelevancePolicy
	ChatTimeout         time.Duration

	// ingestion
	ExtractionWorkers int
}

func Load() *Config {
	godotenv.Load()

	jwtExp, _ := time.ParseDuration(getEnv("JWT_EXPIRATION", "168h"))
	chatTimeout, _ := time.ParseDuration(getEnv("CHAT_TIMEOUT", "2m"))

	return &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpiration:  jwtExp,
		Port:           getEnvInt("PORT", 8080),
		LogMode:        getEnv("LOG_MODE", "dev"),

		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		VectorStoreDir: getEnv("VECTOR_STORE_DIR", "vector_stores"),

		EmbeddingBackends: getEnvList("EMBEDDING_BACKENDS", "openai,lexical,hash"),
		OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		EmbeddingModel:    getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:      getEnvInt("EMBEDDING_DIM", 384),
		EmbeddingCacheCap: getEnvInt("EMBEDDING_CACHE_CAP", 1000),

		GenerationModel:   getEnv("GENERATION_MODEL", "mistral"),
		GenerationBaseURL: getEnv("GENERATION_BASE_URL", "http://localhost:11434/v1"),

		ChunkSize:           getEnvInt("CHUNK_SIZE", 1000),
		TokenMultiplier:     getEnvFloat("TOKEN_MULTIPLIER", 1.3),
		EmbedBatchSize:      getEnvInt("EMBED_BATCH_SIZE", 64),
		TopKResults:         getEnvInt("TOP_K_RESULTS", 5),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.3),
		RelevancePolicy:     RelevancePolicy(getEnv("RELEVANCE_POLICY", string(PolicyAnyChunk))),
		ChatTimeout:         chatTimeout,

		ExtractionWorkers: getEnvInt("EXTRACTION_WORKERS", 4),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvList(key, defaultVal string) []string {
	raw := getEnv(key, defaultVal)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
