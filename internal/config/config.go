package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CREDENCE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CREDENCE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func seconds(key string, fallback int) time.Duration {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// StoreBackend is postgres (default) or neo4j.
func StoreBackend() string {
	return strings.ToLower(getenv("STORE_BACKEND", "postgres"))
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func Neo4jURI() string {
	return getenv("NEO4J_URI", "neo4j://localhost:7687")
}

func Neo4jUser() string {
	return getenv("NEO4J_USER", "neo4j")
}

func Neo4jPassword() string {
	return os.Getenv("NEO4J_PASSWORD")
}

// Neo4jDatabase is empty for the server's default database.
func Neo4jDatabase() string {
	return os.Getenv("NEO4J_DATABASE")
}

// LockBackend is memory (default) or redis.
func LockBackend() string {
	return strings.ToLower(getenv("LOCK_BACKEND", "memory"))
}

func RedisAddr() string {
	return getenv("REDIS_ADDR", "localhost:6379")
}

func RedisPassword() string {
	return os.Getenv("REDIS_PASSWORD")
}

// LockTimeout bounds the wait for a per-hypothesis lock. Defaults to 5s.
func LockTimeout() time.Duration {
	return seconds("LOCK_TIMEOUT_SECONDS", 5)
}

// BackfillOnStart runs the base-prior migration before serving. Defaults to true.
func BackfillOnStart() bool {
	return boolean("BACKFILL_ON_START", true)
}

// AutoMigrate applies the schema when the server starts. Defaults to true.
func AutoMigrate() bool {
	return boolean("AUTO_MIGRATE", true)
}

func boolean(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "gemini" if not set.
// Valid values: openai, anthropic, gemini, cerebras, mock, none
func LLMProvider() string {
	return strings.ToLower(getenv("LLM_PROVIDER", "gemini"))
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "openai":
		return OpenAIAPIKey()
	default:
		return ""
	}
}

func GeminiModel() string {
	return os.Getenv("GEMINI_MODEL")
}

func LLMTimeout() time.Duration {
	return seconds("LLM_TIMEOUT_SECONDS", 15)
}

// APIKeys returns the accepted API keys. Empty disables authentication.
func APIKeys() []string {
	var keys []string
	for _, k := range strings.Split(os.Getenv("API_KEYS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// Tracing is none (default) or stdout.
func Tracing() string {
	return strings.ToLower(getenv("TRACING", "none"))
}
