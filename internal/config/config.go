package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, read once at startup.
// Secrets never leave this package except through ClientSafe.
type Config struct {
	ServerAddr string

	// Completion/embedding provider (OpenAI-compatible)
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	EmbeddingModel  string
	CompletionModel string

	// Vector store
	ChromaHost       string
	ChromaPort       int
	ChromaTenant     string
	ChromaDatabase   string
	ChromaCollection string

	// Job store
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Voice assistant (served to the browser widget via /config)
	VapiAPIKey      string
	VapiAssistantID string

	// Retrieval tuning. These were magic numbers in early versions;
	// every call site reads them from here.
	RetrievalTopK      int
	RetrievalMinScore  float32
	MaxHistoryMessages int
	MaxTokens          int
	Temperature        float64

	// Per-stage timeouts for the three external calls
	EmbedTimeout    time.Duration
	QueryTimeout    time.Duration
	CompleteTimeout time.Duration

	// Origins allowed to read the client-safe config
	AllowedOrigins []string
}

// ClientSafeConfig is the non-secret subset exposed to the browser widget
type ClientSafeConfig struct {
	VapiAPIKey      string `json:"vapiApiKey"`
	VapiAssistantID string `json:"vapiAssistantId"`
}

// ConfigurationError reports missing or invalid startup configuration.
// It is fatal: the process must not serve traffic when Load returns one.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Missing, ", ")
}

// requiredVars must all be present for the process to start
var requiredVars = []string{
	"OPENAI_API_KEY",
	"VAPI_API_KEY",
	"VAPI_ASSISTANT_ID",
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is not an error
	_ = godotenv.Load()

	var missing []string
	for _, name := range requiredVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}

	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		CompletionModel: getEnv("COMPLETION_MODEL", "gpt-3.5-turbo"),

		ChromaHost:       getEnv("CHROMA_HOST", "localhost"),
		ChromaPort:       getEnvInt("CHROMA_PORT", 8000),
		ChromaTenant:     getEnv("CHROMA_TENANT", "default_tenant"),
		ChromaDatabase:   getEnv("CHROMA_DATABASE", "default_database"),
		ChromaCollection: getEnv("CHROMA_COLLECTION", "aven-support-index"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		VapiAPIKey:      os.Getenv("VAPI_API_KEY"),
		VapiAssistantID: os.Getenv("VAPI_ASSISTANT_ID"),

		RetrievalTopK:      getEnvInt("RETRIEVAL_TOP_K", 3),
		RetrievalMinScore:  getEnvFloat32("RETRIEVAL_MIN_SCORE", 0.5),
		MaxHistoryMessages: getEnvInt("MAX_HISTORY_MESSAGES", 20),
		MaxTokens:          getEnvInt("MAX_TOKENS", 300),
		Temperature:        getEnvFloat64("TEMPERATURE", 0.3),

		EmbedTimeout:    getEnvDuration("EMBED_TIMEOUT", 15*time.Second),
		QueryTimeout:    getEnvDuration("QUERY_TIMEOUT", 10*time.Second),
		CompleteTimeout: getEnvDuration("COMPLETE_TIMEOUT", 120*time.Second),

		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	return cfg, nil
}

// ClientSafe returns the subset of configuration a browser may see
func (c *Config) ClientSafe() ClientSafeConfig {
	return ClientSafeConfig{
		VapiAPIKey:      c.VapiAPIKey,
		VapiAssistantID: c.VapiAssistantID,
	}
}

// OriginAllowed reports whether the given Origin (or Referer) value is
// on the allow-list. Referer values carry a path, so a prefix match is
// applied against each allowed origin.
func (c *Config) OriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range c.AllowedOrigins {
		if origin == allowed || strings.HasPrefix(origin, allowed+"/") {
			return true
		}
	}
	return false
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat32(name string, fallback float32) float32 {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

func getEnvFloat64(name string, fallback float64) float64 {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// RedisAddr returns the host:port address for the job store
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
