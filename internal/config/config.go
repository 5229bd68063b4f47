package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RetryMultiplier   float64

	ContextProfile   string // "balanced" or "stress"
	MaxContextChars  int
	MaxContextTokens int
	RAGTopK          int

	ChunkSize          int
	EnablePIIRedaction bool

	UploadDir string
	DBPath    string

	AuditLogPath  string
	AuditHashSeed string

	RBACEnabled     bool
	RBACHeaderName  string
	RBACDefaultRole string

	SyncDir           string
	SyncSharedSecret  string
	SyncEnabled       bool
	AllowedExtensions []string

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config
// struct. It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or project root, it is
// loaded automatically; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find the project root (where go.mod lives) for a .env file.
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMModel:   getEnv("LLM_MODEL", "gemini-3-flash-preview"),

		ContextProfile: strings.ToLower(getEnv("CONTEXT_PROFILE", "balanced")),

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		DBPath:    getEnv("DB_PATH", "./data/protocol-navigator.db"),

		AuditLogPath:  getEnv("AUDIT_LOG_PATH", "data/audit/audit_log.jsonl"),
		AuditHashSeed: getEnv("AUDIT_HASH_SEED", "protocol-navigator"),

		RBACHeaderName:  getEnv("RBAC_HEADER_NAME", "X-User-Role"),
		RBACDefaultRole: getEnv("RBAC_DEFAULT_ROLE", "viewer"),

		SyncDir:          getEnv("SYNC_MONITORED_DIR", ""),
		SyncSharedSecret: getEnv("SYNC_SHARED_SECRET", ""),

		APIPort:   getEnv("API_PORT", "9000"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.RetryMaxAttempts, err = getEnvInt("LLM_RETRY_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.RetryMultiplier, err = getEnvFloat("LLM_RETRY_BACKOFF_MULTIPLIER", 2.0); err != nil {
		return nil, err
	}
	initialDelay, err := getEnvFloat("LLM_RETRY_INITIAL_DELAY_SECONDS", 20)
	if err != nil {
		return nil, err
	}
	maxDelay, err := getEnvFloat("LLM_RETRY_MAX_DELAY_SECONDS", 75)
	if err != nil {
		return nil, err
	}
	cfg.RetryInitialDelay = time.Duration(initialDelay * float64(time.Second))
	cfg.RetryMaxDelay = time.Duration(maxDelay * float64(time.Second))

	// The stress profile trades latency for very large contexts when the
	// answer model supports them.
	switch cfg.ContextProfile {
	case "stress":
		if cfg.MaxContextChars, err = getEnvInt("MAX_CONTEXT_CHARS_STRESS", 8000000); err != nil {
			return nil, err
		}
		if cfg.MaxContextTokens, err = getEnvInt("MAX_CONTEXT_TOKENS_STRESS", 1800000); err != nil {
			return nil, err
		}
	case "balanced":
		if cfg.MaxContextChars, err = getEnvInt("MAX_CONTEXT_CHARS", 500000); err != nil {
			return nil, err
		}
		if cfg.MaxContextTokens, err = getEnvInt("MAX_CONTEXT_TOKENS", 120000); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("CONTEXT_PROFILE must be \"balanced\" or \"stress\", got %q", cfg.ContextProfile)
	}

	if cfg.RAGTopK, err = getEnvInt("RAG_TOP_K", 8); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 1400); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}

	cfg.EnablePIIRedaction = getEnvBool("ENABLE_PII_REDACTION", true)
	cfg.RBACEnabled = getEnvBool("RBAC_ENABLED", false)
	cfg.SyncEnabled = getEnvBool("SYNC_ENABLE_FOLDER_SYNC", true)

	cfg.AllowedExtensions = parseExtensions(getEnv("ALLOWED_EXTENSIONS", ".pdf,.txt,.md"))
	if len(cfg.AllowedExtensions) == 0 {
		return nil, fmt.Errorf("ALLOWED_EXTENSIONS contains no valid extensions")
	}

	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))

	// Create the data directory for the registry DB if it doesn't exist.
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// ExtensionSet returns the allowed extensions as a lookup set.
func (c *Config) ExtensionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.AllowedExtensions))
	for _, ext := range c.AllowedExtensions {
		set[ext] = struct{}{}
	}
	return set
}

// parseExtensions keeps dot-prefixed, lowercased entries of a comma list.
func parseExtensions(raw string) []string {
	var exts []string
	for _, part := range strings.Split(raw, ",") {
		ext := strings.ToLower(strings.TrimSpace(part))
		if strings.HasPrefix(ext, ".") && len(ext) > 1 {
			exts = append(exts, ext)
		}
	}
	return exts
}

func parseLogLevel(value string) slog.Level {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
