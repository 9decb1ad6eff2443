// Package config loads application configuration with multi-source
// priority.
//
// Sources (highest to lowest priority):
//  1. Environment variables
//  2. Config file (./config.yaml or ~/.ragchat/config.yaml)
//  3. Default values
//
// Error handling uses sentinel errors so callers can check categories with
// errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the Gemini API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidChunking indicates chunk size or overlap is out of range.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidMaxResults indicates the search result cap is out of range.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidBackend indicates an unsupported vector backend name.
	ErrInvalidBackend = errors.New("invalid vector backend")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates an unsupported SSL mode.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Vector backend identifiers used in Config.VectorBackend.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// DefaultEmbedderModel is the default Gemini embedder.
// gemini-embedding-001 outputs 3072 dimensions by default but supports
// truncation to 768 via OutputDimensionality, which matches the pgvector
// schema; see index.VectorDimension.
const DefaultEmbedderModel = "gemini-embedding-001"

// Config stores application configuration.
// Sensitive fields are masked in MarshalJSON; when adding a new secret
// field, update that method.
type Config struct {
	// Generation
	ModelName    string  `mapstructure:"model_name" json:"model_name"`
	Temperature  float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens    int32   `mapstructure:"max_tokens" json:"max_tokens"`
	GeminiAPIKey string  `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON

	// Embedding
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Chunking
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Retrieval
	MaxResults     int     `mapstructure:"max_results" json:"max_results"`
	ScoreThreshold float32 `mapstructure:"score_threshold" json:"score_threshold"`
	MaxToolRounds  int     `mapstructure:"max_tool_rounds" json:"max_tool_rounds"`
	GenerateRPS    float64 `mapstructure:"generate_rps" json:"generate_rps"` // 0 disables throttling

	// Sessions
	MaxHistory int `mapstructure:"max_history" json:"max_history"`

	// Vector store
	VectorBackend string `mapstructure:"vector_backend" json:"vector_backend"`

	// Storage (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Documents
	DocsDir   string `mapstructure:"docs_dir" json:"docs_dir"`
	WatchDocs bool   `mapstructure:"watch_docs" json:"watch_docs"`

	// HTTP server
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`
}

// Load reads configuration from defaults, an optional config file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".ragchat"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("no config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_tokens", 800)
	v.SetDefault("embedder_model", DefaultEmbedderModel)

	v.SetDefault("chunk_size", 800)
	v.SetDefault("chunk_overlap", 100)

	v.SetDefault("max_results", 5)
	v.SetDefault("score_threshold", 0.5)
	v.SetDefault("max_tool_rounds", 2)
	v.SetDefault("generate_rps", 0.0)

	v.SetDefault("max_history", 2)

	v.SetDefault("vector_backend", BackendPostgres)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "ragchat")
	v.SetDefault("postgres_password", "ragchat_dev_password")
	v.SetDefault("postgres_db_name", "ragchat")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("docs_dir", "docs")
	v.SetDefault("watch_docs", true)
	v.SetDefault("http_addr", ":8000")
}

func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("model_name", "RAGCHAT_MODEL_NAME")
	mustBind("embedder_model", "RAGCHAT_EMBEDDER_MODEL")
	mustBind("vector_backend", "RAGCHAT_VECTOR_BACKEND")
	mustBind("docs_dir", "RAGCHAT_DOCS_DIR")
	mustBind("http_addr", "RAGCHAT_HTTP_ADDR")
}

// maskedValue replaces secrets in serialized config. Full-width blocks so
// no substring of a real secret survives.
const maskedValue = "████████"

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return maskedValue
}

// MarshalJSON implements json.Marshaler with sensitive fields masked.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer so accidental printing never leaks secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
