// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables with the MINIRAG_ prefix (runtime override)
//  2. Config file (minirag.yaml in the working directory or an explicit path)
//  3. Default values
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidBackend indicates the vector backend selection is unknown.
	ErrInvalidBackend = errors.New("invalid vector backend")

	// ErrInvalidDistance indicates the distance method is unknown.
	ErrInvalidDistance = errors.New("invalid distance method")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidThreshold indicates a threshold value is out of range.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidBatchSize indicates the insert batch size is out of range.
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidPostgres indicates the PostgreSQL connection settings are
	// incomplete.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidQdrant indicates the Qdrant endpoint settings are incomplete.
	ErrInvalidQdrant = errors.New("invalid Qdrant configuration")
)

// Vector backend identifiers used in Config.VectorBackend.
const (
	BackendQdrant   = "qdrant"
	BackendPGVector = "pgvector"
)

// QdrantEndpoint describes one Qdrant server address. The main store and
// the semantic cache use separate endpoints with independent lifecycles.
type QdrantEndpoint struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"` // SENSITIVE: never logged
	UseTLS bool   `mapstructure:"use_tls"`
}

// Config stores application configuration.
type Config struct {
	// Vector store selection and tuning
	VectorBackend      string  `mapstructure:"vector_backend"`      // "qdrant" or "pgvector"
	DistanceMethod     string  `mapstructure:"distance_method"`     // "cosine", "euclid", "dot"
	EmbeddingDimension int     `mapstructure:"embedding_dimension"` // fixed at collection creation
	IndexThreshold     int     `mapstructure:"index_threshold"`     // min rows before a pgvector index is built
	CacheThreshold     float32 `mapstructure:"cache_threshold"`     // max Euclidean distance for a cache hit
	InsertBatchSize    int     `mapstructure:"insert_batch_size"`
	SearchLimit        int     `mapstructure:"search_limit"`

	// PostgreSQL (pgvector backend and chunk metadata store)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never logged
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Qdrant endpoints (qdrant backend): main store and semantic cache are
	// distinct physical locations.
	Qdrant      QdrantEndpoint `mapstructure:"qdrant"`
	QdrantCache QdrantEndpoint `mapstructure:"qdrant_cache"`

	// AI provider configuration
	ModelName     string `mapstructure:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model"`
}

// Load reads configuration from defaults, an optional YAML file and
// environment variables. path may be empty to use the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MINIRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("minirag")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No file is fine; defaults plus env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every config key. Viper's AutomaticEnv only
// resolves keys it already knows about during Unmarshal, so even
// credential keys with no meaningful default must appear here or their
// MINIRAG_* env overrides are silently dropped.
func setDefaults(v *viper.Viper) {
	v.SetDefault("vector_backend", BackendQdrant)
	v.SetDefault("distance_method", "cosine")
	v.SetDefault("embedding_dimension", 768)
	v.SetDefault("index_threshold", 100)
	v.SetDefault("cache_threshold", 1.0)
	v.SetDefault("insert_batch_size", 50)
	v.SetDefault("search_limit", 5)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "minirag")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "minirag")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.api_key", "")
	v.SetDefault("qdrant.use_tls", false)
	v.SetDefault("qdrant_cache.host", "localhost")
	v.SetDefault("qdrant_cache.port", 6334)
	v.SetDefault("qdrant_cache.api_key", "")
	v.SetDefault("qdrant_cache.use_tls", false)

	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("embedder_model", "text-embedding-004")
}

// Validate checks configuration ranges and cross-field requirements.
func (c *Config) Validate() error {
	switch c.VectorBackend {
	case BackendQdrant, BackendPGVector:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidBackend, c.VectorBackend, BackendQdrant, BackendPGVector)
	}

	switch c.DistanceMethod {
	case "cosine", "euclid", "dot":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDistance, c.DistanceMethod)
	}

	if c.EmbeddingDimension < 1 || c.EmbeddingDimension > 16000 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, c.EmbeddingDimension)
	}
	if c.IndexThreshold < 0 {
		return fmt.Errorf("%w: index_threshold %d", ErrInvalidThreshold, c.IndexThreshold)
	}
	if c.CacheThreshold < 0 {
		return fmt.Errorf("%w: cache_threshold %g", ErrInvalidThreshold, c.CacheThreshold)
	}
	if c.InsertBatchSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, c.InsertBatchSize)
	}

	if c.VectorBackend == BackendPGVector {
		if c.PostgresHost == "" || c.PostgresDBName == "" || c.PostgresUser == "" {
			return fmt.Errorf("%w: host, user and db name are required", ErrInvalidPostgres)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: port %d", ErrInvalidPostgres, c.PostgresPort)
		}
	}

	if c.VectorBackend == BackendQdrant {
		if c.Qdrant.Host == "" || c.QdrantCache.Host == "" {
			return fmt.Errorf("%w: main and cache hosts are required", ErrInvalidQdrant)
		}
		if c.Qdrant.Port < 1 || c.QdrantCache.Port < 1 {
			return fmt.Errorf("%w: invalid port", ErrInvalidQdrant)
		}
	}

	return nil
}
