package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// An explicitly named missing file is an error; the no-file path is not.
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendQdrant, cfg.VectorBackend)
	assert.Equal(t, "cosine", cfg.DistanceMethod)
	assert.Equal(t, 768, cfg.EmbeddingDimension)
	assert.Equal(t, 100, cfg.IndexThreshold)
	assert.InDelta(t, 1.0, float64(cfg.CacheThreshold), 1e-6)
	assert.Equal(t, 50, cfg.InsertBatchSize)
	assert.Equal(t, 5, cfg.SearchLimit)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minirag.yaml")
	content := `vector_backend: pgvector
embedding_dimension: 384
postgres_host: db.internal
postgres_user: rag
postgres_db_name: rag
cache_threshold: 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendPGVector, cfg.VectorBackend)
	assert.Equal(t, 384, cfg.EmbeddingDimension)
	assert.Equal(t, "db.internal", cfg.PostgresHost)
	assert.InDelta(t, 0.25, float64(cfg.CacheThreshold), 1e-6)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MINIRAG_EMBEDDING_DIMENSION", "1536")
	t.Setenv("MINIRAG_DISTANCE_METHOD", "euclid")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1536, cfg.EmbeddingDimension)
	assert.Equal(t, "euclid", cfg.DistanceMethod)
}

func TestLoadCredentialEnvOverrides(t *testing.T) {
	// Credentials have no file defaults; env must still reach them.
	t.Setenv("MINIRAG_POSTGRES_PASSWORD", "s3cret")
	t.Setenv("MINIRAG_QDRANT_API_KEY", "main-key")
	t.Setenv("MINIRAG_QDRANT_USE_TLS", "true")
	t.Setenv("MINIRAG_QDRANT_CACHE_API_KEY", "cache-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.PostgresPassword)
	assert.Equal(t, "main-key", cfg.Qdrant.APIKey)
	assert.True(t, cfg.Qdrant.UseTLS)
	assert.Equal(t, "cache-key", cfg.QdrantCache.APIKey)
	assert.False(t, cfg.QdrantCache.UseTLS)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			VectorBackend:      BackendQdrant,
			DistanceMethod:     "cosine",
			EmbeddingDimension: 768,
			IndexThreshold:     100,
			CacheThreshold:     1.0,
			InsertBatchSize:    50,
			Qdrant:             QdrantEndpoint{Host: "localhost", Port: 6334},
			QdrantCache:        QdrantEndpoint{Host: "localhost", Port: 6334},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"unknown backend", func(c *Config) { c.VectorBackend = "chroma" }, ErrInvalidBackend},
		{"unknown distance", func(c *Config) { c.DistanceMethod = "manhattan" }, ErrInvalidDistance},
		{"zero dimension", func(c *Config) { c.EmbeddingDimension = 0 }, ErrInvalidDimension},
		{"negative cache threshold", func(c *Config) { c.CacheThreshold = -0.5 }, ErrInvalidThreshold},
		{"negative index threshold", func(c *Config) { c.IndexThreshold = -1 }, ErrInvalidThreshold},
		{"zero batch size", func(c *Config) { c.InsertBatchSize = 0 }, ErrInvalidBatchSize},
		{"missing qdrant host", func(c *Config) { c.Qdrant.Host = "" }, ErrInvalidQdrant},
		{"pgvector without postgres", func(c *Config) {
			c.VectorBackend = BackendPGVector
		}, ErrInvalidPostgres},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestPostgresConnectionString(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "rag",
		PostgresPassword: "p@ss word's",
		PostgresDBName:   "minirag",
		PostgresSSLMode:  "disable",
	}

	dsn := cfg.PostgresConnectionString()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, `password='p@ss word\'s'`)
	assert.Contains(t, dsn, "dbname=minirag")
}

func TestPostgresURL(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "rag",
		PostgresPassword: "p@ss/word",
		PostgresDBName:   "minirag",
		PostgresSSLMode:  "disable",
	}

	url := cfg.PostgresURL()
	assert.Contains(t, url, "postgres://")
	assert.Contains(t, url, "sslmode=disable")
	// Special characters survive URL encoding.
	assert.Contains(t, url, "p%40ss%2Fword")
}
