package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingHost)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 1536, cfg.Dimensions)
	assert.Empty(t, cfg.APIKey)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://custom:8080/v1"))
		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
	})

	t.Run("with custom model and dimensions", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-large"),
			WithDimensions(3072),
		)
		assert.Equal(t, "text-embedding-3-large", cfg.EmbeddingModel)
		assert.Equal(t, 3072, cfg.Dimensions)
	})

	t.Run("with api key and batch size", func(t *testing.T) {
		cfg := NewConfig(WithAPIKey("sk-123"), WithBatchSize(8))
		assert.Equal(t, "sk-123", cfg.APIKey)
		assert.Equal(t, 8, cfg.BatchSize)
	})
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"adds v1 suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"strips trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"keeps existing suffix", "https://api.openai.com/v1", "https://api.openai.com/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithEmbeddingHost(tt.host), WithBatchSize(0))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
			assert.Equal(t, 64, cfg.BatchSize)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := NewConfig(WithAPIKey("sk-123"))
		require.NoError(t, cfg.Validate())
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := NewConfig(WithAPIKey("sk-123"), WithEmbeddingHost(""))
		assert.ErrorIs(t, cfg.Validate(), ErrEmbeddingHostRequired)
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := NewConfig(WithAPIKey("sk-123"), WithEmbeddingModel(""))
		assert.ErrorIs(t, cfg.Validate(), ErrEmbeddingModelRequired)
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := NewConfig(WithAPIKey("   "))
		assert.ErrorIs(t, cfg.Validate(), ErrAPIKeyRequired)
	})

	t.Run("negative dimensions", func(t *testing.T) {
		cfg := NewConfig(WithAPIKey("sk-123"), WithDimensions(-1))
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidDimensions)
	})
}
