package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/vecsync/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, vector []float32) (*httptest.Server, *string) {
	t.Helper()
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": vector}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &auth
}

func TestNewEmbedder_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbedder(ai.NewConfig())
	require.ErrorIs(t, err, ai.ErrAPIKeyRequired)
}

func TestEmbedder_EmbedText(t *testing.T) {
	srv, auth := newTestServer(t, []float32{0.1, 0.2, 0.3})

	embedder, err := NewEmbedder(ai.NewConfig(
		ai.WithEmbeddingHost(srv.URL),
		ai.WithAPIKey("sk-test"),
		ai.WithDimensions(3),
	))
	require.NoError(t, err)

	vector, err := embedder.EmbedText(t.Context(), "package main\n\nfunc main() {}\n")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, "Bearer sk-test", *auth)
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	srv, _ := newTestServer(t, []float32{0.1, 0.2})

	embedder, err := NewEmbedder(ai.NewConfig(
		ai.WithEmbeddingHost(srv.URL),
		ai.WithAPIKey("sk-test"),
		ai.WithDimensions(3),
	))
	require.NoError(t, err)

	_, err = embedder.EmbedText(t.Context(), "hello")
	require.ErrorIs(t, err, ai.ErrDimensionMismatch)
}
