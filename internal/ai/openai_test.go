package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAIEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "text-embedding-3-small", req.Model)
		require.Equal(t, []string{"first", "second"}, req.Input)
		// Out-of-order response exercises index-based placement.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float32{0.3, 0.4}},
				{"index": 0, "embedding": []float32{0.1, 0.2}},
			},
		})
	}))
	defer server.Close()

	provider, err := NewProvider("openai", map[string]interface{}{
		"api_key":  "test-key",
		"base_url": server.URL,
	})
	require.NoError(t, err)

	vecs, err := provider.EmbedBatch(context.Background(), "text-embedding-3-small", []string{"first", "second"}, TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)
}

func TestOpenAIRateLimitIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider, err := NewProvider("openai", map[string]interface{}{"api_key": "k", "base_url": server.URL})
	require.NoError(t, err)
	_, err = provider.Embed(context.Background(), "m", "text", TaskRetrievalQuery)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIBadRequestIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer server.Close()

	provider, err := NewProvider("openai", map[string]interface{}{"api_key": "k", "base_url": server.URL})
	require.NoError(t, err)
	_, err = provider.Embed(context.Background(), "m", "text", TaskRetrievalQuery)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIMissingKey(t *testing.T) {
	provider, err := NewProvider("openai", map[string]interface{}{})
	require.NoError(t, err)
	_, err = provider.Embed(context.Background(), "m", "text", TaskRetrievalQuery)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("does-not-exist", nil)
	require.Error(t, err)
}
