package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI answers /embeddings with one vector per input, [index, len(input)].
func fakeOpenAI(t *testing.T, requests *[]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if requests != nil {
			*requests = append(*requests, body)
		}

		var inputs []string
		switch in := body["input"].(type) {
		case string:
			inputs = []string{in}
		case []any:
			for _, s := range in {
				inputs = append(inputs, s.(string))
			}
		}

		data := make([]map[string]any, len(inputs))
		// Reverse order to check that results are placed by index.
		for i := range inputs {
			j := len(inputs) - 1 - i
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     j,
				"embedding": []float64{float64(j), float64(len(inputs[j]))},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  body["model"],
			"usage":  map[string]any{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
}

func TestOpenAIAdapter_Embed(t *testing.T) {
	var requests []map[string]any
	server := fakeOpenAI(t, &requests)
	defer server.Close()

	adapter := NewOpenAIAdapter("test-key",
		WithOpenAIBaseURL(server.URL+"/"),
		WithOpenAIDimension(2),
		WithOpenAIMaxRetries(0),
	)
	vec, err := adapter.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0, 5}, vec)
	require.Len(t, requests, 1)
	assert.Equal(t, DefaultOpenAIModel, requests[0]["model"])
	assert.Equal(t, float64(2), requests[0]["dimensions"])
}

func TestOpenAIAdapter_EmbedBatchOrdersByIndex(t *testing.T) {
	server := fakeOpenAI(t, nil)
	defer server.Close()

	adapter := NewOpenAIAdapter("test-key", WithOpenAIBaseURL(server.URL+"/"), WithOpenAIMaxRetries(0))
	vecs, err := adapter.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 2}, {2, 3}}, vecs)
}

func TestOpenAIAdapter_EmbedBatchSplitsLargeInput(t *testing.T) {
	var requests []map[string]any
	server := fakeOpenAI(t, &requests)
	defer server.Close()

	texts := make([]string, 230)
	for i := range texts {
		texts[i] = "t"
	}

	adapter := NewOpenAIAdapter("test-key", WithOpenAIBaseURL(server.URL+"/"), WithOpenAIMaxRetries(0))
	vecs, err := adapter.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	assert.Len(t, vecs, 230)
	assert.Len(t, requests, 3)
	assert.Equal(t, []float32{29, 1}, vecs[229])
}

func TestOpenAIAdapter_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter("test-key", WithOpenAIBaseURL(server.URL+"/"), WithOpenAIMaxRetries(0))
	_, err := adapter.Embed(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai embeddings")
}

func TestOpenAIAdapter_NoTexts(t *testing.T) {
	_, err := NewOpenAIAdapter("k").EmbedBatch(context.Background(), nil)

	assert.Error(t, err)
}
