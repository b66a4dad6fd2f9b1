package llm

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

func TestOllamaLLM_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hi", req.Prompt)
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(map[string]any{
			"response": "Hello there!",
			"done":     true,
		})
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test-model", nil)
	resp, err := adapter.Generate(context.Background(), "Hi")

	require.NoError(t, err)
	assert.Equal(t, "Hello there!", resp)
}

func TestOllamaLLM_GenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"Hello","done":false}` + "\n"))
		w.Write([]byte("not json\n"))
		w.Write([]byte(`{"response":" world","done":false}` + "\n"))
		w.Write([]byte(`{"response":"!","done":true}` + "\n"))
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test", nil)
	ch, err := adapter.GenerateStream(context.Background(), "test")
	require.NoError(t, err)

	var sb strings.Builder
	var done bool
	for token := range ch {
		require.NoError(t, token.Error)
		sb.WriteString(token.Content)
		done = token.Done
	}

	assert.True(t, done)
	assert.Equal(t, "Hello world!", sb.String())
}

func TestOllamaLLM_StreamCutShort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"Hel","done":false}` + "\n"))
	}))
	defer server.Close()

	ch, err := NewOllamaLLMAdapter(server.URL, "test", nil).GenerateStream(context.Background(), "test")
	require.NoError(t, err)

	var last error
	for token := range ch {
		last = token.Error
	}
	assert.Error(t, last)
}

func TestOllamaLLM_StreamErrorLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model crashed"}` + "\n"))
	}))
	defer server.Close()

	ch, err := NewOllamaLLMAdapter(server.URL, "test", nil).GenerateStream(context.Background(), "test")
	require.NoError(t, err)

	tok := <-ch
	assert.True(t, tok.Done)
	assert.ErrorContains(t, tok.Error, "model crashed")
}

func TestOllamaLLM_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test", nil)
	_, err := adapter.Generate(context.Background(), "test")
	assert.ErrorContains(t, err, "404")

	_, err = adapter.GenerateStream(context.Background(), "test")
	assert.ErrorContains(t, err, "404")
}

func TestOllamaLLM_DefaultValues(t *testing.T) {
	adapter := NewOllamaLLMAdapter("", "", nil)

	assert.Equal(t, "http://localhost:11434", adapter.baseURL)
	assert.Equal(t, "llama3.2", adapter.model)
}
