package parser

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFServiceParser_Parse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parse", r.URL.Path)
		assert.Equal(t, "report_2021.pdf", r.Header.Get("X-Filename"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "fake pdf", string(body))

		json.NewEncoder(w).Encode(map[string]any{
			"text":  "Hello from PDF",
			"pages": 1,
		})
	}))
	defer server.Close()

	parser := NewPDFServiceParser(server.URL, 0, nil)
	text, err := parser.Parse(context.Background(), []byte("fake pdf"), "report_2021.pdf")

	require.NoError(t, err)
	assert.Equal(t, "Hello from PDF", text)
}

func TestPDFServiceParser_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": "encrypted document",
			"text":  "",
		})
	}))
	defer server.Close()

	_, err := NewPDFServiceParser(server.URL, 0, nil).Parse(context.Background(), []byte("bad"), "test.pdf")

	assert.ErrorContains(t, err, "encrypted document")
}

func TestPDFServiceParser_NonJSONFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewPDFServiceParser(server.URL, 0, nil).Parse(context.Background(), []byte("x"), "test.pdf")

	assert.ErrorContains(t, err, "502")
}

func TestPDFServiceParser_Unreachable(t *testing.T) {
	parser := NewPDFServiceParser("http://127.0.0.1:1", 0, nil)

	_, err := parser.Parse(context.Background(), []byte("x"), "test.pdf")
	assert.Error(t, err)
	assert.Error(t, parser.Healthy(context.Background()))
}

func TestPDFServiceParser_Healthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, NewPDFServiceParser(server.URL, 0, nil).Healthy(context.Background()))
}
