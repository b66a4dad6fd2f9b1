// Package parser provides document parsing adapters.
// PDF text extraction is delegated to an HTTP extraction service that
// accepts raw bytes on POST /parse and answers {text, pages, error}.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultServiceURL = "http://localhost:8081"

// PDFServiceParser implements ports.DocumentParser against the extraction service.
type PDFServiceParser struct {
	serviceURL string
	client     *http.Client
	logger     *slog.Logger
}

// NewPDFServiceParser creates a parser for the service at serviceURL.
func NewPDFServiceParser(serviceURL string, timeout time.Duration, logger *slog.Logger) *PDFServiceParser {
	if serviceURL == "" {
		serviceURL = defaultServiceURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFServiceParser{
		serviceURL: serviceURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type parseResponse struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

// Parse extracts text from PDF bytes.
func (p *PDFServiceParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("X-Filename", filename)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling PDF service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("PDF service returned status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("PDF parse error: %s", result.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("PDF service returned status %d", resp.StatusCode)
	}

	p.logger.Debug("pdf parsed", "file", filename, "pages", result.Pages, "chars", len(result.Text))
	return result.Text, nil
}

// Healthy checks GET /health on the service.
func (p *PDFServiceParser) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serviceURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("PDF service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("PDF service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
