package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

type queryRequest struct {
	Query string `json:"query" form:"query" query:"q"`
}

type sourceResponse struct {
	Title       string  `json:"title"`
	SourceFile  string  `json:"source_file"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

type selectionResponse struct {
	Mode    entities.SelectionMode `json:"mode"`
	Years   []string               `json:"years"`
	Sources []sourceResponse       `json:"sources"`
}

type answerResponse struct {
	Answer string `json:"answer"`
	selectionResponse
}

type documentResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SourceFile  string    `json:"source_file"`
	Dimensions  int       `json:"dimensions"`
	CreatedAt   time.Time `json:"created_at"`
}

type failureResponse struct {
	File  string `json:"file"`
	Part  int    `json:"part,omitempty"`
	Error string `json:"error"`
}

type ingestResponse struct {
	Files     int               `json:"files"`
	Persisted int               `json:"persisted"`
	Failed    int               `json:"failed"`
	Failures  []failureResponse `json:"failures,omitempty"`
}

func toSelectionResponse(sel entities.Selection) selectionResponse {
	resp := selectionResponse{
		Mode:    sel.Mode,
		Years:   sel.Years,
		Sources: make([]sourceResponse, 0, len(sel.Chunks)),
	}
	if resp.Years == nil {
		resp.Years = []string{}
	}
	for _, sc := range sel.Chunks {
		resp.Sources = append(resp.Sources, sourceResponse{
			Title:       sc.Title,
			SourceFile:  sc.SourceFile,
			Score:       sc.Score,
			Description: sc.Description,
		})
	}
	return resp
}

func toIngestResponse(r entities.IngestReport) ingestResponse {
	resp := ingestResponse{Files: r.Files, Persisted: r.Persisted, Failed: len(r.Failures)}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, failureResponse{File: f.SourceFile, Part: f.Part, Error: f.Err.Error()})
	}
	return resp
}

func (s *Server) bindQuery(c echo.Context) (string, error) {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	return q, nil
}

func (s *Server) queryContext(c echo.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(c.Request().Context())
	}
	return context.WithTimeout(c.Request().Context(), s.queryTimeout)
}

const healthCheckTimeout = 5 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth answers 503 when any registered dependency check fails.
func (s *Server) handleHealth(c echo.Context) error {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
	}
	for _, hc := range s.checks {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
		err := hc.check(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("health check failed", "check", hc.name, "error", err)
			resp.Checks[hc.name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[hc.name] = "ok"
	}
	return c.JSON(code, resp)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	chunks, err := s.query.Documents(c.Request().Context())
	if err != nil {
		return err
	}
	docs := make([]documentResponse, 0, len(chunks))
	for _, ch := range chunks {
		docs = append(docs, documentResponse{
			ID:          ch.ID,
			Title:       ch.Title,
			Description: ch.Description,
			SourceFile:  ch.SourceFile,
			Dimensions:  len(ch.Embedding),
			CreatedAt:   ch.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleIngestDir(c echo.Context) error {
	report, err := s.ingest.IngestDir(c.Request().Context(), s.ingestDir)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toIngestResponse(report))
}

func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	name := filepath.Base(fh.Filename)
	if name == "." || name == string(filepath.Separator) || !s.ingest.Supports(name) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported file type: %s", fh.Filename))
	}

	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.ingestDir, 0o755); err != nil {
		return fmt.Errorf("creating ingest dir: %w", err)
	}
	dst := filepath.Join(s.ingestDir, name)
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("saving upload: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("saving upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("saving upload: %w", err)
	}

	report, err := s.ingest.IngestFile(c.Request().Context(), dst)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toIngestResponse(report))
}

func (s *Server) handleQuery(c echo.Context) error {
	q, err := s.bindQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := s.queryContext(c)
	defer cancel()

	answer, err := s.query.Query(ctx, entities.QueryRequest{Query: q})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, answerResponse{
		Answer:            answer.Text,
		selectionResponse: toSelectionResponse(answer.Selection),
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	q, err := s.bindQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := s.queryContext(c)
	defer cancel()

	sel, err := s.query.Search(ctx, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSelectionResponse(sel))
}

// handleQueryStream sends the selection as the first SSE event, then one
// event per generated token.
func (s *Server) handleQueryStream(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	ctx, cancel := s.queryContext(c)
	defer cancel()

	sel, tokens, err := s.query.QueryStream(ctx, entities.QueryRequest{Query: q})
	if err != nil {
		return err
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sendSSE(w, toSelectionResponse(sel))
	for tok := range tokens {
		if tok.Error != nil {
			sendSSE(w, map[string]any{"error": tok.Error.Error(), "done": true})
			return nil
		}
		sendSSE(w, map[string]any{"content": tok.Content, "done": tok.Done})
	}
	return nil
}

func sendSSE(w *echo.Response, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte(`{"error":"encoding event","done":true}`)
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	w.Flush()
}
