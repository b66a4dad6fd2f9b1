package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/chronorag-go/internal/adapters/loader"
	"github.com/0xcro3dile/chronorag-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
	"github.com/0xcro3dile/chronorag-go/internal/domain/retrieval"
	"github.com/0xcro3dile/chronorag-go/internal/domain/usecases"
	"github.com/0xcro3dile/chronorag-go/internal/infrastructure/bootstrap"
	"github.com/0xcro3dile/chronorag-go/internal/infrastructure/config"
	"github.com/0xcro3dile/chronorag-go/internal/infrastructure/metrics"
)

type unitEmbedder struct{}

func (unitEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type echoLLM struct{}

func (echoLLM) Generate(context.Context, string) (string, error) {
	return "Revenue was 12M.", nil
}

func (echoLLM) GenerateStream(context.Context, string) (<-chan ports.StreamToken, error) {
	ch := make(chan ports.StreamToken, 1)
	ch <- ports.StreamToken{Done: true}
	close(ch)
	return ch, nil
}

func stubFactory(store ports.DocumentStore) AppFactory {
	return func(_ context.Context, cfg *config.AppConfig, log *slog.Logger) (*bootstrap.App, error) {
		emb := unitEmbedder{}
		return &bootstrap.App{
			Config:  cfg,
			Logger:  log,
			Metrics: metrics.New(),
			Store:   store,
			Ingest: usecases.NewIngestUseCase(
				loader.NewMultiLoader(loader.NewTextLoader()),
				emb, store, retrieval.NewChunker(200),
				usecases.WithIngestLogger(log),
			),
			Query: usecases.NewQueryUseCase(emb, store, echoLLM{}, usecases.WithQueryLogger(log)),
		}, nil
	}
}

func execute(t *testing.T, store ports.DocumentStore, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	root := NewRootCmd(stubFactory(store))
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--env", "",
	}, args...))

	err := root.Execute()
	return out.String(), err
}

func seed(t *testing.T, store ports.DocumentStore, source, text string) {
	t.Helper()
	_, err := store.Insert(context.Background(), entities.Chunk{
		Title:       source + " - Part 1",
		Description: text,
		SourceFile:  source,
		Embedding:   []float32{1, 0},
	})
	require.NoError(t, err)
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd(nil)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "ingest", "query", "documents", "chat", "watch"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("env"))
}

func TestIngestCmd_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report_2021.txt"), []byte("Revenue grew."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report_2022.txt"), []byte("Revenue fell."), 0o644))
	store := vectordb.NewInMemoryStore()

	out, err := execute(t, store, "ingest", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Files: 2  Chunks stored: 2  Failed: 0")
	n, err := store.Count(context.Background(), ports.ChunkFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIngestCmd_MissingPath(t *testing.T) {
	_, err := execute(t, vectordb.NewInMemoryStore(), "ingest", filepath.Join(t.TempDir(), "nope.txt"))

	assert.Error(t, err)
}

func TestIngestCmd_UnreadableFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.docx")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))

	out, err := execute(t, vectordb.NewInMemoryStore(), "ingest", path)

	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrExtraction)
	assert.Contains(t, out, "Files: 1  Chunks stored: 0  Failed: 1")
}

func TestIngestCmd_PartialFailureSucceeds(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "report_2021.txt")
	bad := filepath.Join(dir, "notes.docx")
	require.NoError(t, os.WriteFile(good, []byte("Revenue grew."), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("binary"), 0o644))

	out, err := execute(t, vectordb.NewInMemoryStore(), "ingest", good, bad)

	require.NoError(t, err)
	assert.Contains(t, out, "Files: 2  Chunks stored: 1  Failed: 1")
}

func TestQueryCmd(t *testing.T) {
	store := vectordb.NewInMemoryStore()
	seed(t, store, "report_2021.pdf", "Revenue was 10M.")
	seed(t, store, "report_2022.pdf", "Revenue was 12M.")

	out, err := execute(t, store, "query", "revenue", "in", "2022")
	require.NoError(t, err)

	assert.Contains(t, out, "Revenue was 12M.")
	assert.Contains(t, out, "Mode: exact-year  Years: 2022")
	assert.Contains(t, out, "[1] report_2022.pdf - Part 1")
}

func TestQueryCmd_SearchOnlyJSON(t *testing.T) {
	store := vectordb.NewInMemoryStore()
	seed(t, store, "report_2021.pdf", "Revenue was 10M.")
	seed(t, store, "report_2023.pdf", "Revenue was 14M.")

	out, err := execute(t, store, "query", "--search-only", "--json", "compare 2021 with 2023")
	require.NoError(t, err)

	var res jsonResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Answer)
	assert.Equal(t, entities.ModeMultiYear, res.Mode)
	assert.Equal(t, []string{"2021", "2023"}, res.Years)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "report_2021.pdf", res.Sources[0].SourceFile)
}

func TestQueryCmd_EmptyStore(t *testing.T) {
	_, err := execute(t, vectordb.NewInMemoryStore(), "query", "anything")

	assert.ErrorIs(t, err, entities.ErrNoMatch)
}

func TestQueryCmd_RequiresQuestion(t *testing.T) {
	_, err := execute(t, vectordb.NewInMemoryStore(), "query")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestDocumentsCmd(t *testing.T) {
	store := vectordb.NewInMemoryStore()

	out, err := execute(t, store, "documents")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents stored.")

	seed(t, store, "notes.txt", "Quarterly notes.")
	_, err = store.Insert(context.Background(), entities.Chunk{Description: "raw", SourceFile: "raw.txt"})
	require.NoError(t, err)

	out, err = execute(t, store, "documents", "--count")
	require.NoError(t, err)
	assert.Contains(t, out, "Chunks: 2  With embeddings: 1")

	out, err = execute(t, store, "documents")
	require.NoError(t, err)
	assert.Contains(t, out, "notes.txt - Part 1")
	assert.Contains(t, out, "dims=2")
}
