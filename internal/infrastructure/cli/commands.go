package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
	"github.com/0xcro3dile/chronorag-go/internal/infrastructure/bootstrap"
	"github.com/0xcro3dile/chronorag-go/internal/infrastructure/tui"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			return o.withApp(ctx, func(app *bootstrap.App) error {
				if o.cfg.Ingest.SeedSample {
					if _, err := app.Ingest.SeedSample(ctx); err != nil {
						o.log.Warn("seeding sample document failed", "error", err)
					}
				}

				watchErr := make(chan error, 1)
				if watch {
					w, err := app.Watcher()
					if err != nil {
						return err
					}
					if err := os.MkdirAll(o.cfg.Ingest.Dir, 0o755); err != nil {
						return fmt.Errorf("creating ingest dir: %w", err)
					}
					go func() { watchErr <- w.Run(ctx, o.cfg.Ingest.Dir) }()
				}

				err := app.Server().Start(ctx, o.cfg.ShutdownTimeout())
				cancel()
				if watch {
					if werr := <-watchErr; err == nil {
						err = werr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "ingest files dropped into the ingest dir")
	return cmd
}

func newIngestCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [paths...]",
		Short: "Ingest files or directories",
		Long: `Extracts, chunks and embeds the given files. Directories are ingested
one level deep. Without arguments the configured ingest dir is used.
Chunks are appended; ingesting a file twice stores its chunks twice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{o.cfg.Ingest.Dir}
			}
			ctx := cmd.Context()
			return o.withApp(ctx, func(app *bootstrap.App) error {
				var report entities.IngestReport
				for _, path := range args {
					info, err := os.Stat(path)
					if err != nil {
						return err
					}
					if info.IsDir() {
						r, err := app.Ingest.IngestDir(ctx, path)
						if err != nil {
							return err
						}
						report.Merge(r)
						continue
					}
					r, _ := app.Ingest.IngestFile(ctx, path)
					report.Merge(r)
				}
				printReport(cmd.OutOrStdout(), report)
				if report.Persisted == 0 {
					for _, f := range report.Failures {
						if f.Part == 0 {
							return fmt.Errorf("nothing ingested: %s: %w", f.SourceFile, f.Err)
						}
					}
				}
				return nil
			})
		},
	}
}

func printReport(w io.Writer, r entities.IngestReport) {
	fmt.Fprintf(w, "Files: %d  Chunks stored: %d  Failed: %d\n", r.Files, r.Persisted, len(r.Failures))
	for _, f := range r.Failures {
		if f.Part > 0 {
			fmt.Fprintf(w, "  %s part %d: %v\n", f.SourceFile, f.Part, f.Err)
			continue
		}
		fmt.Fprintf(w, "  %s: %v\n", f.SourceFile, f.Err)
	}
}

func newQueryCmd(o *rootOptions) *cobra.Command {
	var (
		searchOnly bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from the ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.TrimSpace(strings.Join(args, " "))
			if q == "" {
				return fmt.Errorf("question is empty")
			}
			ctx, cancel := withTimeout(cmd, o.cfg.QueryTimeout())
			defer cancel()

			return o.withApp(ctx, func(app *bootstrap.App) error {
				out := cmd.OutOrStdout()
				if searchOnly {
					sel, err := app.Query.Search(ctx, q)
					if err != nil {
						return err
					}
					if asJSON {
						return writeJSON(out, toJSONSelection(sel, ""))
					}
					printSelection(out, sel)
					return nil
				}

				answer, err := app.Query.Query(ctx, entities.QueryRequest{Query: q})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, toJSONSelection(answer.Selection, answer.Text))
				}
				fmt.Fprintln(out, answer.Text)
				fmt.Fprintln(out)
				printSelection(out, answer.Selection)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&searchOnly, "search-only", "s", false, "print the selected contexts without generating an answer")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printSelection(w io.Writer, sel entities.Selection) {
	fmt.Fprintf(w, "Mode: %s", sel.Mode)
	if len(sel.Years) > 0 {
		fmt.Fprintf(w, "  Years: %s", strings.Join(sel.Years, ", "))
	}
	fmt.Fprintln(w)
	for i, sc := range sel.Chunks {
		fmt.Fprintf(w, "  [%d] %s (%.4f)\n", i+1, sc.Title, sc.Score)
	}
}

type jsonSource struct {
	Title      string  `json:"title"`
	SourceFile string  `json:"source_file"`
	Score      float64 `json:"score"`
}

type jsonResult struct {
	Answer  string                 `json:"answer,omitempty"`
	Mode    entities.SelectionMode `json:"mode"`
	Years   []string               `json:"years,omitempty"`
	Sources []jsonSource           `json:"sources"`
}

func toJSONSelection(sel entities.Selection, answer string) jsonResult {
	res := jsonResult{Answer: answer, Mode: sel.Mode, Years: sel.Years}
	for _, sc := range sel.Chunks {
		res.Sources = append(res.Sources, jsonSource{Title: sc.Title, SourceFile: sc.SourceFile, Score: sc.Score})
	}
	return res
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newDocumentsCmd(o *rootOptions) *cobra.Command {
	var countOnly bool
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List stored chunks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return o.withApp(ctx, func(app *bootstrap.App) error {
				out := cmd.OutOrStdout()
				if countOnly {
					total, err := app.Store.Count(ctx, ports.ChunkFilter{})
					if err != nil {
						return err
					}
					embedded, err := app.Store.Count(ctx, ports.ChunkFilter{EmbeddedOnly: true})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Chunks: %d  With embeddings: %d\n", total, embedded)
					return nil
				}

				chunks, err := app.Query.Documents(ctx)
				if err != nil {
					return err
				}
				if len(chunks) == 0 {
					fmt.Fprintln(out, "No documents stored.")
					return nil
				}
				for _, c := range chunks {
					fmt.Fprintf(out, "%s  %-40s  %s  dims=%d\n", c.ID, c.Title, filepath.Base(c.SourceFile), len(c.Embedding))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&countOnly, "count", false, "print chunk counts only")
	return cmd
}

func newChatCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive question answering in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return o.withApp(ctx, func(app *bootstrap.App) error {
				return tui.Run(ctx, app.Query, o.cfg.QueryTimeout())
			})
		},
	}
}

func newWatchCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Ingest files as they appear in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := o.cfg.Ingest.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			ctx := cmd.Context()
			return o.withApp(ctx, func(app *bootstrap.App) error {
				w, err := app.Watcher()
				if err != nil {
					return err
				}
				return w.Run(ctx, dir)
			})
		},
	}
}
