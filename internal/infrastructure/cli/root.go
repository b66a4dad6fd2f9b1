// Package cli implements the chronorag command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/chronorag-go/internal/infrastructure/bootstrap"
	"github.com/0xcro3dile/chronorag-go/internal/infrastructure/config"
	"github.com/0xcro3dile/chronorag-go/internal/infrastructure/logger"
)

// AppFactory builds the application for a command. bootstrap.New in
// production, a stub in tests.
type AppFactory func(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*bootstrap.App, error)

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string

	cfg     *config.AppConfig
	log     *slog.Logger
	factory AppFactory
}

// NewRootCmd assembles the command tree.
func NewRootCmd(factory AppFactory) *cobra.Command {
	if factory == nil {
		factory = bootstrap.New
	}
	opts := &rootOptions{factory: factory}

	root := &cobra.Command{
		Use:   "chronorag",
		Short: "Year-aware retrieval-augmented answers over local documents",
		Long: `chronorag ingests text and PDF documents, embeds their chunks and answers
questions from the most similar chunk. Years named in a question steer the
choice of source file: an exact year match wins, then the closest year, and
questions naming several years compare one chunk per year.`,
		SilenceUsage:      true,
		PersistentPreRunE: opts.load,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "dotenv file with secrets")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newQueryCmd(opts),
		newDocumentsCmd(opts),
		newChatCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

func (o *rootOptions) load(cmd *cobra.Command, _ []string) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", o.envFile, err)
		}
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	o.cfg = cfg
	o.log = logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

// withApp builds the app, runs fn and closes the app.
func (o *rootOptions) withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	app, err := o.factory(ctx, o.cfg, o.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			o.log.Warn("closing app", "error", err)
		}
	}()
	return fn(app)
}
