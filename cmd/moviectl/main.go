package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Clark-Hu/movie-importer/internal/config"
	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/logger"
	"github.com/Clark-Hu/movie-importer/internal/search"
	"github.com/Clark-Hu/movie-importer/internal/tmdb"
)

type rootOptions struct {
	envFile  string
	asJSON   bool
	language string
	fallback string
	verbose  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "moviectl",
		Short: "Search the movie metadata provider and import records",
		Long: `Operator CLI for the movie importer.

Configuration comes from the same environment variables as the server,
optionally loaded from a .env file first.

Examples:
  moviectl search "the matrix" --page 2
  moviectl test-connection
  moviectl import 603 --language de-DE`,
		SilenceUsage: true,
	}
	f := root.PersistentFlags()
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	f.StringVar(&opts.language, "language", "", "primary language (default PRIMARY_LANGUAGE)")
	f.StringVar(&opts.fallback, "fallback-language", "", "fallback language (default FALLBACK_LANGUAGE)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newSearchCmd(opts), newTestConnectionCmd(opts), newImportCmd(opts))
	return root
}

func (o *rootOptions) langs() search.Languages {
	return search.Languages{Primary: o.language, Fallback: o.fallback}
}

// loadConfig reads the environment after applying the dotenv file. Only an
// explicitly named file is required to exist.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	if err := godotenv.Load(o.envFile); err != nil && (cmd.Flags().Changed("env-file") || !errors.Is(err, os.ErrNotExist)) {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("load %s: %w", o.envFile, err)
	}
	cfg := config.FromEnv()
	if err := cfg.ValidateProvider(); err != nil {
		return config.Config{}, zerolog.Nop(), err
	}

	level := cfg.LogLevel
	if o.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Prefix: "moviectl", Level: level, File: cfg.LogFile, Output: cmd.ErrOrStderr()})
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, log, nil
}

func newOrchestrator(cfg config.Config, log zerolog.Logger) (*search.Orchestrator, error) {
	client, err := tmdb.NewHTTPClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey, cfg.TMDBTimeout(),
		tmdb.WithRateLimit(cfg.TMDBRateLimit, 1),
		tmdb.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	primary, fallback := cfg.Languages()
	return search.New(client, search.Languages{Primary: primary, Fallback: fallback}, log), nil
}

func printResults(out io.Writer, asJSON bool, payload any, items []domain.SearchResult) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tRELEASED\tVOTES\tRATING")
	for _, item := range items {
		rating := "-"
		if item.VoteAverage != nil {
			rating = fmt.Sprintf("%.1f", *item.VoteAverage)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", item.ID, item.Title, item.ReleaseDate, item.VoteCount, rating)
	}
	return tw.Flush()
}

// describe renders a failure the way the admin surface does.
func describe(err error) error {
	var failure *domain.Failure
	if errors.As(err, &failure) {
		return fmt.Errorf("%s: %s", failure.Kind, failure.UserMessage())
	}
	return err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
