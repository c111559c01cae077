package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/movie-importer/internal/importer"
	"github.com/Clark-Hu/movie-importer/internal/media"
	"github.com/Clark-Hu/movie-importer/internal/repository"
	"github.com/Clark-Hu/movie-importer/internal/store"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search movies and TV with language fallback",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			orchestrator, err := newOrchestrator(cfg, log)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context(), 2*cfg.TMDBTimeout())
			defer cancel()
			result, err := orchestrator.SearchWithFallback(ctx, strings.Join(args, " "), page, opts.langs())
			if err != nil {
				return describe(err)
			}
			if err := printResults(cmd.OutOrStdout(), opts.asJSON, result, result.Items); err != nil {
				return err
			}
			if !opts.asJSON {
				note := ""
				if result.UsedFallback {
					note = " (fallback language)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d%s\n", result.Page, result.TotalPages, note)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "result page (1-based)")
	return cmd
}

func newTestConnectionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection [query]",
		Short: "Run a small movie-only search to verify provider credentials",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			orchestrator, err := newOrchestrator(cfg, log)
			if err != nil {
				return err
			}

			query := "Inception"
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				query = args[0]
			}
			ctx, cancel := withTimeout(cmd.Context(), cfg.TMDBTimeout())
			defer cancel()
			items, err := orchestrator.TestConnection(ctx, query, opts.langs())
			if err != nil {
				return describe(err)
			}
			return printResults(cmd.OutOrStdout(), opts.asJSON, items, items)
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var skipImages bool
	cmd := &cobra.Command{
		Use:   "import <external-id>",
		Short: "Fetch one movie and reconcile it into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			externalID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("external id must be an integer: %q", args[0])
			}
			cfg, log, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DBURL == "" {
				return fmt.Errorf("DB_URL is required")
			}
			orchestrator, err := newOrchestrator(cfg, log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := store.New(ctx, cfg.DBURL, store.Options{
				MaxConns:               2,
				ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
				MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
				StatementCacheCapacity: cfg.DBStatementCache,
				Logger:                 log,
			})
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer st.Close()

			repo := repository.New(st)
			var images importer.ImageAttacher
			if !skipImages {
				images = media.New(cfg.MediaDir, repo.Media, 2*cfg.TMDBTimeout(), media.WithLogger(log))
			}
			reconciler := importer.NewReconciler(repository.NewImportStore(repo), images, importer.Options{
				ImageBaseURL: cfg.TMDBImageBaseURL,
				Logger:       log,
			})

			entityID, err := importer.NewPipeline(orchestrator, reconciler, log).Import(ctx, externalID, opts.langs())
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d as entity %d\n", externalID, entityID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipImages, "skip-images", false, "do not download the poster")
	return cmd
}
