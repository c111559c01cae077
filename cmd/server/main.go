package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-importer/internal/config"
	httpserver "github.com/Clark-Hu/movie-importer/internal/http"
	"github.com/Clark-Hu/movie-importer/internal/importer"
	"github.com/Clark-Hu/movie-importer/internal/logger"
	"github.com/Clark-Hu/movie-importer/internal/media"
	"github.com/Clark-Hu/movie-importer/internal/repository"
	"github.com/Clark-Hu/movie-importer/internal/search"
	"github.com/Clark-Hu/movie-importer/internal/store"
	"github.com/Clark-Hu/movie-importer/internal/tmdb"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "movie-importer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(logger.Options{Prefix: "movie-importer", Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 log,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	orchestrator, err := newOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	repo := repository.New(st)
	downloader := media.New(cfg.MediaDir, repo.Media, cfg.TMDBTimeout()*2, media.WithLogger(log))
	reconciler := importer.NewReconciler(repository.NewImportStore(repo), downloader, importer.Options{
		ImageBaseURL: cfg.TMDBImageBaseURL,
		Logger:       log,
	})
	pipeline := importer.NewPipeline(orchestrator, reconciler, log)

	server := httpserver.New(cfg, st, repo, orchestrator, pipeline, log)

	return serve(ctx, server, log)
}

type lifecycle interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx ends or it fails, then shuts it down. A serving
// failure is returned so the process exits non-zero.
func serve(ctx context.Context, srv lifecycle, log zerolog.Logger) error {
	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var serveErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			serveErr = fmt.Errorf("serve http: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	return serveErr
}

func newOrchestrator(cfg config.Config, log zerolog.Logger) (*search.Orchestrator, error) {
	client, err := tmdb.NewHTTPClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey, cfg.TMDBTimeout(),
		tmdb.WithRateLimit(cfg.TMDBRateLimit, 1),
		tmdb.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("init tmdb client: %w", err)
	}
	primary, fallback := cfg.Languages()
	return search.New(client, search.Languages{Primary: primary, Fallback: fallback}, log), nil
}
