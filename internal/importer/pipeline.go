package importer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/metrics"
	"github.com/Clark-Hu/movie-importer/internal/search"
)

// ImportTimeout bounds one shared import run.
const ImportTimeout = 2 * time.Minute

// DetailFetcher loads a detail record with language fallback.
type DetailFetcher interface {
	FetchDetailWithFallback(ctx context.Context, id int64, langs search.Languages) (domain.DetailRecord, error)
	Resolve(langs search.Languages) search.Languages
}

// Pipeline fetches a provider record and reconciles it. Concurrent imports of
// the same external id and locale pair within the process share a single run.
type Pipeline struct {
	fetcher    DetailFetcher
	reconciler *Reconciler
	group      singleflight.Group
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewPipeline builds a Pipeline.
func NewPipeline(fetcher DetailFetcher, reconciler *Reconciler, logger zerolog.Logger) *Pipeline {
	return &Pipeline{fetcher: fetcher, reconciler: reconciler, timeout: ImportTimeout, logger: logger}
}

// Import fetches externalID from the provider and writes it locally. The
// shared run is detached from any single caller; a caller whose ctx ends
// stops waiting but the run continues for the others.
func (p *Pipeline) Import(ctx context.Context, externalID int64, langs search.Languages) (int64, error) {
	if externalID <= 0 {
		metrics.Imports.WithLabelValues(string(domain.KindInvalidRecord)).Inc()
		return 0, domain.InvalidRecordFailure("external id must be positive")
	}

	langs = p.fetcher.Resolve(langs)
	key := strconv.FormatInt(externalID, 10) + "|" + langs.Primary + "|" + langs.Fallback

	ch := p.group.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		record, err := p.fetcher.FetchDetailWithFallback(runCtx, externalID, langs)
		if err != nil {
			return int64(0), err
		}
		id, err := p.reconciler.ImportDetail(runCtx, record)
		return id, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		metrics.Imports.WithLabelValues("canceled").Inc()
		return 0, fmt.Errorf("import %d: %w", externalID, ctx.Err())
	}

	if res.Shared {
		p.logger.Debug().Int64("external_id", externalID).Msg("importer: joined in-flight import")
	}
	if res.Err != nil {
		metrics.Imports.WithLabelValues(outcome(res.Err)).Inc()
		p.logger.Error().Err(res.Err).Int64("external_id", externalID).Msg("importer: import failed")
		return 0, res.Err
	}
	metrics.Imports.WithLabelValues("imported").Inc()
	return res.Val.(int64), nil
}

func outcome(err error) string {
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
