package search

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/metrics"
	"github.com/Clark-Hu/movie-importer/internal/tmdb"
)

// Languages is a primary/fallback locale pair.
type Languages struct {
	Primary  string
	Fallback string
}

// normalized trims both locales and defaults the fallback to the primary.
func (l Languages) normalized() Languages {
	l.Primary = strings.TrimSpace(l.Primary)
	l.Fallback = strings.TrimSpace(l.Fallback)
	if l.Fallback == "" {
		l.Fallback = l.Primary
	}
	return l
}

// Orchestrator runs provider lookups with a secondary-language fallback.
type Orchestrator struct {
	client tmdb.Client
	langs  Languages
	logger zerolog.Logger
}

// New builds an Orchestrator with default locales taken from configuration.
func New(client tmdb.Client, defaults Languages, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{client: client, langs: defaults.normalized(), logger: logger}
}

// Defaults returns the configured locale pair.
func (o *Orchestrator) Defaults() Languages {
	return o.langs
}

// Resolve fills blank locales from the configured defaults.
func (o *Orchestrator) Resolve(langs Languages) Languages {
	if strings.TrimSpace(langs.Primary) == "" {
		langs.Primary = o.langs.Primary
	}
	if strings.TrimSpace(langs.Fallback) == "" {
		langs.Fallback = o.langs.Fallback
	}
	return langs.normalized()
}

// SearchWithFallback queries the primary locale and, only when that succeeds
// with no items, re-queries the fallback locale from page 1. Failures are
// returned as-is and never trigger the fallback.
func (o *Orchestrator) SearchWithFallback(ctx context.Context, query string, page int, langs Languages) (domain.SearchPage, error) {
	langs = o.Resolve(langs)

	primary, err := o.client.Search(ctx, tmdb.SearchRequest{
		Query:    query,
		Page:     page,
		Language: langs.Primary,
		Endpoint: tmdb.EndpointMulti,
	})
	if err != nil {
		return domain.SearchPage{}, err
	}
	if len(primary.Items) > 0 || langs.Fallback == langs.Primary {
		return primary, nil
	}

	o.logger.Debug().
		Str("query", query).
		Str("primary", langs.Primary).
		Str("fallback", langs.Fallback).
		Msg("search: primary language empty, trying fallback")

	fallback, err := o.client.Search(ctx, tmdb.SearchRequest{
		Query:    query,
		Page:     1,
		Language: langs.Fallback,
		Endpoint: tmdb.EndpointMulti,
	})
	if err != nil {
		return domain.SearchPage{}, err
	}
	if len(fallback.Items) == 0 {
		return primary, nil
	}
	metrics.SearchFallbacks.Inc()
	fallback.UsedFallback = true
	return fallback, nil
}

// FetchDetailWithFallback fetches a detail record in the primary locale and
// retries once in the fallback locale only when the first call fails.
func (o *Orchestrator) FetchDetailWithFallback(ctx context.Context, id int64, langs Languages) (domain.DetailRecord, error) {
	langs = o.Resolve(langs)

	record, err := o.client.FetchDetail(ctx, id, langs.Primary)
	if err == nil || langs.Fallback == langs.Primary {
		return record, err
	}

	o.logger.Warn().
		Err(err).
		Int64("external_id", id).
		Str("fallback", langs.Fallback).
		Msg("search: detail fetch failed, retrying in fallback language")

	return o.client.FetchDetail(ctx, id, langs.Fallback)
}

// TestConnection runs a lightweight movie search in the primary locale and
// returns at most tmdb.TestConnectionLimit results.
func (o *Orchestrator) TestConnection(ctx context.Context, query string, langs Languages) ([]domain.SearchResult, error) {
	langs = o.Resolve(langs)
	page, err := o.client.Search(ctx, tmdb.SearchRequest{
		Query:    query,
		Page:     1,
		Language: langs.Primary,
		Endpoint: tmdb.EndpointMovie,
	})
	if err != nil {
		return nil, err
	}
	return tmdb.Limit(page.Items, tmdb.TestConnectionLimit), nil
}
