package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/metrics"
)

// Resolver finds or creates actor, director and genre records.
type Resolver struct {
	store  Store
	logger zerolog.Logger
}

// NewResolver builds a Resolver over the given store.
func NewResolver(store Store, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// ResolveOrCreate returns the id of the related entity for (category,
// externalID, name), creating it when missing. Lookup goes by external id
// first, then by exact name. A found entity is renamed to name and, when
// externalID is positive, stamped with it. Zero means the relation should be
// skipped: either the name was blank or persistence failed.
func (r *Resolver) ResolveOrCreate(ctx context.Context, category domain.Category, externalID int64, name string) int64 {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0
	}

	id, err := r.resolve(ctx, category, externalID, name)
	if err != nil {
		failure := domain.RelationFailure(category, name, err)
		metrics.RelationsSkipped.WithLabelValues(string(category)).Inc()
		r.logger.Warn().
			Err(failure).
			Str("category", string(category)).
			Int64("external_id", externalID).
			Str("name", name).
			Msg("importer: relation skipped")
		return 0
	}
	return id
}

func (r *Resolver) resolve(ctx context.Context, category domain.Category, externalID int64, name string) (int64, error) {
	var (
		found *domain.RelatedEntity
		err   error
	)
	if externalID > 0 {
		found, err = r.store.FindRelatedByExternalID(ctx, category, externalID)
		if err != nil {
			return 0, fmt.Errorf("find by external id: %w", err)
		}
	}
	if found == nil {
		found, err = r.store.FindRelatedByName(ctx, category, name)
		if err != nil {
			return 0, fmt.Errorf("find by name: %w", err)
		}
	}

	related := domain.RelatedEntity{Category: category, Name: name}
	if found != nil {
		related.ID = found.ID
	}
	id, err := r.store.UpsertRelated(ctx, related)
	if err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("upsert returned no id")
	}

	if externalID > 0 {
		if err := r.store.SetRelatedField(ctx, id, domain.RelatedFieldExternalID, strconv.FormatInt(externalID, 10)); err != nil {
			return 0, fmt.Errorf("stamp external id: %w", err)
		}
	}
	return id, nil
}
