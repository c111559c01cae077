package importer

import (
	"context"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

// Store is the persistence surface the reconciler and resolver write through.
// Find methods return a nil pointer and a nil error when nothing matches.
type Store interface {
	FindEntityByExternalID(ctx context.Context, externalID int64) (*domain.ContentEntity, error)
	// UpsertEntity inserts when entity.ID is zero and updates title, body and
	// status otherwise.
	UpsertEntity(ctx context.Context, entity domain.ContentEntity) (int64, error)
	SetEntityField(ctx context.Context, entityID int64, key, value string) error
	HasPrimaryImage(ctx context.Context, entityID int64) (bool, error)

	FindRelatedByExternalID(ctx context.Context, category domain.Category, externalID int64) (*domain.RelatedEntity, error)
	FindRelatedByName(ctx context.Context, category domain.Category, name string) (*domain.RelatedEntity, error)
	// UpsertRelated inserts when related.ID is zero and renames otherwise.
	UpsertRelated(ctx context.Context, related domain.RelatedEntity) (int64, error)
	SetRelatedField(ctx context.Context, relatedID int64, key, value string) error
	SetEntityRelations(ctx context.Context, entityID int64, category domain.Category, relatedIDs []int64) error
}

// ImageAttacher downloads an image and records it as an entity's primary image.
type ImageAttacher interface {
	AttachPrimaryImage(ctx context.Context, entityID int64, sourceURL, altText string) (bool, error)
}
