package repository

import (
	"context"
	"errors"

	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/importer"
)

var _ importer.Store = ImportStore{}

// ImportStore adapts a Repository to the importer's persistence interface,
// turning ErrNotFound lookups into nil results.
type ImportStore struct {
	repo *Repository
}

// NewImportStore wraps repo.
func NewImportStore(repo *Repository) ImportStore {
	return ImportStore{repo: repo}
}

func (s ImportStore) FindEntityByExternalID(ctx context.Context, externalID int64) (*domain.ContentEntity, error) {
	entity, err := s.repo.Entities.FindByExternalID(ctx, externalID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (s ImportStore) UpsertEntity(ctx context.Context, entity domain.ContentEntity) (int64, error) {
	return s.repo.Entities.Upsert(ctx, entity)
}

func (s ImportStore) SetEntityField(ctx context.Context, entityID int64, key, value string) error {
	return s.repo.Entities.SetField(ctx, entityID, key, value)
}

func (s ImportStore) HasPrimaryImage(ctx context.Context, entityID int64) (bool, error) {
	return s.repo.Media.HasPrimary(ctx, entityID)
}

func (s ImportStore) FindRelatedByExternalID(ctx context.Context, category domain.Category, externalID int64) (*domain.RelatedEntity, error) {
	return optional(s.repo.Related.FindByExternalID(ctx, category, externalID))
}

func (s ImportStore) FindRelatedByName(ctx context.Context, category domain.Category, name string) (*domain.RelatedEntity, error) {
	return optional(s.repo.Related.FindByName(ctx, category, name))
}

func (s ImportStore) UpsertRelated(ctx context.Context, related domain.RelatedEntity) (int64, error) {
	return s.repo.Related.Upsert(ctx, related)
}

func (s ImportStore) SetRelatedField(ctx context.Context, relatedID int64, key, value string) error {
	return s.repo.Related.SetField(ctx, relatedID, key, value)
}

func (s ImportStore) SetEntityRelations(ctx context.Context, entityID int64, category domain.Category, relatedIDs []int64) error {
	return s.repo.Related.SetRelations(ctx, entityID, category, relatedIDs)
}

func optional(related domain.RelatedEntity, err error) (*domain.RelatedEntity, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &related, nil
}
