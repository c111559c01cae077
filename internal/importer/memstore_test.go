package importer

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

var errBoom = errors.New("boom")

// memStore is an in-memory Store used by the importer tests.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	entities  map[int64]*domain.ContentEntity
	related   map[int64]*domain.RelatedEntity
	relFields map[int64]map[string]string
	relations map[int64]map[domain.Category][]int64
	images    map[int64]bool

	failUpsertEntity bool
	failRelatedNames map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		entities:         make(map[int64]*domain.ContentEntity),
		related:          make(map[int64]*domain.RelatedEntity),
		relFields:        make(map[int64]map[string]string),
		relations:        make(map[int64]map[domain.Category][]int64),
		images:           make(map[int64]bool),
		failRelatedNames: make(map[string]bool),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) FindEntityByExternalID(ctx context.Context, externalID int64) (*domain.ContentEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := strconv.FormatInt(externalID, 10)
	for _, e := range s.entities {
		if e.Fields[domain.FieldExternalID] == want {
			cp := *e
			cp.Fields = make(map[string]string, len(e.Fields))
			for k, v := range e.Fields {
				cp.Fields[k] = v
			}
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpsertEntity(ctx context.Context, entity domain.ContentEntity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsertEntity {
		return 0, errBoom
	}
	if entity.ID == 0 {
		entity.ID = s.id()
		entity.Fields = make(map[string]string)
		s.entities[entity.ID] = &entity
		return entity.ID, nil
	}
	current, ok := s.entities[entity.ID]
	if !ok {
		return 0, errors.New("entity not found")
	}
	current.Title, current.Body, current.Status = entity.Title, entity.Body, entity.Status
	return entity.ID, nil
}

func (s *memStore) SetEntityField(ctx context.Context, entityID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[entityID]
	if !ok {
		return errors.New("entity not found")
	}
	e.Fields[key] = value
	return nil
}

func (s *memStore) HasPrimaryImage(ctx context.Context, entityID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images[entityID], nil
}

func (s *memStore) FindRelatedByExternalID(ctx context.Context, category domain.Category, externalID int64) (*domain.RelatedEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := strconv.FormatInt(externalID, 10)
	for id, r := range s.related {
		if r.Category == category && s.relFields[id][domain.RelatedFieldExternalID] == want {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindRelatedByName(ctx context.Context, category domain.Category, name string) (*domain.RelatedEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.related {
		if r.Category == category && r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpsertRelated(ctx context.Context, related domain.RelatedEntity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRelatedNames[related.Name] {
		return 0, errBoom
	}
	if related.ID == 0 {
		related.ID = s.id()
		s.related[related.ID] = &related
		s.relFields[related.ID] = make(map[string]string)
		return related.ID, nil
	}
	current, ok := s.related[related.ID]
	if !ok {
		return 0, errors.New("related not found")
	}
	current.Name = related.Name
	return related.ID, nil
}

func (s *memStore) SetRelatedField(ctx context.Context, relatedID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.relFields[relatedID]
	if !ok {
		return errors.New("related not found")
	}
	fields[key] = value
	return nil
}

func (s *memStore) SetEntityRelations(ctx context.Context, entityID int64, category domain.Category, relatedIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.relations[entityID] == nil {
		s.relations[entityID] = make(map[domain.Category][]int64)
	}
	s.relations[entityID][category] = append([]int64(nil), relatedIDs...)
	return nil
}

func (s *memStore) entityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

func (s *memStore) relatedName(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.related[id]; ok {
		return r.Name
	}
	return ""
}

func (s *memStore) field(entityID int64, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[entityID]; ok {
		return e.Fields[key]
	}
	return ""
}

// fakeImages records every download request.
type fakeImages struct {
	store *memStore
	calls []string
	fail  bool
}

func (f *fakeImages) AttachPrimaryImage(ctx context.Context, entityID int64, sourceURL, altText string) (bool, error) {
	f.calls = append(f.calls, sourceURL)
	if f.fail {
		return false, errBoom
	}
	f.store.mu.Lock()
	f.store.images[entityID] = true
	f.store.mu.Unlock()
	return true, nil
}
