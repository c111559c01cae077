package importer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

func TestResolveOrCreateByExternalIDRenames(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, zerolog.Nop())
	ctx := context.Background()

	first := r.ResolveOrCreate(ctx, domain.CategoryActor, 42, "Jane")
	second := r.ResolveOrCreate(ctx, domain.CategoryActor, 42, "Jane Doe")

	if first == 0 || first != second {
		t.Fatalf("ids = %d, %d", first, second)
	}
	if got := store.relatedName(first); got != "Jane Doe" {
		t.Fatalf("name = %q", got)
	}
	if len(store.related) != 1 {
		t.Fatalf("related count = %d", len(store.related))
	}
}

func TestResolveOrCreateFallsBackToNameAndStamps(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, zerolog.Nop())
	ctx := context.Background()

	nameOnly := r.ResolveOrCreate(ctx, domain.CategoryGenre, 0, "Drama")
	withID := r.ResolveOrCreate(ctx, domain.CategoryGenre, 18, "Drama")

	if nameOnly != withID {
		t.Fatalf("name match should reuse the entity: %d vs %d", nameOnly, withID)
	}
	if got := store.relFields[withID][domain.RelatedFieldExternalID]; got != "18" {
		t.Fatalf("external id field = %q", got)
	}
}

func TestResolveOrCreateScopesByCategory(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, zerolog.Nop())
	ctx := context.Background()

	actor := r.ResolveOrCreate(ctx, domain.CategoryActor, 7, "Clint Eastwood")
	director := r.ResolveOrCreate(ctx, domain.CategoryDirector, 7, "Clint Eastwood")
	if actor == director {
		t.Fatalf("categories must not share entities")
	}
}

func TestResolveOrCreateBlankName(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, zerolog.Nop())

	if id := r.ResolveOrCreate(context.Background(), domain.CategoryActor, 5, "  \t"); id != 0 {
		t.Fatalf("id = %d", id)
	}
	if len(store.related) != 0 {
		t.Fatalf("blank names must not create entities")
	}
}

func TestResolveOrCreateFailureReturnsZero(t *testing.T) {
	store := newMemStore()
	store.failRelatedNames["Broken"] = true
	r := NewResolver(store, zerolog.Nop())

	if id := r.ResolveOrCreate(context.Background(), domain.CategoryDirector, 3, "Broken"); id != 0 {
		t.Fatalf("id = %d", id)
	}
}
