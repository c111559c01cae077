package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

const imageBase = "https://image.tmdb.org/t/p"

func newTestReconciler(store *memStore) (*Reconciler, *fakeImages) {
	images := &fakeImages{store: store}
	return NewReconciler(store, images, Options{ImageBaseURL: imageBase, Logger: zerolog.Nop()}), images
}

func sampleRecord() domain.DetailRecord {
	rating := 8.4
	return domain.DetailRecord{
		ExternalID:    27205,
		Language:      "en-US",
		Title:         "Inception",
		OriginalTitle: "Inception",
		Overview:      "Cobb steals secrets.",
		Tagline:       "Your mind is the scene of the crime.",
		ReleaseDate:   "2010-07-15",
		Runtime:       148,
		Status:        "Released",
		VoteAverage:   &rating,
		VoteCount:     35000,
		PosterPath:    "inception.jpg",
		Cast: []domain.CastMember{
			{ID: 6193, Name: "Leonardo DiCaprio", Character: "Cobb", Order: 0},
			{ID: 24045, Name: "Joseph Gordon-Levitt", Character: "Arthur", Order: 1},
		},
		Crew: []domain.CrewMember{
			{ID: 525, Name: "Christopher Nolan", Job: "Director", Department: "Directing"},
			{ID: 556, Name: "Emma Thomas", Job: "Producer", Department: "Production"},
			{ID: 999, Name: "Lower Case", Job: "director", Department: "Directing"},
		},
		Genres: []domain.Genre{{ID: 28, Name: "Action"}},
	}
}

func TestImportDetailIsIdempotent(t *testing.T) {
	store := newMemStore()
	rec, _ := newTestReconciler(store)
	ctx := context.Background()

	first, err := rec.ImportDetail(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("first import: %v", err)
	}

	updated := sampleRecord()
	updated.Title = "Inception (2010)"
	updated.Runtime = 150
	second, err := rec.ImportDetail(ctx, updated)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}

	if first != second {
		t.Fatalf("re-import created a new entity: %d vs %d", first, second)
	}
	if store.entityCount() != 1 {
		t.Fatalf("entity count = %d", store.entityCount())
	}
	if got := store.entities[first].Title; got != "Inception (2010)" {
		t.Fatalf("title = %q", got)
	}
	if got := store.field(first, domain.FieldRuntime); got != "150" {
		t.Fatalf("runtime = %q", got)
	}
}

func TestImportDetailWritesScalarFields(t *testing.T) {
	store := newMemStore()
	rec, _ := newTestReconciler(store)

	id, err := rec.ImportDetail(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("ImportDetail: %v", err)
	}
	want := map[string]string{
		domain.FieldExternalID:    "27205",
		domain.FieldLanguage:      "en-US",
		domain.FieldOriginalTitle: "Inception",
		domain.FieldTagline:       "Your mind is the scene of the crime.",
		domain.FieldReleaseDate:   "2010-07-15",
		domain.FieldRuntime:       "148",
		domain.FieldRating:        "8.4",
		domain.FieldVoteCount:     "35000",
		domain.FieldHomepage:      "",
		domain.FieldStatus:        "Released",
		domain.FieldPosterPath:    "inception.jpg",
	}
	for key, value := range want {
		if got := store.field(id, key); got != value {
			t.Errorf("field %s = %q, want %q", key, got, value)
		}
	}
	if store.entities[id].Body != "Cobb steals secrets." || store.entities[id].Status != domain.StatusPublished {
		t.Fatalf("entity = %+v", store.entities[id])
	}
}

func TestImportDetailKeepsExistingStatus(t *testing.T) {
	store := newMemStore()
	rec, _ := newTestReconciler(store)
	ctx := context.Background()

	id, err := rec.ImportDetail(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("ImportDetail: %v", err)
	}
	store.entities[id].Status = domain.StatusDraft

	if _, err := rec.ImportDetail(ctx, sampleRecord()); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if store.entityCount() != 1 || store.entities[id].Status != domain.StatusDraft {
		t.Fatalf("draft entity should be updated in place, got %+v", store.entities[id])
	}
}

func TestImportDetailReplacesRelations(t *testing.T) {
	store := newMemStore()
	rec, _ := newTestReconciler(store)
	ctx := context.Background()

	record := sampleRecord()
	id, err := rec.ImportDetail(ctx, record)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}

	record.Genres = []domain.Genre{{ID: 35, Name: "Comedy"}}
	if _, err := rec.ImportDetail(ctx, record); err != nil {
		t.Fatalf("second import: %v", err)
	}

	genres := store.relations[id][domain.CategoryGenre]
	if len(genres) != 1 || store.relatedName(genres[0]) != "Comedy" {
		t.Fatalf("genres = %v", genres)
	}

	var snapshots []domain.GenreSnapshot
	if err := json.Unmarshal([]byte(store.field(id, domain.FieldGenreDetail)), &snapshots); err != nil {
		t.Fatalf("decode genre detail: %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].Name != "Comedy" || snapshots[0].EntityID != genres[0] {
		t.Fatalf("genre snapshots = %+v", snapshots)
	}
}

func TestImportDetailDirectorsOnly(t *testing.T) {
	store := newMemStore()
	rec, _ := newTestReconciler(store)

	id, err := rec.ImportDetail(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("ImportDetail: %v", err)
	}
	directors := store.relations[id][domain.CategoryDirector]
	if len(directors) != 1 || store.relatedName(directors[0]) != "Christopher Nolan" {
		t.Fatalf("directors = %v", directors)
	}
	var snapshots []domain.DirectorSnapshot
	if err := json.Unmarshal([]byte(store.field(id, domain.FieldDirectorDetail)), &snapshots); err != nil {
		t.Fatalf("decode director detail: %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].Job != "Director" {
		t.Fatalf("director snapshots = %+v", snapshots)
	}
}

func TestImportDetailCastOrderAndCap(t *testing.T) {
	store := newMemStore()
	rec, _ := newTestReconciler(store)

	orders := []int{14, 3, 7, 0, 11, 5, 9, 1, 13, 2, 8, 12, 4, 10, 6}
	record := sampleRecord()
	record.Cast = nil
	for i, order := range orders {
		record.Cast = append(record.Cast, domain.CastMember{
			ID:        int64(1000 + i),
			Name:      fmt.Sprintf("Actor %d", order),
			Character: fmt.Sprintf("Role %d", order),
			Order:     order,
		})
	}

	id, err := rec.ImportDetail(context.Background(), record)
	if err != nil {
		t.Fatalf("ImportDetail: %v", err)
	}

	var cast []domain.CastSnapshot
	if err := json.Unmarshal([]byte(store.field(id, domain.FieldCastDetail)), &cast); err != nil {
		t.Fatalf("decode cast detail: %v", err)
	}
	if len(cast) != CastLimit {
		t.Fatalf("cast len = %d, want %d", len(cast), CastLimit)
	}
	actors := store.relations[id][domain.CategoryActor]
	for i, c := range cast {
		if c.Order != i {
			t.Fatalf("cast[%d].Order = %d", i, c.Order)
		}
		if actors[i] != c.EntityID {
			t.Fatalf("actor ids and snapshots misaligned at %d", i)
		}
	}
}

func TestImportDetailSkipsFailedRelationsAndStaysAligned(t *testing.T) {
	store := newMemStore()
	store.failRelatedNames["Joseph Gordon-Levitt"] = true
	rec, _ := newTestReconciler(store)

	record := sampleRecord()
	record.Cast = append(record.Cast,
		domain.CastMember{ID: 2524, Name: "Tom Hardy", Character: "Eames", Order: 2},
		domain.CastMember{ID: 0, Name: "   ", Character: "Nobody", Order: 3},
	)

	id, err := rec.ImportDetail(context.Background(), record)
	if err != nil {
		t.Fatalf("relation failures must not abort the import: %v", err)
	}

	actors := store.relations[id][domain.CategoryActor]
	var cast []domain.CastSnapshot
	if err := json.Unmarshal([]byte(store.field(id, domain.FieldCastDetail)), &cast); err != nil {
		t.Fatalf("decode cast detail: %v", err)
	}
	if len(actors) != 2 || len(cast) != 2 {
		t.Fatalf("actors = %v cast = %+v", actors, cast)
	}
	if cast[1].Name != "Tom Hardy" || cast[1].EntityID != actors[1] {
		t.Fatalf("snapshot list shifted: %+v", cast)
	}
}

func TestImportDetailDeduplicatesCast(t *testing.T) {
	store := newMemStore()
	rec, _ := newTestReconciler(store)

	record := sampleRecord()
	record.Cast = []domain.CastMember{
		{ID: 1, Name: "Same Person", Character: "First", Order: 0},
		{ID: 1, Name: "Same Person", Character: "Second", Order: 1},
	}
	id, err := rec.ImportDetail(context.Background(), record)
	if err != nil {
		t.Fatalf("ImportDetail: %v", err)
	}
	var cast []domain.CastSnapshot
	if err := json.Unmarshal([]byte(store.field(id, domain.FieldCastDetail)), &cast); err != nil {
		t.Fatalf("decode cast detail: %v", err)
	}
	if len(store.relations[id][domain.CategoryActor]) != 1 || len(cast) != 1 || cast[0].Character != "First" {
		t.Fatalf("cast = %+v", cast)
	}
}

func TestImportDetailPosterSkip(t *testing.T) {
	store := newMemStore()
	rec, images := newTestReconciler(store)
	ctx := context.Background()

	if _, err := rec.ImportDetail(ctx, sampleRecord()); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if len(images.calls) != 1 || images.calls[0] != imageBase+"/original/inception.jpg" {
		t.Fatalf("calls = %v", images.calls)
	}

	if _, err := rec.ImportDetail(ctx, sampleRecord()); err != nil {
		t.Fatalf("second import: %v", err)
	}
	if len(images.calls) != 1 {
		t.Fatalf("unchanged poster must not be downloaded again, calls = %v", images.calls)
	}

	changed := sampleRecord()
	changed.PosterPath = "inception-v2.jpg"
	id, err := rec.ImportDetail(ctx, changed)
	if err != nil {
		t.Fatalf("third import: %v", err)
	}
	if len(images.calls) != 2 {
		t.Fatalf("changed poster must be downloaded, calls = %v", images.calls)
	}
	if store.field(id, domain.FieldPosterPath) != "inception-v2.jpg" {
		t.Fatalf("poster path not updated")
	}
}

func TestImportDetailRedownloadsWhenImageMissing(t *testing.T) {
	store := newMemStore()
	rec, images := newTestReconciler(store)
	ctx := context.Background()

	id, err := rec.ImportDetail(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	delete(store.images, id)

	if _, err := rec.ImportDetail(ctx, sampleRecord()); err != nil {
		t.Fatalf("second import: %v", err)
	}
	if len(images.calls) != 2 {
		t.Fatalf("missing primary image should be re-attached, calls = %v", images.calls)
	}
}

func TestImportDetailPosterFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	rec, images := newTestReconciler(store)
	images.fail = true

	id, err := rec.ImportDetail(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("ImportDetail: %v", err)
	}
	if store.field(id, domain.FieldPosterPath) != "inception.jpg" {
		t.Fatalf("poster path should be written even when the download fails")
	}
}

func TestImportDetailFailures(t *testing.T) {
	t.Run("invalid record", func(t *testing.T) {
		store := newMemStore()
		rec, _ := newTestReconciler(store)
		record := sampleRecord()
		record.ExternalID = 0
		if _, err := rec.ImportDetail(context.Background(), record); !errors.Is(err, domain.ErrInvalidRecord) {
			t.Fatalf("error = %v", err)
		}
		if store.entityCount() != 0 {
			t.Fatalf("nothing should be written")
		}
	})

	t.Run("root persistence failure", func(t *testing.T) {
		store := newMemStore()
		store.failUpsertEntity = true
		rec, images := newTestReconciler(store)
		_, err := rec.ImportDetail(context.Background(), sampleRecord())
		if !errors.Is(err, domain.ErrPersistence) {
			t.Fatalf("error = %v", err)
		}
		if len(images.calls) != 0 || len(store.related) != 0 {
			t.Fatalf("import should abort before relations and poster")
		}
	})
}
