package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/tmdb"
)

func newMockServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	raw, err := os.ReadFile("fixtures.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	cat, err := loadCatalogue(raw, apiKey, zerolog.Nop())
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	srv := httptest.NewServer(cat.routes())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL, apiKey string) *tmdb.HTTPClient {
	t.Helper()
	client, err := tmdb.NewHTTPClient(baseURL, apiKey, 2*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestMockServesSearch(t *testing.T) {
	srv := newMockServer(t, "")
	client := newClient(t, srv.URL, "any")

	page, err := client.Search(context.Background(), tmdb.SearchRequest{Query: "the", Page: 1, Language: "en-US"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != 603 || page.Items[0].MediaType != "movie" {
		t.Fatalf("items = %+v", page.Items)
	}
	if page.Items[0].Overview == "" || page.Items[0].PosterPath != "f89U3ADr1oiB1s9GkdPOEpXUk5H.jpg" {
		t.Fatalf("item not normalized: %+v", page.Items[0])
	}

	empty, err := client.Search(context.Background(), tmdb.SearchRequest{Query: "nothing matches", Page: 1, Endpoint: tmdb.EndpointMovie})
	if err != nil || len(empty.Items) != 0 {
		t.Fatalf("empty search = %+v, %v", empty, err)
	}
}

func TestMockServesDetail(t *testing.T) {
	srv := newMockServer(t, "")
	client := newClient(t, srv.URL, "any")

	record, err := client.FetchDetail(context.Background(), 27205, "en-US")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if record.Title != "Inception" || len(record.Cast) != 4 || len(record.Genres) != 3 {
		t.Fatalf("record = %+v", record)
	}

	_, err = client.FetchDetail(context.Background(), 1, "en-US")
	var failure *domain.Failure
	if !errors.As(err, &failure) || failure.Kind != domain.KindProvider || failure.Status != 404 {
		t.Fatalf("missing movie err = %v", err)
	}
}

func TestMockRejectsWrongKey(t *testing.T) {
	srv := newMockServer(t, "secret")
	client := newClient(t, srv.URL, "wrong")

	_, err := client.Search(context.Background(), tmdb.SearchRequest{Query: "matrix", Page: 1})
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider failure, got %v", err)
	}
}
