package httpserver

import (
	"net/url"
	"testing"
)

func FuzzBuildSearchParams(f *testing.F) {
	seeds := []string{
		"q=Inception&page=2&language=de-DE",
		"page=abc",
		"page=-1",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		params, err := buildSearchParams(values)
		if err == nil && params.Page < 1 {
			t.Fatalf("accepted page %d", params.Page)
		}
	})
}

func FuzzBuildEntityFilters(f *testing.F) {
	for _, seed := range []string{"q=matrix&limit=5", "limit=x", "cursor=abc", ""} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		_, _ = buildEntityFilters(values)
	})
}
