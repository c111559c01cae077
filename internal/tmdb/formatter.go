package tmdb

import (
	"cmp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	json "github.com/goccy/go-json"
	"github.com/valyala/fastjson"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

// OverviewWords is the word budget of a formatted overview.
const OverviewWords = 40

// TestConnectionLimit caps the lightweight connectivity check.
const TestConnectionLimit = 10

// Format normalizes raw provider search rows. Rows that are not objects or
// lack a nonzero id are dropped; the result is stably sorted by vote count, descending.
func Format(raw []json.RawMessage) []domain.SearchResult {
	var p fastjson.Parser
	items := make([]domain.SearchResult, 0, len(raw))
	for _, row := range raw {
		v, err := p.ParseBytes(row)
		if err != nil || v.Type() != fastjson.TypeObject {
			continue
		}
		item, ok := formatRow(v)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	slices.SortStableFunc(items, func(a, b domain.SearchResult) int {
		return cmp.Compare(b.VoteCount, a.VoteCount)
	})
	return items
}

// Limit truncates an already formatted list.
func Limit(items []domain.SearchResult, limit int) []domain.SearchResult {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func formatRow(v *fastjson.Value) (domain.SearchResult, bool) {
	id := v.GetInt64("id")
	if id == 0 {
		return domain.SearchResult{}, false
	}

	item := domain.SearchResult{
		ID:               id,
		Title:            firstString(v, "title", "name"),
		OriginalTitle:    firstString(v, "original_title", "original_name"),
		Overview:         TruncateWords(StripTags(firstString(v, "overview")), OverviewWords),
		ReleaseDate:      firstString(v, "release_date", "first_air_date"),
		OriginalLanguage: firstString(v, "original_language"),
		PosterPath:       strings.TrimLeft(firstString(v, "poster_path"), "/"),
		MediaType:        firstString(v, "media_type"),
	}
	if avg := v.Get("vote_average"); avg != nil && avg.Type() == fastjson.TypeNumber {
		if f, err := avg.Float64(); err == nil {
			item.VoteAverage = &f
		}
	}
	if count := v.GetInt("vote_count"); count > 0 {
		item.VoteCount = count
	}
	return item, true
}

func firstString(v *fastjson.Value, keys ...string) string {
	for _, key := range keys {
		if s := strings.TrimSpace(string(v.GetStringBytes(key))); s != "" {
			return s
		}
	}
	return ""
}

// StripTags removes markup and collapses whitespace.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// TruncateWords keeps the first n words, appending an ellipsis when text was cut.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "…"
}
