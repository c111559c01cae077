package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-importer/internal/logger"
)

const pageSize = 20

// fixture is the on-disk mock catalogue. Movies keep the provider's raw
// detail payload so the real client decodes exactly what it would upstream.
type fixture struct {
	Movies []json.RawMessage `json:"movies"`
}

type movieSummary struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	OriginalTitle    string   `json:"original_title"`
	Overview         string   `json:"overview"`
	ReleaseDate      string   `json:"release_date"`
	OriginalLanguage string   `json:"original_language"`
	PosterPath       *string  `json:"poster_path"`
	VoteAverage      *float64 `json:"vote_average"`
	VoteCount        int      `json:"vote_count"`
	MediaType        string   `json:"media_type,omitempty"`
}

type catalogue struct {
	summaries []movieSummary
	details   map[int64]json.RawMessage
	apiKey    string
	log       zerolog.Logger
}

type statusPayload struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "cmd/tmdb-mock/fixtures.json", "path to mock data file")
		apiKey  = flag.String("api-key", "", "reject requests whose api_key differs (empty accepts any)")
		verbose = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Prefix: "tmdb-mock", Level: level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tmdb-mock: %v\n", err)
		os.Exit(1)
	}

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatal().Err(err).Msg("read mock data")
	}
	cat, err := loadCatalogue(file, *apiKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("parse mock data")
	}

	addr := ":" + *port
	log.Info().Str("addr", addr).Int("movies", len(cat.summaries)).Msg("mock tmdb listening")
	if err := http.ListenAndServe(addr, cat.routes()); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func loadCatalogue(raw []byte, apiKey string, log zerolog.Logger) (*catalogue, error) {
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return nil, err
	}
	cat := &catalogue{details: make(map[int64]json.RawMessage, len(fx.Movies)), apiKey: apiKey, log: log}
	for _, movie := range fx.Movies {
		var summary movieSummary
		if err := json.Unmarshal(movie, &summary); err != nil {
			return nil, err
		}
		cat.summaries = append(cat.summaries, summary)
		cat.details[summary.ID] = movie
	}
	return cat, nil
}

func (c *catalogue) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(c.checkKey)
	r.Get("/search/multi", c.handleSearch(true))
	r.Get("/search/movie", c.handleSearch(false))
	r.Get("/movie/{id}", c.handleDetail)
	return r
}

func (c *catalogue) checkKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.log.Debug().Str("path", r.URL.Path).Str("query", r.URL.Query().Get("query")).Msg("request")
		if c.apiKey != "" && r.URL.Query().Get("api_key") != c.apiKey {
			writeJSON(w, http.StatusUnauthorized, statusPayload{StatusCode: 7, StatusMessage: "Invalid API key: You must be granted a valid key."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *catalogue) handleSearch(multi bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("query")))
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}

		matches := make([]movieSummary, 0)
		for _, s := range c.summaries {
			if query != "" && !strings.Contains(strings.ToLower(s.Title), query) {
				continue
			}
			if multi {
				s.MediaType = "movie"
			}
			matches = append(matches, s)
		}

		totalPages := (len(matches) + pageSize - 1) / pageSize
		start := min((page-1)*pageSize, len(matches))
		end := min(start+pageSize, len(matches))
		writeJSON(w, http.StatusOK, map[string]any{
			"page":          page,
			"total_pages":   totalPages,
			"total_results": len(matches),
			"results":       matches[start:end],
		})
	}
}

func (c *catalogue) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	detail, ok := c.details[id]
	if err != nil || !ok {
		writeJSON(w, http.StatusNotFound, statusPayload{StatusCode: 34, StatusMessage: "The resource you requested could not be found."})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(detail)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
