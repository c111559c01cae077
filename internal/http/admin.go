package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/search"
	"github.com/Clark-Hu/movie-importer/internal/tmdb"
)

// defaultConnectionQuery is used by the API test when no query is given.
const defaultConnectionQuery = "Inception"

type searchParams struct {
	Query string
	Page  int
	Langs search.Languages
}

type searchItemResponse struct {
	domain.SearchResult
	PosterURL string `json:"posterUrl,omitempty"`
}

type searchPageResponse struct {
	Query        string               `json:"query"`
	Items        []searchItemResponse `json:"items"`
	Page         int                  `json:"page"`
	TotalPages   int                  `json:"totalPages"`
	UsedFallback bool                 `json:"usedFallback"`
	HasPrev      bool                 `json:"hasPrev"`
	HasNext      bool                 `json:"hasNext"`
	PrevPage     int                  `json:"prevPage,omitempty"`
	NextPage     int                  `json:"nextPage,omitempty"`
	ImageBaseURL string               `json:"imageBaseURL"`
}

type apiTestResponse struct {
	Query string               `json:"query"`
	Items []searchItemResponse `json:"items"`
}

type importRequest struct {
	ID               int64  `json:"id"`
	Language         string `json:"language,omitempty"`
	FallbackLanguage string `json:"fallbackLanguage,omitempty"`
}

type importResponse struct {
	EntityID int64 `json:"entityId"`
}

func buildSearchParams(query url.Values) (searchParams, error) {
	params := searchParams{
		Query: strings.TrimSpace(query.Get("q")),
		Page:  1,
		Langs: search.Languages{
			Primary:  strings.TrimSpace(query.Get("language")),
			Fallback: strings.TrimSpace(query.Get("fallback_language")),
		},
	}
	if val := strings.TrimSpace(query.Get("page")); val != "" {
		page, err := strconv.Atoi(val)
		if err != nil || page < 1 {
			return params, fmt.Errorf("invalid page value")
		}
		params.Page = page
	}
	return params, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params, err := buildSearchParams(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if params.Query == "" {
		s.respondJSON(w, http.StatusOK, s.toSearchPage(params.Query, domain.SearchPage{Page: 1}))
		return
	}

	page, err := s.search.SearchWithFallback(r.Context(), params.Query, params.Page, params.Langs)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.toSearchPage(params.Query, page))
}

func (s *Server) handleAPITest(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		query = defaultConnectionQuery
	}
	items, err := s.search.TestConnection(r.Context(), query, search.Languages{
		Primary: strings.TrimSpace(r.URL.Query().Get("language")),
	})
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, apiTestResponse{Query: query, Items: s.toSearchItems(items)})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	entityID, err := s.importer.Import(r.Context(), req.ID, search.Languages{
		Primary:  strings.TrimSpace(req.Language),
		Fallback: strings.TrimSpace(req.FallbackLanguage),
	})
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/entities/%d", entityID))
	s.respondJSON(w, http.StatusCreated, importResponse{EntityID: entityID})
}

func (s *Server) toSearchPage(query string, page domain.SearchPage) searchPageResponse {
	resp := searchPageResponse{
		Query:        query,
		Items:        s.toSearchItems(page.Items),
		Page:         page.Page,
		TotalPages:   page.TotalPages,
		UsedFallback: page.UsedFallback,
		ImageBaseURL: s.cfg.TMDBImageBaseURL,
	}
	if resp.Page > 1 {
		resp.HasPrev = true
		resp.PrevPage = resp.Page - 1
	}
	if resp.Page < resp.TotalPages {
		resp.HasNext = true
		resp.NextPage = resp.Page + 1
	}
	return resp
}

func (s *Server) toSearchItems(items []domain.SearchResult) []searchItemResponse {
	out := make([]searchItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, searchItemResponse{
			SearchResult: item,
			PosterURL:    tmdb.ImageURL(s.cfg.TMDBImageBaseURL, tmdb.SizeThumb, item.PosterPath),
		})
	}
	return out
}
