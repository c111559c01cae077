package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/repository"
	"github.com/Clark-Hu/movie-importer/internal/tmdb"
)

type entityListResponse struct {
	Items      []entityResponse `json:"items"`
	NextCursor *string          `json:"nextCursor,omitempty"`
}

type entityResponse struct {
	ID         int64             `json:"id"`
	ExternalID int64             `json:"externalId"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Status     string            `json:"status"`
	PosterURL  string            `json:"posterUrl,omitempty"`
	Fields     map[string]string `json:"fields"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

type relatedResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ExternalID int64  `json:"externalId,omitempty"`
}

type mediaResponse struct {
	SourceURL string `json:"sourceUrl"`
	AltText   string `json:"altText"`
	LocalPath string `json:"localPath"`
}

type creditsResponse struct {
	Cast      []domain.CastSnapshot     `json:"cast"`
	Directors []domain.DirectorSnapshot `json:"directors"`
	Genres    []domain.GenreSnapshot    `json:"genres"`
}

type entityDetailResponse struct {
	entityResponse
	Relations    map[domain.Category][]relatedResponse `json:"relations"`
	Credits      creditsResponse                      `json:"credits"`
	PrimaryImage *mediaResponse                       `json:"primaryImage,omitempty"`
}

// snapshotFields hold display JSON and are rendered under credits instead.
var snapshotFields = []string{domain.FieldCastDetail, domain.FieldDirectorDetail, domain.FieldGenreDetail}

func buildEntityFilters(query url.Values) (repository.EntityListFilters, error) {
	var filters repository.EntityListFilters

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("status")); val != "" {
		filters.Status = &val
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	filters, err := buildEntityFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Entities.List(r.Context(), filters)
	if err != nil {
		s.logger.Error().Err(err).Msg("http: list entities")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list entities")
		return
	}

	items := make([]entityResponse, 0, len(result.Items))
	for _, entity := range result.Items {
		items = append(items, s.toEntityResponse(entity))
	}
	s.respondJSON(w, http.StatusOK, entityListResponse{Items: items, NextCursor: result.NextCursor})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id parameter")
		return
	}

	ctx := r.Context()
	entity, err := s.repo.Entities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Error().Err(err).Int64("entity_id", id).Msg("http: get entity")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch entity")
		return
	}

	relations, err := s.repo.Related.Relations(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("entity_id", id).Msg("http: load relations")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch entity")
		return
	}

	resp := entityDetailResponse{
		entityResponse: s.toEntityResponse(entity),
		Relations:      make(map[domain.Category][]relatedResponse, len(domain.Categories)),
		Credits:        decodeCredits(entity.Fields),
	}
	for _, category := range domain.Categories {
		list := make([]relatedResponse, 0, len(relations[category]))
		for _, rel := range relations[category] {
			list = append(list, relatedResponse{ID: rel.ID, Name: rel.Name, ExternalID: rel.ExternalID})
		}
		resp.Relations[category] = list
	}

	primary, err := s.repo.Media.Primary(ctx, id)
	switch {
	case err == nil:
		resp.PrimaryImage = &mediaResponse{SourceURL: primary.SourceURL, AltText: primary.AltText, LocalPath: primary.LocalPath}
	case !errors.Is(err, repository.ErrNotFound):
		s.logger.Warn().Err(err).Int64("entity_id", id).Msg("http: load primary image")
	}

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) toEntityResponse(entity domain.ContentEntity) entityResponse {
	fields := make(map[string]string, len(entity.Fields))
	for k, v := range entity.Fields {
		fields[k] = v
	}
	for _, key := range snapshotFields {
		delete(fields, key)
	}
	var externalID int64
	if raw := fields[domain.FieldExternalID]; raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			externalID = id
		} else {
			s.logger.Warn().Int64("entity_id", entity.ID).Str("external_id", raw).Msg("http: malformed external id field")
		}
	}
	return entityResponse{
		ID:         entity.ID,
		ExternalID: externalID,
		Title:      entity.Title,
		Body:       entity.Body,
		Status:     entity.Status,
		PosterURL:  tmdb.ImageURL(s.cfg.TMDBImageBaseURL, tmdb.SizePoster, fields[domain.FieldPosterPath]),
		Fields:     fields,
		CreatedAt:  entity.CreatedAt,
		UpdatedAt:  entity.UpdatedAt,
	}
}

// decodeCredits reads the stored snapshot lists; malformed values yield empty lists.
func decodeCredits(fields map[string]string) creditsResponse {
	credits := creditsResponse{
		Cast:      []domain.CastSnapshot{},
		Directors: []domain.DirectorSnapshot{},
		Genres:    []domain.GenreSnapshot{},
	}
	if raw := fields[domain.FieldCastDetail]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &credits.Cast)
	}
	if raw := fields[domain.FieldDirectorDetail]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &credits.Directors)
	}
	if raw := fields[domain.FieldGenreDetail]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &credits.Genres)
	}
	return credits
}
