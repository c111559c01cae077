package tmdb

import (
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

type searchEnvelope struct {
	Page         int               `json:"page"`
	TotalPages   int               `json:"total_pages"`
	TotalResults int               `json:"total_results"`
	Results      []json.RawMessage `json:"results"`
}

// detailPayload is the provider's movie payload. Every field is optional
// upstream, so pointers distinguish "absent/null" from zero values.
type detailPayload struct {
	ID            *int64          `json:"id"`
	Title         *string         `json:"title"`
	OriginalTitle *string         `json:"original_title"`
	Overview      *string         `json:"overview"`
	Tagline       *string         `json:"tagline"`
	ReleaseDate   *string         `json:"release_date"`
	Runtime       *int            `json:"runtime"`
	Status        *string         `json:"status"`
	VoteAverage   *float64        `json:"vote_average"`
	VoteCount     *int            `json:"vote_count"`
	Homepage      *string         `json:"homepage"`
	PosterPath    *string         `json:"poster_path"`
	Genres        []genrePayload  `json:"genres"`
	Credits       *creditsPayload `json:"credits"`
}

type genrePayload struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
}

type creditsPayload struct {
	Cast []castPayload `json:"cast"`
	Crew []crewPayload `json:"crew"`
}

type castPayload struct {
	ID        *int64  `json:"id"`
	Name      *string `json:"name"`
	Character *string `json:"character"`
	Order     *int    `json:"order"`
}

type crewPayload struct {
	ID         *int64  `json:"id"`
	Name       *string `json:"name"`
	Job        *string `json:"job"`
	Department *string `json:"department"`
}

func (p detailPayload) normalize() domain.DetailRecord {
	record := domain.DetailRecord{
		ExternalID:    derefInt64(p.ID),
		Title:         derefString(p.Title),
		OriginalTitle: derefString(p.OriginalTitle),
		Overview:      derefString(p.Overview),
		Tagline:       derefString(p.Tagline),
		ReleaseDate:   derefString(p.ReleaseDate),
		Runtime:       derefInt(p.Runtime),
		Status:        derefString(p.Status),
		VoteAverage:   p.VoteAverage,
		VoteCount:     derefInt(p.VoteCount),
		Homepage:      derefString(p.Homepage),
		PosterPath:    strings.TrimLeft(derefString(p.PosterPath), "/"),
	}
	if record.VoteCount < 0 {
		record.VoteCount = 0
	}

	for _, g := range p.Genres {
		record.Genres = append(record.Genres, domain.Genre{
			ID:   derefInt64(g.ID),
			Name: derefString(g.Name),
		})
	}
	if p.Credits == nil {
		return record
	}
	for _, c := range p.Credits.Cast {
		record.Cast = append(record.Cast, domain.CastMember{
			ID:        derefInt64(c.ID),
			Name:      derefString(c.Name),
			Character: derefString(c.Character),
			Order:     derefInt(c.Order),
		})
	}
	for _, c := range p.Credits.Crew {
		record.Crew = append(record.Crew, domain.CrewMember{
			ID:         derefInt64(c.ID),
			Name:       derefString(c.Name),
			Job:        derefString(c.Job),
			Department: derefString(c.Department),
		})
	}
	return record
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func derefInt(ptr *int) int {
	if ptr == nil {
		return 0
	}
	return *ptr
}

func derefInt64(ptr *int64) int64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}
