package domain

import (
	"fmt"
	"time"
)

// Category names one of the relation sets a ContentEntity carries.
type Category string

const (
	CategoryActor    Category = "actor"
	CategoryDirector Category = "director"
	CategoryGenre    Category = "genre"
)

// Categories lists every relation category in import order.
var Categories = []Category{CategoryActor, CategoryDirector, CategoryGenre}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryActor, CategoryDirector, CategoryGenre:
		return true
	}
	return false
}

// ParseCategory converts a raw string into a Category.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// Named scalar fields stored on a ContentEntity.
const (
	FieldExternalID     = "external_id"
	FieldLanguage       = "language"
	FieldOriginalTitle  = "original_title"
	FieldTagline        = "tagline"
	FieldReleaseDate    = "release_date"
	FieldRuntime        = "runtime"
	FieldRating         = "rating"
	FieldVoteCount      = "vote_count"
	FieldHomepage       = "homepage"
	FieldStatus         = "status"
	FieldPosterPath     = "poster_path"
	FieldCastDetail     = "cast_detail"
	FieldDirectorDetail = "director_detail"
	FieldGenreDetail    = "genre_detail"
)

// RelatedFieldExternalID is the related-entity field holding the provider id.
const RelatedFieldExternalID = "external_id"

// Entity lifecycle states.
const (
	StatusPublished = "publish"
	StatusDraft     = "draft"
)

// ContentEntity is the locally persisted movie record.
type ContentEntity struct {
	ID        int64
	Title     string
	Body      string
	Status    string
	Fields    map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RelatedEntity is a persisted actor, director or genre.
type RelatedEntity struct {
	ID         int64
	Category   Category
	Name       string
	ExternalID int64
}

// MediaAttachment is an image attached to a ContentEntity.
type MediaAttachment struct {
	ID        int64
	EntityID  int64
	SourceURL string
	AltText   string
	LocalPath string
	Primary   bool
	CreatedAt time.Time
}

// CastSnapshot is the display copy of one imported cast credit.
type CastSnapshot struct {
	EntityID  int64  `json:"entityId"`
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// DirectorSnapshot is the display copy of one imported director credit.
type DirectorSnapshot struct {
	EntityID int64  `json:"entityId"`
	Name     string `json:"name"`
	Job      string `json:"job"`
}

// GenreSnapshot is the display copy of one imported genre.
type GenreSnapshot struct {
	EntityID int64  `json:"entityId"`
	Name     string `json:"name"`
}
