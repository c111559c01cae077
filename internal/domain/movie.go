package domain

// SearchResult is one normalized row of a provider search.
type SearchResult struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	OriginalTitle    string   `json:"originalTitle,omitempty"`
	Overview         string   `json:"overview,omitempty"`
	ReleaseDate      string   `json:"releaseDate,omitempty"`
	OriginalLanguage string   `json:"originalLanguage,omitempty"`
	PosterPath       string   `json:"posterPath,omitempty"`
	VoteAverage      *float64 `json:"voteAverage"`
	VoteCount        int      `json:"voteCount"`
	MediaType        string   `json:"mediaType,omitempty"`
}

// SearchPage is a single page of formatted search results.
type SearchPage struct {
	Items        []SearchResult `json:"items"`
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	UsedFallback bool           `json:"usedFallback"`
}

// CastMember is a credited performer in billing order.
type CastMember struct {
	ID        int64
	Name      string
	Character string
	Order     int
}

// CrewMember is a credited crew member; only directors are imported.
type CrewMember struct {
	ID         int64
	Name       string
	Job        string
	Department string
}

// Genre is a named provider category.
type Genre struct {
	ID   int64
	Name string
}

// DetailRecord mirrors the provider's full movie payload after validation.
type DetailRecord struct {
	ExternalID    int64
	Language      string
	Title         string
	OriginalTitle string
	Overview      string
	Tagline       string
	ReleaseDate   string
	Runtime       int
	Status        string
	VoteAverage   *float64
	VoteCount     int
	Homepage      string
	PosterPath    string
	Cast          []CastMember
	Crew          []CrewMember
	Genres        []Genre
}
