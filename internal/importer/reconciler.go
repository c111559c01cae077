package importer

import (
	"cmp"
	"context"
	"slices"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/tmdb"
)

// CastLimit is the number of billed cast members imported per movie.
const CastLimit = 10

// DirectorJob is the crew job imported as a director relation.
const DirectorJob = "Director"

// Options configures a Reconciler.
type Options struct {
	// ImageBaseURL is the provider image CDN root, without a size segment.
	ImageBaseURL string
	Logger       zerolog.Logger
}

// Reconciler writes a DetailRecord into local storage, creating or updating
// exactly one ContentEntity per external id.
type Reconciler struct {
	store     Store
	images    ImageAttacher
	resolver  *Resolver
	imageBase string
	logger    zerolog.Logger
}

// NewReconciler wires a Reconciler. images may be nil, in which case posters
// are never downloaded but the poster path is still recorded.
func NewReconciler(store Store, images ImageAttacher, opts Options) *Reconciler {
	return &Reconciler{
		store:     store,
		images:    images,
		resolver:  NewResolver(store, opts.Logger),
		imageBase: opts.ImageBaseURL,
		logger:    opts.Logger,
	}
}

// Resolver exposes the term resolver used for relations.
func (r *Reconciler) Resolver() *Resolver {
	return r.resolver
}

// ImportDetail creates or updates the entity for record and returns its id.
func (r *Reconciler) ImportDetail(ctx context.Context, record domain.DetailRecord) (int64, error) {
	if record.ExternalID <= 0 {
		return 0, domain.InvalidRecordFailure("external id must be positive")
	}

	existing, err := r.store.FindEntityByExternalID(ctx, record.ExternalID)
	if err != nil {
		return 0, domain.PersistenceFailure("find entity", err)
	}

	entity := domain.ContentEntity{
		Title:  record.Title,
		Body:   record.Overview,
		Status: domain.StatusPublished,
	}
	var previousPoster string
	if existing != nil {
		entity.ID = existing.ID
		if existing.Status != "" {
			entity.Status = existing.Status
		}
		previousPoster = existing.Fields[domain.FieldPosterPath]
	}

	entityID, err := r.store.UpsertEntity(ctx, entity)
	if err != nil {
		return 0, domain.PersistenceFailure("upsert entity", err)
	}

	for _, f := range scalarFields(record) {
		if err := r.store.SetEntityField(ctx, entityID, f.key, f.value); err != nil {
			return 0, domain.PersistenceFailure("set field "+f.key, err)
		}
	}

	r.syncPoster(ctx, entityID, record, previousPoster, existing != nil)
	if err := r.store.SetEntityField(ctx, entityID, domain.FieldPosterPath, record.PosterPath); err != nil {
		return 0, domain.PersistenceFailure("set field "+domain.FieldPosterPath, err)
	}

	actorIDs, cast := r.reconcileCast(ctx, record.Cast)
	directorIDs, directors := r.reconcileDirectors(ctx, record.Crew)
	genreIDs, genres := r.reconcileGenres(ctx, record.Genres)

	relations := []struct {
		category domain.Category
		ids      []int64
	}{
		{domain.CategoryActor, actorIDs},
		{domain.CategoryDirector, directorIDs},
		{domain.CategoryGenre, genreIDs},
	}
	for _, rel := range relations {
		if err := r.store.SetEntityRelations(ctx, entityID, rel.category, rel.ids); err != nil {
			return 0, domain.PersistenceFailure("set "+string(rel.category)+" relations", err)
		}
	}

	snapshots := []struct {
		key   string
		value any
	}{
		{domain.FieldCastDetail, cast},
		{domain.FieldDirectorDetail, directors},
		{domain.FieldGenreDetail, genres},
	}
	for _, s := range snapshots {
		payload, err := json.Marshal(s.value)
		if err != nil {
			return 0, domain.PersistenceFailure("encode "+s.key, err)
		}
		if err := r.store.SetEntityField(ctx, entityID, s.key, string(payload)); err != nil {
			return 0, domain.PersistenceFailure("set field "+s.key, err)
		}
	}

	r.logger.Info().
		Int64("entity_id", entityID).
		Int64("external_id", record.ExternalID).
		Bool("updated", existing != nil).
		Int("actors", len(actorIDs)).
		Int("directors", len(directorIDs)).
		Int("genres", len(genreIDs)).
		Msg("importer: record reconciled")

	return entityID, nil
}

type field struct {
	key   string
	value string
}

func scalarFields(record domain.DetailRecord) []field {
	rating := ""
	if record.VoteAverage != nil {
		rating = strconv.FormatFloat(*record.VoteAverage, 'f', -1, 64)
	}
	return []field{
		{domain.FieldExternalID, strconv.FormatInt(record.ExternalID, 10)},
		{domain.FieldLanguage, record.Language},
		{domain.FieldOriginalTitle, record.OriginalTitle},
		{domain.FieldTagline, record.Tagline},
		{domain.FieldReleaseDate, record.ReleaseDate},
		{domain.FieldRuntime, strconv.Itoa(record.Runtime)},
		{domain.FieldRating, rating},
		{domain.FieldVoteCount, strconv.Itoa(record.VoteCount)},
		{domain.FieldHomepage, record.Homepage},
		{domain.FieldStatus, record.Status},
	}
}

// syncPoster downloads the poster when its path changed or no primary image
// is attached yet. Failures are logged and never abort the import.
func (r *Reconciler) syncPoster(ctx context.Context, entityID int64, record domain.DetailRecord, previousPoster string, existed bool) {
	if record.PosterPath == "" || r.images == nil {
		return
	}
	if existed && record.PosterPath == previousPoster {
		attached, err := r.store.HasPrimaryImage(ctx, entityID)
		if err != nil {
			r.logger.Warn().Err(err).Int64("entity_id", entityID).Msg("importer: primary image lookup failed")
		}
		if err == nil && attached {
			return
		}
	}

	source := tmdb.ImageURL(r.imageBase, tmdb.SizeOriginal, record.PosterPath)
	ok, err := r.images.AttachPrimaryImage(ctx, entityID, source, record.Title)
	if err != nil || !ok {
		r.logger.Warn().
			Err(err).
			Int64("entity_id", entityID).
			Str("source", source).
			Msg("importer: poster not attached")
	}
}

func (r *Reconciler) reconcileCast(ctx context.Context, members []domain.CastMember) ([]int64, []domain.CastSnapshot) {
	sorted := slices.Clone(members)
	slices.SortStableFunc(sorted, func(a, b domain.CastMember) int {
		return cmp.Compare(a.Order, b.Order)
	})
	if len(sorted) > CastLimit {
		sorted = sorted[:CastLimit]
	}

	ids := make([]int64, 0, len(sorted))
	snapshots := make([]domain.CastSnapshot, 0, len(sorted))
	for _, m := range sorted {
		id := r.resolver.ResolveOrCreate(ctx, domain.CategoryActor, m.ID, m.Name)
		if id == 0 || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
		snapshots = append(snapshots, domain.CastSnapshot{EntityID: id, Name: m.Name, Character: m.Character, Order: m.Order})
	}
	return ids, snapshots
}

func (r *Reconciler) reconcileDirectors(ctx context.Context, crew []domain.CrewMember) ([]int64, []domain.DirectorSnapshot) {
	ids := make([]int64, 0, 2)
	snapshots := make([]domain.DirectorSnapshot, 0, 2)
	for _, m := range crew {
		if m.Job != DirectorJob {
			continue
		}
		id := r.resolver.ResolveOrCreate(ctx, domain.CategoryDirector, m.ID, m.Name)
		if id == 0 || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
		snapshots = append(snapshots, domain.DirectorSnapshot{EntityID: id, Name: m.Name, Job: m.Job})
	}
	return ids, snapshots
}

func (r *Reconciler) reconcileGenres(ctx context.Context, genres []domain.Genre) ([]int64, []domain.GenreSnapshot) {
	ids := make([]int64, 0, len(genres))
	snapshots := make([]domain.GenreSnapshot, 0, len(genres))
	for _, g := range genres {
		id := r.resolver.ResolveOrCreate(ctx, domain.CategoryGenre, g.ID, g.Name)
		if id == 0 || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
		snapshots = append(snapshots, domain.GenreSnapshot{EntityID: id, Name: g.Name})
	}
	return ids, snapshots
}
