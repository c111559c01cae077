package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-importer/internal/store"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict indicates a unique constraint rejected the write.
var ErrConflict = errors.New("repository: conflict")

// Repository aggregates the per-table repositories.
type Repository struct {
	Entities *EntitiesRepository
	Related  *RelatedRepository
	Media    *MediaRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool builds repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Entities: &EntitiesRepository{pool: pool},
		Related:  &RelatedRepository{pool: pool},
		Media:    &MediaRepository{pool: pool},
	}
}

// uniqueViolation maps Postgres unique_violation to ErrConflict.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errors.Join(ErrConflict, err)
	}
	return err
}
