package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

// EntitiesRepository persists ContentEntities and their named fields.
type EntitiesRepository struct {
	pool *pgxpool.Pool
}

const entityColumns = `
    e.id,
    e.title,
    e.body,
    e.status,
    e.created_at,
    e.updated_at
`

// EntityListFilters encapsulates search and pagination options.
type EntityListFilters struct {
	Query  *string
	Status *string
	Cursor *EntityCursor
	Limit  int
}

// EntityCursor is the keyset position of the last row of a page.
type EntityCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        int64     `json:"id"`
}

// EntityListResult returns one page of entities.
type EntityListResult struct {
	Items      []domain.ContentEntity
	NextCursor *string
}

// Upsert inserts the entity when ID is zero and otherwise updates title, body
// and status in place.
func (r *EntitiesRepository) Upsert(ctx context.Context, entity domain.ContentEntity) (int64, error) {
	status := entity.Status
	if status == "" {
		status = domain.StatusPublished
	}

	var id int64
	if entity.ID == 0 {
		const query = `
            INSERT INTO content_entities (title, body, status)
            VALUES ($1,$2,$3)
            RETURNING id
        `
		if err := r.pool.QueryRow(ctx, query, entity.Title, entity.Body, status).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert entity: %w", err)
		}
		return id, nil
	}

	const query = `
        UPDATE content_entities
        SET title = $2, body = $3, status = $4, updated_at = now()
        WHERE id = $1
        RETURNING id
    `
	if err := r.pool.QueryRow(ctx, query, entity.ID, entity.Title, entity.Body, status).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("update entity: %w", err)
	}
	return id, nil
}

// SetField writes one named field, replacing any previous value.
func (r *EntitiesRepository) SetField(ctx context.Context, entityID int64, key, value string) error {
	const query = `
        INSERT INTO entity_fields (entity_id, key, value)
        VALUES ($1,$2,$3)
        ON CONFLICT (entity_id, key)
        DO UPDATE SET value = EXCLUDED.value
    `
	if _, err := r.pool.Exec(ctx, query, entityID, key, value); err != nil {
		return fmt.Errorf("set entity field %s: %w", key, uniqueViolation(err))
	}
	return nil
}

// Fields loads every named field of an entity.
func (r *EntitiesRepository) Fields(ctx context.Context, entityID int64) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM entity_fields WHERE entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		fields[key] = value
	}
	return fields, rows.Err()
}

// GetByID fetches an entity with its fields.
func (r *EntitiesRepository) GetByID(ctx context.Context, id int64) (domain.ContentEntity, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_entities e WHERE e.id = $1`, entityColumns)
	return r.getOne(ctx, query, id)
}

// FindByExternalID returns the entity stamped with the given provider id in
// any lifecycle state.
func (r *EntitiesRepository) FindByExternalID(ctx context.Context, externalID int64) (domain.ContentEntity, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM content_entities e
        JOIN entity_fields f ON f.entity_id = e.id AND f.key = '%s'
        WHERE f.value = $1
        ORDER BY e.id
        LIMIT 1
    `, entityColumns, domain.FieldExternalID)
	return r.getOne(ctx, query, strconv.FormatInt(externalID, 10))
}

func (r *EntitiesRepository) getOne(ctx context.Context, query string, args ...any) (domain.ContentEntity, error) {
	entity, err := scanEntity(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ContentEntity{}, ErrNotFound
		}
		return domain.ContentEntity{}, err
	}
	fields, err := r.Fields(ctx, entity.ID)
	if err != nil {
		return domain.ContentEntity{}, fmt.Errorf("load fields: %w", err)
	}
	entity.Fields = fields
	return entity, nil
}

// List returns entities newest first, keyset-paginated by (created_at, id).
func (r *EntitiesRepository) List(ctx context.Context, filters EntityListFilters) (EntityListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	where := make([]string, 0)
	args := make([]any, 0)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		where = append(where, fmt.Sprintf("e.title ILIKE %s", arg("%"+strings.TrimSpace(*filters.Query)+"%")))
	}
	if filters.Status != nil && strings.TrimSpace(*filters.Status) != "" {
		where = append(where, fmt.Sprintf("e.status = %s", arg(strings.TrimSpace(*filters.Status))))
	}
	if filters.Cursor != nil {
		cursorCreated := arg(filters.Cursor.CreatedAt)
		cursorID := arg(filters.Cursor.ID)
		where = append(where, fmt.Sprintf("(e.created_at, e.id) < (%s, %s)", cursorCreated, cursorID))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(entityColumns)
	queryBuilder.WriteString(" FROM content_entities e")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY e.created_at DESC, e.id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return EntityListResult{}, err
	}
	items := make([]domain.ContentEntity, 0)
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			rows.Close()
			return EntityListResult{}, err
		}
		items = append(items, entity)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return EntityListResult{}, err
	}

	for i := range items {
		fields, err := r.Fields(ctx, items[i].ID)
		if err != nil {
			return EntityListResult{}, fmt.Errorf("load fields: %w", err)
		}
		items[i].Fields = fields
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		token, err := encodeCursor(EntityCursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return EntityListResult{}, err
		}
		nextCursor = &token
	}

	return EntityListResult{Items: items, NextCursor: nextCursor}, nil
}

func scanEntity(row pgx.Row) (domain.ContentEntity, error) {
	var entity domain.ContentEntity
	err := row.Scan(
		&entity.ID,
		&entity.Title,
		&entity.Body,
		&entity.Status,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return domain.ContentEntity{}, err
	}
	return entity, nil
}

func encodeCursor(c EntityCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into an EntityCursor.
func DecodeCursor(token string) (*EntityCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor EntityCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	if cursor.ID <= 0 {
		return nil, fmt.Errorf("invalid cursor payload: missing id")
	}
	return &cursor, nil
}
