package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

// RelatedRepository persists actors, directors and genres and the relation
// sets linking them to entities.
type RelatedRepository struct {
	pool *pgxpool.Pool
}

// FindByExternalID returns the related entity of category stamped with externalID.
func (r *RelatedRepository) FindByExternalID(ctx context.Context, category domain.Category, externalID int64) (domain.RelatedEntity, error) {
	const query = `
        SELECT r.id, r.category, r.name, f.value
        FROM related_entities r
        JOIN related_fields f ON f.related_id = r.id AND f.key = $3
        WHERE r.category = $1 AND f.value = $2
        ORDER BY r.id
        LIMIT 1
    `
	return scanRelated(r.pool.QueryRow(ctx, query, string(category), strconv.FormatInt(externalID, 10), domain.RelatedFieldExternalID))
}

// FindByName returns the oldest related entity of category with exactly name.
func (r *RelatedRepository) FindByName(ctx context.Context, category domain.Category, name string) (domain.RelatedEntity, error) {
	const query = `
        SELECT r.id, r.category, r.name, COALESCE(f.value, '')
        FROM related_entities r
        LEFT JOIN related_fields f ON f.related_id = r.id AND f.key = $3
        WHERE r.category = $1 AND r.name = $2
        ORDER BY r.id
        LIMIT 1
    `
	return scanRelated(r.pool.QueryRow(ctx, query, string(category), name, domain.RelatedFieldExternalID))
}

// Upsert inserts when ID is zero and otherwise overwrites the display name.
func (r *RelatedRepository) Upsert(ctx context.Context, related domain.RelatedEntity) (int64, error) {
	if !related.Category.Valid() {
		return 0, fmt.Errorf("upsert related: invalid category %q", related.Category)
	}

	var id int64
	if related.ID == 0 {
		const query = `
            INSERT INTO related_entities (category, name)
            VALUES ($1,$2)
            RETURNING id
        `
		if err := r.pool.QueryRow(ctx, query, string(related.Category), related.Name).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert related: %w", err)
		}
		return id, nil
	}

	const query = `
        UPDATE related_entities
        SET name = $2, updated_at = now()
        WHERE id = $1
        RETURNING id
    `
	if err := r.pool.QueryRow(ctx, query, related.ID, related.Name).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("rename related: %w", err)
	}
	return id, nil
}

// SetField writes one named field on a related entity.
func (r *RelatedRepository) SetField(ctx context.Context, relatedID int64, key, value string) error {
	const query = `
        INSERT INTO related_fields (related_id, key, value)
        VALUES ($1,$2,$3)
        ON CONFLICT (related_id, key)
        DO UPDATE SET value = EXCLUDED.value
    `
	if _, err := r.pool.Exec(ctx, query, relatedID, key, value); err != nil {
		return fmt.Errorf("set related field %s: %w", key, err)
	}
	return nil
}

// SetRelations replaces the entity's relation set for category with ids, in order.
func (r *RelatedRepository) SetRelations(ctx context.Context, entityID int64, category domain.Category, ids []int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM entity_relations WHERE entity_id = $1 AND category = $2`, entityID, string(category)); err != nil {
			return fmt.Errorf("clear %s relations: %w", category, err)
		}
		if len(ids) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for pos, id := range ids {
			batch.Queue(`
                INSERT INTO entity_relations (entity_id, category, related_id, position)
                VALUES ($1,$2,$3,$4)
                ON CONFLICT DO NOTHING
            `, entityID, string(category), id, pos)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert %s relations: %w", category, err)
		}
		return nil
	})
}

// Relations returns the entity's related records grouped by category, in stored order.
func (r *RelatedRepository) Relations(ctx context.Context, entityID int64) (map[domain.Category][]domain.RelatedEntity, error) {
	const query = `
        SELECT r.id, r.category, r.name, COALESCE(f.value, '')
        FROM entity_relations er
        JOIN related_entities r ON r.id = er.related_id
        LEFT JOIN related_fields f ON f.related_id = r.id AND f.key = $2
        WHERE er.entity_id = $1
        ORDER BY er.category, er.position
    `
	rows, err := r.pool.Query(ctx, query, entityID, domain.RelatedFieldExternalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Category][]domain.RelatedEntity)
	for rows.Next() {
		related, err := scanRelated(rows)
		if err != nil {
			return nil, err
		}
		out[related.Category] = append(out[related.Category], related)
	}
	return out, rows.Err()
}

func scanRelated(row pgx.Row) (domain.RelatedEntity, error) {
	var (
		related    domain.RelatedEntity
		category   string
		externalID string
	)
	if err := row.Scan(&related.ID, &category, &related.Name, &externalID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RelatedEntity{}, ErrNotFound
		}
		return domain.RelatedEntity{}, err
	}
	related.Category = domain.Category(category)
	if externalID != "" {
		id, err := strconv.ParseInt(externalID, 10, 64)
		if err != nil {
			return domain.RelatedEntity{}, fmt.Errorf("related %d: bad external id %q", related.ID, externalID)
		}
		related.ExternalID = id
	}
	return related, nil
}
