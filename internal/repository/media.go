package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

// MediaRepository stores image attachments.
type MediaRepository struct {
	pool *pgxpool.Pool
}

const mediaColumns = `id, entity_id, source_url, alt_text, local_path, is_primary, created_at`

// SetPrimary records attachment as the entity's only primary image.
func (r *MediaRepository) SetPrimary(ctx context.Context, attachment domain.MediaAttachment) (domain.MediaAttachment, error) {
	var stored domain.MediaAttachment
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE media_attachments SET is_primary = FALSE WHERE entity_id = $1 AND is_primary`, attachment.EntityID); err != nil {
			return fmt.Errorf("demote primary: %w", err)
		}
		query := fmt.Sprintf(`
            INSERT INTO media_attachments (entity_id, source_url, alt_text, local_path, is_primary)
            VALUES ($1,$2,$3,$4,TRUE)
            RETURNING %s
        `, mediaColumns)
		var err error
		stored, err = scanMedia(tx.QueryRow(ctx, query, attachment.EntityID, attachment.SourceURL, attachment.AltText, attachment.LocalPath))
		if err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.MediaAttachment{}, err
	}
	return stored, nil
}

// HasPrimary reports whether the entity has a primary image.
func (r *MediaRepository) HasPrimary(ctx context.Context, entityID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM media_attachments WHERE entity_id = $1 AND is_primary)`, entityID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check primary image: %w", err)
	}
	return exists, nil
}

// Primary returns the entity's primary image.
func (r *MediaRepository) Primary(ctx context.Context, entityID int64) (domain.MediaAttachment, error) {
	query := fmt.Sprintf(`SELECT %s FROM media_attachments WHERE entity_id = $1 AND is_primary`, mediaColumns)
	att, err := scanMedia(r.pool.QueryRow(ctx, query, entityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MediaAttachment{}, ErrNotFound
		}
		return domain.MediaAttachment{}, err
	}
	return att, nil
}

func scanMedia(row pgx.Row) (domain.MediaAttachment, error) {
	var att domain.MediaAttachment
	err := row.Scan(
		&att.ID,
		&att.EntityID,
		&att.SourceURL,
		&att.AltText,
		&att.LocalPath,
		&att.Primary,
		&att.CreatedAt,
	)
	return att, err
}
