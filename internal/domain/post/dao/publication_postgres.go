package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// PublicationPostgres implements PublicationRepository for PostgreSQL
type PublicationPostgres struct {
	pool *pgxpool.Pool
}

// NewPublicationPostgres creates a new PostgreSQL publication repository
func NewPublicationPostgres(pool *pgxpool.Pool) *PublicationPostgres {
	return &PublicationPostgres{pool: pool}
}

// Create appends a delivery record
func (r *PublicationPostgres) Create(ctx context.Context, pub *entity.Publication) error {
	query := `
		INSERT INTO publications (id, post_id, platform, status, external_id, external_url, error_message, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		pub.ID,
		pub.PostID,
		pub.Platform,
		pub.Status,
		pub.ExternalID,
		pub.ExternalURL,
		pub.ErrorMessage,
		pub.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting publication: %w", err)
	}

	return nil
}

// ListByPost returns the delivery log of a post, newest first
func (r *PublicationPostgres) ListByPost(ctx context.Context, postID string) ([]entity.Publication, error) {
	query := `
		SELECT id, post_id, platform, status, external_id, external_url, error_message, published_at
		FROM publications
		WHERE post_id = $1
		ORDER BY published_at DESC
	`
	return r.query(ctx, query, postID)
}

// ListRecent returns the latest delivery records
func (r *PublicationPostgres) ListRecent(ctx context.Context, limit int) ([]entity.Publication, error) {
	query := `
		SELECT id, post_id, platform, status, external_id, external_url, error_message, published_at
		FROM publications
		ORDER BY published_at DESC
		LIMIT $1
	`
	return r.query(ctx, query, limit)
}

// DeleteOlderThan removes old delivery records
func (r *PublicationPostgres) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM publications WHERE published_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old publications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PublicationPostgres) query(ctx context.Context, query string, args ...any) ([]entity.Publication, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying publications: %w", err)
	}
	defer rows.Close()

	var pubs []entity.Publication
	for rows.Next() {
		var pub entity.Publication
		err := rows.Scan(
			&pub.ID,
			&pub.PostID,
			&pub.Platform,
			&pub.Status,
			&pub.ExternalID,
			&pub.ExternalURL,
			&pub.ErrorMessage,
			&pub.PublishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning publication: %w", err)
		}
		pubs = append(pubs, pub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating publications: %w", err)
	}

	return pubs, nil
}
