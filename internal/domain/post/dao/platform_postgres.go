package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// PlatformPostgres implements PlatformRepository for PostgreSQL
type PlatformPostgres struct {
	pool *pgxpool.Pool
}

// NewPlatformPostgres creates a new PostgreSQL platform repository
func NewPlatformPostgres(pool *pgxpool.Pool) *PlatformPostgres {
	return &PlatformPostgres{pool: pool}
}

const platformColumns = `id, name, display_name, is_active, api_token, channel_id, created_at, updated_at`

// Create inserts a platform
func (r *PlatformPostgres) Create(ctx context.Context, p *entity.Platform) error {
	query := `
		INSERT INTO platforms (` + platformColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.DisplayName, p.IsActive, p.APIToken, p.ChannelID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting platform: %w", err)
	}
	return nil
}

// GetByID retrieves a platform by ID
func (r *PlatformPostgres) GetByID(ctx context.Context, id string) (*entity.Platform, error) {
	return r.get(ctx, "id", id)
}

// GetByName retrieves a platform by its unique name
func (r *PlatformPostgres) GetByName(ctx context.Context, name string) (*entity.Platform, error) {
	return r.get(ctx, "name", name)
}

func (r *PlatformPostgres) get(ctx context.Context, column, value string) (*entity.Platform, error) {
	query := `SELECT ` + platformColumns + ` FROM platforms WHERE ` + column + ` = $1`

	var p entity.Platform
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&p.ID, &p.Name, &p.DisplayName, &p.IsActive, &p.APIToken, &p.ChannelID, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning platform: %w", err)
	}
	return &p, nil
}

// Update updates a platform
func (r *PlatformPostgres) Update(ctx context.Context, p *entity.Platform) error {
	query := `
		UPDATE platforms
		SET display_name = $2, is_active = $3, api_token = $4, channel_id = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, p.ID, p.DisplayName, p.IsActive, p.APIToken, p.ChannelID, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating platform: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrPlatformNotFound
	}
	return nil
}

// List returns platforms ordered by name
func (r *PlatformPostgres) List(ctx context.Context, activeOnly bool) ([]entity.Platform, error) {
	query := `SELECT ` + platformColumns + ` FROM platforms`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying platforms: %w", err)
	}
	defer rows.Close()

	var platforms []entity.Platform
	for rows.Next() {
		var p entity.Platform
		if err := rows.Scan(&p.ID, &p.Name, &p.DisplayName, &p.IsActive, &p.APIToken, &p.ChannelID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning platform: %w", err)
		}
		platforms = append(platforms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating platforms: %w", err)
	}

	return platforms, nil
}
