package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// ProjectPostgres implements ProjectRepository for PostgreSQL
type ProjectPostgres struct {
	pool *pgxpool.Pool
}

// NewProjectPostgres creates a new PostgreSQL project repository
func NewProjectPostgres(pool *pgxpool.Pool) *ProjectPostgres {
	return &ProjectPostgres{pool: pool}
}

const projectColumns = `
	id, title, pool_type, size, features, location, description, images,
	main_image, source_url, is_published, created_at, updated_at`

// Create inserts a project
func (r *ProjectPostgres) Create(ctx context.Context, p *entity.ProjectData) error {
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	images := p.Images
	if images == nil {
		images = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Title, p.PoolType, p.Size, p.Features, p.Location, p.Description, images,
		p.MainImage, p.SourceURL, p.IsPublished, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectPostgres) GetByID(ctx context.Context, id string) (*entity.ProjectData, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	return p, nil
}

// List returns projects, newest first
func (r *ProjectPostgres) List(ctx context.Context, onlyUnpublished bool, opts ListOptions) ([]entity.ProjectData, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if onlyUnpublished {
		query += ` WHERE NOT is_published`
	}
	query += ` ORDER BY created_at DESC`

	args := []any{}
	if opts.Limit > 0 {
		query += ` LIMIT $1`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET $2`
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []entity.ProjectData
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}

	return projects, nil
}

// MarkPublished flips is_published once
func (r *ProjectPostgres) MarkPublished(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET is_published = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_published`, id)
	if err != nil {
		return false, fmt.Errorf("marking project published: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanProject(row pgx.Row) (*entity.ProjectData, error) {
	var p entity.ProjectData
	err := row.Scan(
		&p.ID, &p.Title, &p.PoolType, &p.Size, &p.Features, &p.Location, &p.Description, &p.Images,
		&p.MainImage, &p.SourceURL, &p.IsPublished, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
