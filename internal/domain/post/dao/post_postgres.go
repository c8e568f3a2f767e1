package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// PostPostgres implements PostRepository for PostgreSQL
type PostPostgres struct {
	pool *pgxpool.Pool
}

// NewPostPostgres creates a new PostgreSQL post repository
func NewPostPostgres(pool *pgxpool.Pool) *PostPostgres {
	return &PostPostgres{pool: pool}
}

const postColumns = `
	id, title, content, content_telegram, content_vk, image, category, status,
	platforms, scheduled_at, ai_generated, ai_prompt_used, delivery, rejection_reason,
	created_by, created_at, updated_at, published_at`

// Create inserts a new post
func (r *PostPostgres) Create(ctx context.Context, p *entity.Post) error {
	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Title,
		p.Content,
		p.ContentTelegram,
		p.ContentVK,
		p.Image,
		p.Category,
		p.Status,
		platformsOrEmpty(p.Platforms),
		p.ScheduledAt,
		p.AIGenerated,
		p.AIPromptUsed,
		p.Delivery,
		p.RejectionReason,
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
		p.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}

	return nil
}

// GetByID retrieves a post by ID
func (r *PostPostgres) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning post: %w", err)
	}

	return p, nil
}

// Update updates the editable fields of a post
func (r *PostPostgres) Update(ctx context.Context, p *entity.Post) error {
	query := `
		UPDATE posts
		SET title = $2, content = $3, content_telegram = $4, content_vk = $5, image = $6,
		    category = $7, platforms = $8, scheduled_at = $9, ai_generated = $10,
		    ai_prompt_used = $11, updated_at = $12
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Title,
		p.Content,
		p.ContentTelegram,
		p.ContentVK,
		p.Image,
		p.Category,
		platformsOrEmpty(p.Platforms),
		p.ScheduledAt,
		p.AIGenerated,
		p.AIPromptUsed,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrPostNotFound
	}

	return nil
}

// UpdateStatus performs a compare-and-swap on the post status
func (r *PostPostgres) UpdateStatus(ctx context.Context, p *entity.Post, from entity.PostStatus) error {
	query := `
		UPDATE posts
		SET status = $3, scheduled_at = $4, published_at = $5, delivery = $6,
		    rejection_reason = $7, updated_at = $8
		WHERE id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query,
		p.ID,
		from,
		p.Status,
		p.ScheduledAt,
		p.PublishedAt,
		p.Delivery,
		p.RejectionReason,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating post status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrStatusConflict
	}

	return nil
}

// Delete removes a post and its publications
func (r *PostPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	return nil
}

// List retrieves posts with filtering
func (r *PostPostgres) List(ctx context.Context, filter PostFilter, opts ListOptions) ([]entity.Post, error) {
	where, args := buildPostWhere(filter)
	query := `SELECT ` + postColumns + ` FROM posts` + where
	argNum := len(args) + 1

	sortCol := "created_at"
	switch opts.SortBy {
	case "scheduled_at", "updated_at", "published_at":
		sortCol = opts.SortBy
	}
	order := "DESC"
	if !opts.Desc {
		order = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s NULLS LAST", sortCol, order)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, opts.Limit)
		argNum++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, opts.Offset)
	}

	return r.queryPosts(ctx, query, args...)
}

// Count returns the number of posts matching the filter
func (r *PostPostgres) Count(ctx context.Context, filter PostFilter) (int64, error) {
	where, args := buildPostWhere(filter)

	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM posts"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting posts: %w", err)
	}
	return count, nil
}

// ListDue returns scheduled posts that are due
func (r *PostPostgres) ListDue(ctx context.Context, now time.Time) ([]entity.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
	`
	return r.queryPosts(ctx, query, entity.PostStatusScheduled, now)
}

// GetStatistics aggregates posts by status
func (r *PostPostgres) GetStatistics(ctx context.Context) (*entity.PostStatistics, error) {
	stats := &entity.PostStatistics{ByStatus: make(map[entity.PostStatus]int64)}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM posts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("querying post statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status entity.PostStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning post statistics: %w", err)
		}
		stats.ByStatus[status] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post statistics: %w", err)
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM posts WHERE delivery = 'partial'),
			(SELECT COUNT(*) FROM publications),
			(SELECT COUNT(*) FROM publications WHERE status = 'failed')
	`
	if err := r.pool.QueryRow(ctx, query).Scan(&stats.PartiallySent, &stats.Publications, &stats.FailedDelivery); err != nil {
		return nil, fmt.Errorf("querying delivery statistics: %w", err)
	}

	return stats, nil
}

func (r *PostPostgres) queryPosts(ctx context.Context, query string, args ...any) ([]entity.Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var posts []entity.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posts: %w", err)
	}

	return posts, nil
}

func buildPostWhere(filter PostFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}
	if filter.Category != nil {
		where += fmt.Sprintf(" AND category = $%d", argNum)
		args = append(args, *filter.Category)
		argNum++
	}
	if filter.From != nil {
		where += fmt.Sprintf(" AND COALESCE(scheduled_at, published_at, created_at) >= $%d", argNum)
		args = append(args, *filter.From)
		argNum++
	}
	if filter.To != nil {
		where += fmt.Sprintf(" AND COALESCE(scheduled_at, published_at, created_at) < $%d", argNum)
		args = append(args, *filter.To)
	}

	return where, args
}

func scanPost(row pgx.Row) (*entity.Post, error) {
	var p entity.Post
	var scheduledAt, publishedAt *time.Time

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&p.ContentTelegram,
		&p.ContentVK,
		&p.Image,
		&p.Category,
		&p.Status,
		&p.Platforms,
		&scheduledAt,
		&p.AIGenerated,
		&p.AIPromptUsed,
		&p.Delivery,
		&p.RejectionReason,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
		&publishedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ScheduledAt = scheduledAt
	p.PublishedAt = publishedAt

	return &p, nil
}

func platformsOrEmpty(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}
