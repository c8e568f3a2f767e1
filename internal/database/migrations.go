package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		content          TEXT NOT NULL,
		content_telegram TEXT NOT NULL DEFAULT '',
		content_vk       TEXT NOT NULL DEFAULT '',
		image            TEXT NOT NULL DEFAULT '',
		category         TEXT NOT NULL,
		status           TEXT NOT NULL,
		platforms        TEXT[] NOT NULL DEFAULT '{}',
		scheduled_at     TIMESTAMPTZ,
		ai_generated     BOOLEAN NOT NULL DEFAULT FALSE,
		ai_prompt_used   TEXT NOT NULL DEFAULT '',
		delivery         TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		created_by       TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL,
		published_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS posts_status_scheduled_idx ON posts (status, scheduled_at)`,
	`CREATE TABLE IF NOT EXISTS platforms (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		is_active    BOOLEAN NOT NULL DEFAULT TRUE,
		api_token    TEXT NOT NULL DEFAULT '',
		channel_id   TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS publications (
		id            TEXT PRIMARY KEY,
		post_id       TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		platform      TEXT NOT NULL,
		status        TEXT NOT NULL,
		external_id   TEXT NOT NULL DEFAULT '',
		external_url  TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		published_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS publications_post_idx ON publications (post_id)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		pool_type    TEXT NOT NULL,
		size         TEXT NOT NULL DEFAULT '',
		features     TEXT NOT NULL DEFAULT '',
		location     TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		images       TEXT[] NOT NULL DEFAULT '{}',
		main_image   TEXT NOT NULL DEFAULT '',
		source_url   TEXT NOT NULL DEFAULT '',
		is_published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_slots (
		id                 TEXT PRIMARY KEY,
		day_of_week        SMALLINT NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
		time_of_day        TEXT NOT NULL,
		is_active          BOOLEAN NOT NULL DEFAULT TRUE,
		platforms          TEXT[] NOT NULL DEFAULT '{}',
		preferred_category TEXT NOT NULL DEFAULT '',
		UNIQUE (day_of_week, time_of_day)
	)`,
}

// Migrate creates the schema if it does not exist yet
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement %d: %w", i, err)
		}
	}
	return nil
}
