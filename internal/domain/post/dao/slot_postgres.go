package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// SlotPostgres implements SlotRepository for PostgreSQL
type SlotPostgres struct {
	pool *pgxpool.Pool
}

// NewSlotPostgres creates a new PostgreSQL schedule slot repository
func NewSlotPostgres(pool *pgxpool.Pool) *SlotPostgres {
	return &SlotPostgres{pool: pool}
}

// Create inserts a schedule slot
func (r *SlotPostgres) Create(ctx context.Context, s *entity.ScheduleSlot) error {
	query := `
		INSERT INTO schedule_slots (id, day_of_week, time_of_day, is_active, platforms, preferred_category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (day_of_week, time_of_day) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		s.ID, s.DayOfWeek, s.TimeOfDay, s.IsActive, platformsOrEmpty(s.Platforms), s.PreferredCategory,
	)
	if err != nil {
		return fmt.Errorf("inserting schedule slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrSlotExists
	}
	return nil
}

// GetByID retrieves a slot by ID
func (r *SlotPostgres) GetByID(ctx context.Context, id string) (*entity.ScheduleSlot, error) {
	query := `
		SELECT id, day_of_week, time_of_day, is_active, platforms, preferred_category
		FROM schedule_slots WHERE id = $1
	`

	var s entity.ScheduleSlot
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.DayOfWeek, &s.TimeOfDay, &s.IsActive, &s.Platforms, &s.PreferredCategory,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning schedule slot: %w", err)
	}
	return &s, nil
}

// List returns slots ordered by day and time
func (r *SlotPostgres) List(ctx context.Context, activeOnly bool) ([]entity.ScheduleSlot, error) {
	query := `SELECT id, day_of_week, time_of_day, is_active, platforms, preferred_category FROM schedule_slots`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY day_of_week, time_of_day`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying schedule slots: %w", err)
	}
	defer rows.Close()

	var slots []entity.ScheduleSlot
	for rows.Next() {
		var s entity.ScheduleSlot
		if err := rows.Scan(&s.ID, &s.DayOfWeek, &s.TimeOfDay, &s.IsActive, &s.Platforms, &s.PreferredCategory); err != nil {
			return nil, fmt.Errorf("scanning schedule slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedule slots: %w", err)
	}

	return slots, nil
}

// Delete removes a slot
func (r *SlotPostgres) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM schedule_slots WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting schedule slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrSlotNotFound
	}
	return nil
}
