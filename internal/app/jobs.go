package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vadim/poolsmm/internal/config"
)

// Periodic job ids
const (
	JobCheckScheduled      = "check_scheduled"
	JobCleanupPublications = "cleanup_publications"
	JobPlatformHealth      = "platform_health"
)

// StartJobs registers the periodic jobs when periodic is set, re-registers
// deferred publications of scheduled posts and starts the scheduler.
func (c *Core) StartJobs(ctx context.Context, cfg config.Scheduler, periodic bool) error {
	if periodic {
		jobs := []struct {
			id, name, spec string
			fn             func(ctx context.Context)
		}{
			{JobCheckScheduled, "Проверка запланированных постов", cfg.SweepSpec, c.sweep},
			{JobCleanupPublications, "Очистка старых публикаций", cfg.CleanupSpec, func(ctx context.Context) {
				if _, err := c.Policy.CleanupPublications(ctx, cfg.Retention); err != nil {
					c.Logger.Error("publication cleanup failed", "job_id", JobCleanupPublications, "error", err)
				}
			}},
			{JobPlatformHealth, "Проверка подключения к платформам", cfg.HealthSpec, func(ctx context.Context) {
				c.Policy.CheckPlatformHealth(ctx)
			}},
		}
		for _, j := range jobs {
			if err := c.Jobs.AddPeriodic(j.id, j.name, j.spec, j.fn); err != nil {
				return fmt.Errorf("registering %s: %w", j.id, err)
			}
		}
	}

	resynced, err := c.Policy.ResyncScheduled(ctx)
	if err != nil {
		return fmt.Errorf("restoring scheduled posts: %w", err)
	}

	c.Logger.Info("deferred publications restored", "count", resynced, "periodic", periodic)

	c.Jobs.Start()
	return nil
}

// StopJobs waits for running jobs up to the context deadline
func (c *Core) StopJobs(ctx context.Context) error {
	return c.Jobs.Stop(ctx)
}

func (c *Core) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	if _, err := c.Policy.ProcessScheduledPosts(ctx); err != nil {
		c.Logger.Error("scheduled posts sweep failed", "job_id", JobCheckScheduled, "error", err)
	}
}
