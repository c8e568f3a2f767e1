package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vadim/poolsmm/internal/config"
	"github.com/vadim/poolsmm/internal/database"
	contentsvc "github.com/vadim/poolsmm/internal/domain/content/service"
	"github.com/vadim/poolsmm/internal/domain/content/template"
	"github.com/vadim/poolsmm/internal/domain/post/dao"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/post/policy"
	"github.com/vadim/poolsmm/internal/domain/post/scheduler"
	"github.com/vadim/poolsmm/internal/domain/post/service"
	"github.com/vadim/poolsmm/internal/domain/publisher"
	"github.com/vadim/poolsmm/internal/httpx/upstream/ai"
	"github.com/vadim/poolsmm/internal/httpx/upstream/telegram"
	"github.com/vadim/poolsmm/internal/httpx/upstream/vk"
	"github.com/vadim/poolsmm/internal/mq"
	"github.com/vadim/poolsmm/internal/telemetry"
)

// Core is the post pipeline shared by the API and the bot processes
type Core struct {
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	Registry  *publisher.Registry
	Jobs      *scheduler.Scheduler
	Generator *contentsvc.Generator
	Policy    *policy.Policy

	pool    *pgxpool.Pool
	amqp    *mq.Connection
	closers []func() error
}

// NewCore connects the stores and builds the publisher registry, the content
// generator and the post policy. Metrics are registered with reg.
func NewCore(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*Core, error) {
	c := &Core{
		Logger:  logger,
		Metrics: telemetry.NewMetrics(reg),
	}

	svc, err := c.initStore(ctx, cfg.Database)
	if err != nil {
		c.Close()
		return nil, err
	}

	events, err := c.initEvents(cfg.AMQP)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Registry = publisher.NewRegistry(cfg.Publish.Timeout, logger.With("component", "publisher"))
	c.Jobs = scheduler.New(cfg.Scheduler.Location(), cfg.Scheduler.Workers, logger.With("component", "scheduler"))

	aiClient := ai.New(cfg.AI.Provider, cfg.AI.APIKey,
		ai.WithBaseURL(cfg.AI.BaseURL),
		ai.WithModel(cfg.AI.Model),
	)
	c.Generator = contentsvc.New(aiClient, template.New(logger), c.Metrics, logger.With("component", "content"))

	c.Policy = policy.New(policy.Deps{
		Service:    svc,
		Publishers: c.Registry,
		Jobs:       c.Jobs,
		Content:    c.Generator,
		Events:     events,
		Metrics:    c.Metrics,
		Logger:     logger.With("component", "policy"),
		Factory:    PublisherFactory(cfg, logger),
		Fallback:   FallbackPlatforms(cfg),
		Location:   cfg.Scheduler.Location(),
	})

	names, err := c.Policy.ReloadPublishers(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("loading publishers: %w", err)
	}
	if len(names) == 0 {
		logger.Warn("no platform is configured, posts cannot be published")
	}
	if !aiClient.Configured() {
		logger.Info("ai provider is not configured, texts come from templates")
	}

	return c, nil
}

func (c *Core) initStore(ctx context.Context, cfg config.Database) (*service.Service, error) {
	if cfg.PostgresDSN == "" {
		c.Logger.Warn("DATABASE_URL is empty, using the in-memory store")
		return service.NewFromMemory(dao.NewMemory()), nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN, database.PoolOptions{
		MaxConns:     int32(cfg.MaxOpenConns),
		MinConns:     int32(cfg.MaxIdleConns),
		ConnLifetime: cfg.ConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	c.pool = pool
	c.closers = append(c.closers, func() error { pool.Close(); return nil })

	if err := database.Migrate(ctx, pool); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return service.New(
		dao.NewPostPostgres(pool),
		dao.NewPublicationPostgres(pool),
		dao.NewPlatformPostgres(pool),
		dao.NewProjectPostgres(pool),
		dao.NewSlotPostgres(pool),
	), nil
}

func (c *Core) initEvents(cfg config.AMQP) (policy.EventEmitter, error) {
	if cfg.URL == "" {
		return mq.NewLogEmitter(c.Logger), nil
	}

	conn, err := mq.NewConnection(cfg.URL, c.Logger.With("component", "amqp"))
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	c.amqp = conn
	c.closers = append(c.closers, conn.Close)

	emitter, err := mq.NewEmitter(conn, cfg.Exchange, c.Logger)
	if err != nil {
		return nil, err
	}
	return emitter, nil
}

// Ping checks the database and the broker
func (c *Core) Ping(ctx context.Context) error {
	if c.pool != nil {
		if err := c.pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if c.amqp != nil {
		if err := c.amqp.Ping(ctx); err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
	}
	return nil
}

// Close releases connections in reverse order of creation
func (c *Core) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// PublisherFactory builds the channel adapter of a platform row
func PublisherFactory(cfg config.Config, logger *slog.Logger) publisher.Factory {
	return func(p entity.Platform) (publisher.Publisher, error) {
		switch p.Name {
		case entity.PlatformTelegram:
			return telegram.NewPublisher(p.APIToken, p.ChannelID,
				logger.With("platform", p.Name),
				telegram.WithAPIServer(cfg.Telegram.APIServer),
			)
		case entity.PlatformVK:
			client := vk.New(p.APIToken,
				vk.WithBaseURL(cfg.VK.BaseURL),
				vk.WithAPIVersion(cfg.VK.APIVersion),
			)
			return vk.NewPublisher(client, p.ChannelID, logger.With("platform", p.Name)), nil
		default:
			return nil, fmt.Errorf("%w: %s", entity.ErrInvalidPlatform, p.Name)
		}
	}
}

// FallbackPlatforms describes the channels configured through the
// environment, used while no platform rows are stored
func FallbackPlatforms(cfg config.Config) []entity.Platform {
	var out []entity.Platform
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChannelID != "" {
		out = append(out, entity.Platform{
			Name:        entity.PlatformTelegram,
			DisplayName: "Telegram",
			IsActive:    true,
			APIToken:    cfg.Telegram.BotToken,
			ChannelID:   strings.TrimSpace(cfg.Telegram.ChannelID),
		})
	}
	if cfg.VK.AccessToken != "" && cfg.VK.GroupID != "" {
		out = append(out, entity.Platform{
			Name:        entity.PlatformVK,
			DisplayName: "ВКонтакте",
			IsActive:    true,
			APIToken:    cfg.VK.AccessToken,
			ChannelID:   strings.TrimSpace(cfg.VK.GroupID),
		})
	}
	return out
}
