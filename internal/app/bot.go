package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vadim/poolsmm/internal/bot"
	"github.com/vadim/poolsmm/internal/config"
	"github.com/vadim/poolsmm/internal/database"
	userdao "github.com/vadim/poolsmm/internal/domain/user/dao"
	usersvc "github.com/vadim/poolsmm/internal/domain/user/service"
	"github.com/vadim/poolsmm/internal/httpx/upstream/telegram"
)

// BotApp is the Telegram bot process
type BotApp struct {
	cfg    config.Config
	logger *slog.Logger
	core   *Core
	api    *telego.Bot
	bot    *bot.Bot
	close  func() error
}

// NewBotApp builds the shared core, the user store and the bot client
func NewBotApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*BotApp, error) {
	token := cfg.Bot.Token
	if token == "" {
		token = cfg.Telegram.BotToken
	}
	if token == "" {
		return nil, errors.New("BOT_TOKEN is not set")
	}
	if cfg.Bot.AdminTelegramID == 0 {
		logger.Warn("ADMIN_TELEGRAM_ID is not set, registrations cannot be approved")
	}

	// the bot has no metrics endpoint
	core, err := NewCore(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(cfg.Bot.DBPath)
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("opening bot database: %w", err)
	}
	repo, err := userdao.NewUserSQLite(ctx, db)
	if err != nil {
		db.Close()
		core.Close()
		return nil, fmt.Errorf("preparing users table: %w", err)
	}

	api, err := telegram.NewBot(token, cfg.Telegram.APIServer)
	if err != nil {
		db.Close()
		core.Close()
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	users := usersvc.New(repo, cfg.Bot.AdminTelegramID)
	return &BotApp{
		cfg:    cfg,
		logger: logger,
		core:   core,
		api:    api,
		bot:    bot.New(api, users, core.Policy, core.Generator, logger.With("component", "bot")),
		close:  db.Close,
	}, nil
}

// Run polls updates until a signal arrives. Only deferred publications are
// scheduled here, the periodic sweep belongs to the API process.
func (a *BotApp) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.cfg.Scheduler.Enabled {
		if err := a.core.StartJobs(ctx, a.cfg.Scheduler, false); err != nil {
			return err
		}
	}

	me, err := a.api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	a.logger.Info("telegram bot authorized", "username", me.Username)

	updates, err := a.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return fmt.Errorf("starting long polling: %w", err)
	}

	a.bot.Run(ctx, updates)
	if ctx.Err() != nil {
		a.logger.Info("received shutdown signal")
	}
	return a.Shutdown(context.Background())
}

// Shutdown stops the scheduler and closes the stores
func (a *BotApp) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down bot...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var errs []error
	if a.cfg.Scheduler.Enabled {
		if err := a.core.StopJobs(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, a.close(), a.core.Close())
	if err := errors.Join(errs...); err != nil {
		return err
	}

	a.logger.Info("bot stopped")
	return nil
}
