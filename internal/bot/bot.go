package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	contentsvc "github.com/vadim/poolsmm/internal/domain/content/service"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/post/policy"
	userentity "github.com/vadim/poolsmm/internal/domain/user/entity"
	usersvc "github.com/vadim/poolsmm/internal/domain/user/service"
)

// Sender is the part of the Bot API the bot talks through
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
}

// UserService manages bot users
type UserService interface {
	AdminID() int64
	Get(ctx context.Context, telegramID int64) (*userentity.User, error)
	Start(ctx context.Context, telegramID int64, username, fullName string) (*userentity.User, error)
	Register(ctx context.Context, in usersvc.RegisterInput) (*userentity.User, error)
	Approve(ctx context.Context, telegramID int64, role entity.Role, approvedBy int64) (*userentity.User, error)
	Block(ctx context.Context, telegramID int64) (*userentity.User, error)
	Decline(ctx context.Context, telegramID int64) error
	List(ctx context.Context) ([]userentity.User, error)
}

// PostPolicy is the post workflow used by the bot
type PostPolicy interface {
	CreatePost(ctx context.Context, actor entity.Actor, in policy.CreatePostInput) (*entity.Post, error)
	GetPost(ctx context.Context, id string) (*policy.PostDetail, error)
	ListByStatus(ctx context.Context, status entity.PostStatus, limit int) ([]entity.Post, error)
	SubmitForReview(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error)
	Approve(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error)
	Reject(ctx context.Context, actor entity.Actor, id, reason string) (*entity.Post, error)
	Schedule(ctx context.Context, actor entity.Actor, id string, at time.Time) (*entity.Post, error)
	Unschedule(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error)
	PublishNow(ctx context.Context, actor entity.Actor, id string) (*policy.PublishOutcome, error)
	NextSlots(ctx context.Context, n int) ([]entity.SlotTime, error)
	GenerateDraft(ctx context.Context, actor entity.Actor, category entity.Category, details string, useAI bool) (*entity.Post, error)
	DefaultPlatforms(ctx context.Context) ([]string, error)
	PlatformStatuses(ctx context.Context) ([]policy.PlatformStatus, error)
	Location() *time.Location
}

// ContentHelper provides the AI text helpers
type ContentHelper interface {
	ImproveText(ctx context.Context, text string) (string, error)
	GenerateHashtags(ctx context.Context, text string, count int) ([]string, error)
	GenerateTipsBatch(ctx context.Context, count int, useAI bool) []contentsvc.Result
}

// Bot is the Telegram front end of the post workflow
type Bot struct {
	api     Sender
	users   UserService
	posts   PostPolicy
	content ContentHelper
	logger  *slog.Logger

	commands []Command

	mu            sync.Mutex
	registrations map[int64]*registration
}

// New creates a bot and registers its commands
func New(api Sender, users UserService, posts PostPolicy, content ContentHelper, logger *slog.Logger) *Bot {
	b := &Bot{
		api:           api,
		users:         users,
		posts:         posts,
		content:       content,
		logger:        logger,
		registrations: make(map[int64]*registration),
	}
	b.registerCommands()
	return b
}

// Run handles updates until the channel is closed or ctx is done
func (b *Bot) Run(ctx context.Context, updates <-chan telego.Update) {
	b.logger.Info("bot started", "commands", len(b.commands))

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate dispatches one update
func (b *Bot) HandleUpdate(ctx context.Context, update telego.Update) {
	defer func() {
		if v := recover(); v != nil {
			b.logger.Error("update handler panicked", "update_id", update.UpdateID, "panic", v)
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *telego.Message) {
	if message.From == nil || message.Chat.Type != telego.ChatTypePrivate {
		return
	}
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	if !strings.HasPrefix(text, "/") {
		if b.continueRegistration(ctx, message, text) {
			return
		}
		b.reply(ctx, message, "Используйте команды. Список: /help")
		return
	}

	name, raw := splitCommand(text)
	b.logger.Debug("command", "user_id", message.From.ID, "command", name)

	cmd := b.CommandByName(name)
	if cmd == nil {
		b.sendCommandSuggestions(ctx, message, name)
		return
	}

	// any command aborts an unfinished registration
	if name != "register" {
		b.dropRegistration(message.From.ID)
	}

	req := &Request{Message: message, Raw: raw, Args: strings.Fields(raw)}
	if cmd.Access != AccessAny {
		user, ok := b.authorize(ctx, message, cmd.Access)
		if !ok {
			return
		}
		req.User = user
	}
	cmd.Call(ctx, req)
}

// authorize loads the sender and checks that it may run a command of level
func (b *Bot) authorize(ctx context.Context, message *telego.Message, level Access) (*userentity.User, bool) {
	user, err := b.users.Get(ctx, message.From.ID)
	if err != nil {
		if errors.Is(err, userentity.ErrUserNotFound) {
			b.reply(ctx, message, "Вы не зарегистрированы. Отправьте /register, чтобы запросить доступ.")
			return nil, false
		}
		b.logger.Error("failed to load user", "user_id", message.From.ID, "error", err)
		b.sendError(ctx, message, "Внутренняя ошибка, попробуйте позже")
		return nil, false
	}

	switch {
	case user.Status == userentity.StatusPending:
		b.reply(ctx, message, "⏳ Ваша заявка ещё на рассмотрении у администратора.")
		return nil, false
	case user.Status == userentity.StatusBlocked:
		b.sendError(ctx, message, "Доступ к боту заблокирован.")
		return nil, false
	case !level.allows(user):
		b.sendError(ctx, message, "Недостаточно прав для этой команды.")
		return nil, false
	}
	return user, true
}

func (b *Bot) handleCallback(ctx context.Context, q *telego.CallbackQuery) {
	action, arg, _ := strings.Cut(q.Data, ":")

	answer := func(text string) {
		err := b.api.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
			CallbackQueryID: q.ID,
			Text:            text,
		})
		if err != nil {
			b.logger.Warn("failed to answer callback", "error", err)
		}
	}

	user, err := b.users.Get(ctx, q.From.ID)
	if err != nil || !user.IsActive() {
		answer("Нет доступа")
		return
	}

	handler, ok := b.callbacks()[action]
	if !ok {
		answer("Неизвестное действие")
		return
	}
	answer(handler(ctx, user, arg))
}
