package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/publisher"
)

// Telegram limits
const (
	MaxCaptionLength = 1024
	MaxMessageLength = 4096
)

// Publisher posts to a Telegram channel through the Bot API
type Publisher struct {
	bot       *telego.Bot
	channelID string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Option configures the publisher
type Option func(*options)

type options struct {
	apiServer string
	limiter   *rate.Limiter
}

// WithAPIServer points the bot at a custom Bot API server
func WithAPIServer(url string) Option {
	return func(o *options) {
		o.apiServer = url
	}
}

// WithRateLimit overrides the default of 20 messages per minute
func WithRateLimit(l *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// NewBot creates a telego bot using net/http
func NewBot(token, apiServer string) (*telego.Bot, error) {
	botOpts := []telego.BotOption{
		telego.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		telego.WithDiscardLogger(),
	}
	if apiServer != "" {
		botOpts = append(botOpts, telego.WithAPIServer(apiServer))
	}
	return telego.NewBot(token, botOpts...)
}

// NewPublisher creates a publisher for the channel (@username or numeric id)
func NewPublisher(token, channelID string, logger *slog.Logger, opts ...Option) (*Publisher, error) {
	o := options{
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 3),
	}
	for _, opt := range opts {
		opt(&o)
	}

	bot, err := NewBot(token, o.apiServer)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Publisher{
		bot:       bot,
		channelID: strings.TrimSpace(channelID),
		limiter:   o.limiter,
		logger:    logger,
	}, nil
}

// Publish sends a photo with caption when an image is available, otherwise a text message
func (p *Publisher) Publish(ctx context.Context, text, image string) publisher.Result {
	if err := p.limiter.Wait(ctx); err != nil {
		return publisher.Failed(entity.PlatformTelegram, err)
	}

	chat := ChatID(p.channelID)

	var (
		msg *telego.Message
		err error
	)
	if photo, ok, closeFn := p.inputFile(image); ok {
		defer closeFn()
		msg, err = p.bot.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID:    chat,
			Photo:     photo,
			Caption:   Truncate(text, MaxCaptionLength),
			ParseMode: telego.ModeHTML,
		})
	} else {
		msg, err = p.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID:    chat,
			Text:      Truncate(text, MaxMessageLength),
			ParseMode: telego.ModeHTML,
		})
	}
	if err != nil {
		p.logger.Error("telegram publish failed", "channel", p.channelID, "error", err)
		return publisher.Failed(entity.PlatformTelegram, err)
	}

	id := strconv.Itoa(msg.MessageID)
	p.logger.Info("telegram message published", "message_id", id)

	return publisher.Result{
		Platform:    entity.PlatformTelegram,
		Success:     true,
		ExternalID:  id,
		ExternalURL: MessageURL(p.channelID, msg.MessageID),
	}
}

// inputFile resolves image to an upload. A missing local file yields ok == false.
func (p *Publisher) inputFile(image string) (telego.InputFile, bool, func()) {
	noop := func() {}
	if image == "" {
		return telego.InputFile{}, false, noop
	}
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return tu.FileFromURL(image), true, noop
	}

	f, err := os.Open(image)
	if err != nil {
		p.logger.Warn("image not readable, sending text only", "image", image, "error", err)
		return telego.InputFile{}, false, noop
	}
	return tu.File(f), true, func() { f.Close() }
}

// TestConnection checks the bot token with getMe
func (p *Publisher) TestConnection(ctx context.Context) bool {
	me, err := p.bot.GetMe(ctx)
	if err != nil {
		p.logger.Warn("telegram connection test failed", "error", err)
		return false
	}
	p.logger.Debug("telegram bot connected", "username", me.Username)
	return true
}

// ChatID converts a channel reference into a telego chat id
func ChatID(channel string) telego.ChatID {
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return tu.ID(id)
	}
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	return tu.Username(channel)
}

// MessageURL builds the public link of a channel message
func MessageURL(channel string, messageID int) string {
	if strings.HasPrefix(channel, "-100") {
		return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(channel, "-100"), messageID)
	}
	if _, err := strconv.ParseInt(channel, 10, 64); err == nil {
		// private chats have no public link
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", strings.TrimPrefix(channel, "@"), messageID)
}

// Truncate caps text at max runes, ending it with "..."
func Truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max-3]) + "..."
}
