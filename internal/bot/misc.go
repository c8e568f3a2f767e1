package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

var escape = html.EscapeString

// splitCommand separates "/name@bot rest" into the name and the raw rest
func splitCommand(text string) (string, string) {
	text = strings.TrimPrefix(text, "/")
	end := strings.IndexAny(text, " \n\t")
	head, rest := text, ""
	if end >= 0 {
		head, rest = text[:end], strings.TrimSpace(text[end+1:])
	}
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), rest
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, markup telego.ReplyMarkup) {
	_, err := b.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: chatID},
		Text:        text,
		ParseMode:   telego.ModeHTML,
		ReplyMarkup: markup,
		LinkPreviewOptions: &telego.LinkPreviewOptions{
			IsDisabled: true,
		},
	})
	if err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(ctx context.Context, message *telego.Message, text string) {
	b.send(ctx, message.Chat.ID, text, nil)
}

func (b *Bot) replyWithMarkup(ctx context.Context, message *telego.Message, text string, markup telego.ReplyMarkup) {
	b.send(ctx, message.Chat.ID, text, markup)
}

func (b *Bot) sendError(ctx context.Context, message *telego.Message, text string) {
	b.reply(ctx, message, "❌ "+text)
}

func (b *Bot) sendSuccess(ctx context.Context, message *telego.Message, text string) {
	b.reply(ctx, message, "✅ "+text)
}

func (b *Bot) sendUsage(ctx context.Context, message *telego.Message, name string) {
	if cmd := b.CommandByName(name); cmd != nil {
		b.reply(ctx, message, "Использование: <code>"+escape(cmd.Example)+"</code>")
	}
}

// Levenshtein distance over runes
func minDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	m, n := len(ra), len(rb)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
		dp[i][0] = i
	}
	for j := range dp[0] {
		dp[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if ra[i-1] == rb[j-1] {
				dp[i][j] = dp[i-1][j-1]
			} else {
				dp[i][j] = 1 + min(dp[i-1][j], dp[i][j-1], dp[i-1][j-1])
			}
		}
	}
	return dp[m][n]
}

// findSimilarCommands returns up to three closest command names
func (b *Bot) findSimilarCommands(input string) []string {
	type cmdDistance struct {
		name     string
		distance int
	}

	distances := make([]cmdDistance, 0, len(b.commands))
	for _, cmd := range b.commands {
		distances = append(distances, cmdDistance{cmd.Name, minDistance(input, cmd.Name)})
	}
	sort.SliceStable(distances, func(i, j int) bool {
		return distances[i].distance < distances[j].distance
	})

	var similar []string
	for _, d := range distances {
		if len(similar) == 3 || d.distance > max(2, len([]rune(input))/2) {
			break
		}
		similar = append(similar, d.name)
	}
	return similar
}

func (b *Bot) sendCommandSuggestions(ctx context.Context, message *telego.Message, input string) {
	similar := b.findSimilarCommands(input)
	if len(similar) == 0 {
		b.sendError(ctx, message, "Неизвестная команда. Список команд: /help")
		return
	}
	for i := range similar {
		similar[i] = "/" + similar[i]
	}
	b.sendError(ctx, message, fmt.Sprintf("Неизвестная команда. Возможно, вы имели в виду: %s", strings.Join(similar, ", ")))
}

// errorText maps domain errors to user-facing Russian messages
func errorText(err error) string {
	for _, m := range []struct {
		target error
		text   string
	}{
		{entity.ErrPostNotFound, "Пост не найден"},
		{entity.ErrPostNotEditable, "Пост нельзя изменить в текущем статусе"},
		{entity.ErrPostNotPublishable, "Пост должен быть одобрен перед публикацией"},
		{entity.ErrInvalidTransition, "Действие недоступно в текущем статусе поста"},
		{entity.ErrStatusConflict, "Статус поста изменился, обновите данные"},
		{entity.ErrScheduledTimeInPast, "Время публикации должно быть в будущем"},
		{entity.ErrNoPlatforms, "Нет доступных площадок для публикации"},
		{entity.ErrEmptyTitle, "Укажите заголовок"},
		{entity.ErrEmptyContent, "Укажите текст поста"},
		{entity.ErrInvalidCategory, "Неизвестная категория"},
		{entity.ErrNoSlots, "Нет активных слотов расписания"},
		{entity.ErrForbidden, "Недостаточно прав"},
	} {
		if errors.Is(err, m.target) {
			return m.text
		}
	}
	return "Внутренняя ошибка, попробуйте позже"
}

func (b *Bot) sendDomainError(ctx context.Context, message *telego.Message, op string, err error) {
	text := errorText(err)
	if text == errorText(nil) {
		b.logger.Error("bot operation failed", "op", op, "user_id", message.From.ID, "error", err)
	}
	b.sendError(ctx, message, text)
}

const timeLayout = "02.01.2006 15:04"

func (b *Bot) formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(b.posts.Location()).Format(timeLayout)
}

// formatPost renders a post card
func (b *Bot) formatPost(p *entity.Post) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", escape(p.Title))
	fmt.Fprintf(&sb, "ID: <code>%s</code>\n", p.ID)
	fmt.Fprintf(&sb, "Статус: %s\n", p.Status.Label())
	fmt.Fprintf(&sb, "Категория: %s\n", p.Category.Label())
	fmt.Fprintf(&sb, "Площадки: %s\n", escape(strings.Join(p.Platforms, ", ")))
	if p.ScheduledAt != nil {
		fmt.Fprintf(&sb, "Публикация: %s\n", b.formatTime(p.ScheduledAt))
	}
	if p.PublishedAt != nil {
		fmt.Fprintf(&sb, "Опубликован: %s\n", b.formatTime(p.PublishedAt))
	}
	if p.RejectionReason != "" {
		fmt.Fprintf(&sb, "Причина отклонения: %s\n", escape(p.RejectionReason))
	}
	if p.AIGenerated {
		sb.WriteString("🤖 Сгенерирован ИИ\n")
	}
	sb.WriteString("\n")
	sb.WriteString(escape(truncate(p.Content, 1500)))
	return sb.String()
}

// formatList renders one line per post
func (b *Bot) formatList(title string, posts []entity.Post) string {
	if len(posts) == 0 {
		return title + "\n\nПусто"
	}
	var sb strings.Builder
	sb.WriteString("<b>" + title + "</b>\n")
	for _, p := range posts {
		fmt.Fprintf(&sb, "\n• %s\n  <code>%s</code>", escape(truncate(p.Title, 60)), p.ID)
		if p.ScheduledAt != nil {
			fmt.Fprintf(&sb, " · %s", b.formatTime(p.ScheduledAt))
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
