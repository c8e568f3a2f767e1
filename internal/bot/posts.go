package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/post/policy"
)

const (
	listLimit      = 20
	scheduleLayout = "2006-01-02 15:04"
	suggestedSlots = 3
)

func (b *Bot) cmdNew(ctx context.Context, req *Request) {
	title, content, ok := strings.Cut(req.Raw, "\n")
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if !ok || title == "" || content == "" {
		b.sendUsage(ctx, req.Message, "new")
		return
	}

	platforms, err := b.posts.DefaultPlatforms(ctx)
	if err != nil {
		b.sendDomainError(ctx, req.Message, "new", err)
		return
	}

	post, err := b.posts.CreatePost(ctx, req.User.Actor(), policy.CreatePostInput{
		Title:     title,
		Content:   content,
		Platforms: platforms,
	})
	if err != nil {
		b.sendDomainError(ctx, req.Message, "new", err)
		return
	}
	b.sendSuccess(ctx, req.Message, fmt.Sprintf("Черновик создан\nID: <code>%s</code>\n\nОтправить на модерацию: /submit %s", post.ID, post.ID))
}

func (b *Bot) cmdPost(ctx context.Context, req *Request) {
	id := req.Arg(0)
	if id == "" {
		b.sendUsage(ctx, req.Message, "post")
		return
	}

	detail, err := b.posts.GetPost(ctx, id)
	if err != nil {
		b.sendDomainError(ctx, req.Message, "post", err)
		return
	}

	var sb strings.Builder
	sb.WriteString(b.formatPost(detail.Post))
	if len(detail.Publications) > 0 {
		sb.WriteString("\n\n<b>Публикации</b>")
		for _, pub := range detail.Publications {
			mark := "✅"
			if pub.Status != entity.PublicationStatusSuccess {
				mark = "❌"
			}
			fmt.Fprintf(&sb, "\n%s %s", mark, escape(pub.Platform))
			if pub.ExternalURL != "" {
				fmt.Fprintf(&sb, " %s", escape(pub.ExternalURL))
			}
			if pub.ErrorMessage != "" {
				fmt.Fprintf(&sb, " · %s", escape(truncate(pub.ErrorMessage, 200)))
			}
		}
	}
	b.reply(ctx, req.Message, sb.String())
}

func (b *Bot) listByStatus(ctx context.Context, req *Request, title string, status entity.PostStatus) {
	posts, err := b.posts.ListByStatus(ctx, status, listLimit)
	if err != nil {
		b.sendDomainError(ctx, req.Message, "list", err)
		return
	}
	b.reply(ctx, req.Message, b.formatList(title, posts))
}

func (b *Bot) cmdDrafts(ctx context.Context, req *Request) {
	b.listByStatus(ctx, req, "📝 Черновики", entity.PostStatusDraft)
}

func (b *Bot) cmdQueue(ctx context.Context, req *Request) {
	b.listByStatus(ctx, req, "⏳ На модерации", entity.PostStatusPending)
}

func (b *Bot) cmdScheduled(ctx context.Context, req *Request) {
	b.listByStatus(ctx, req, "📅 Запланированы", entity.PostStatusScheduled)
}

func (b *Bot) cmdSubmit(ctx context.Context, req *Request) {
	id := req.Arg(0)
	if id == "" {
		b.sendUsage(ctx, req.Message, "submit")
		return
	}

	post, err := b.posts.SubmitForReview(ctx, req.User.Actor(), id)
	if err != nil {
		b.sendDomainError(ctx, req.Message, "submit", err)
		return
	}
	b.sendSuccess(ctx, req.Message, "Пост отправлен на модерацию")

	adminID := b.users.AdminID()
	if adminID == 0 || adminID == req.User.TelegramID {
		return
	}
	text := fmt.Sprintf("📨 <b>Пост на модерации</b>\nАвтор: %s\n\n%s", escape(req.User.DisplayName()), b.formatPost(post))
	b.send(ctx, adminID, text, &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{
			{Text: "✅ Одобрить", CallbackData: "papprove:" + post.ID},
			{Text: "❌ Отклонить", CallbackData: "preject:" + post.ID},
		}},
	})
}

func (b *Bot) cmdApprove(ctx context.Context, req *Request) {
	id := req.Arg(0)
	if id == "" {
		b.sendUsage(ctx, req.Message, "approve")
		return
	}

	post, err := b.posts.Approve(ctx, req.User.Actor(), id)
	if err != nil {
		b.sendDomainError(ctx, req.Message, "approve", err)
		return
	}
	b.sendSuccess(ctx, req.Message, fmt.Sprintf("Пост одобрен\n\nЗапланировать: /schedule %s\nОпубликовать сейчас: /publish %s", post.ID, post.ID))
}

func (b *Bot) cmdReject(ctx context.Context, req *Request) {
	id := req.Arg(0)
	if id == "" {
		b.sendUsage(ctx, req.Message, "reject")
		return
	}
	reason := strings.TrimSpace(strings.TrimPrefix(req.Raw, id))

	if _, err := b.posts.Reject(ctx, req.User.Actor(), id, reason); err != nil {
		b.sendDomainError(ctx, req.Message, "reject", err)
		return
	}
	b.sendSuccess(ctx, req.Message, "Пост отклонён")
}

func (b *Bot) cmdSchedule(ctx context.Context, req *Request) {
	id := req.Arg(0)
	if id == "" {
		b.sendUsage(ctx, req.Message, "schedule")
		return
	}

	if len(req.Args) == 1 {
		b.suggestSlots(ctx, req, id)
		return
	}

	at, err := time.ParseInLocation(scheduleLayout, strings.Join(req.Args[1:], " "), b.posts.Location())
	if err != nil {
		b.sendError(ctx, req.Message, "Неверный формат времени, нужен ГГГГ-ММ-ДД ЧЧ:ММ")
		return
	}
	b.schedule(ctx, req.Message, req.User.Actor(), id, at)
}

func (b *Bot) schedule(ctx context.Context, message *telego.Message, actor entity.Actor, id string, at time.Time) {
	post, err := b.posts.Schedule(ctx, actor, id, at)
	if err != nil {
		b.sendDomainError(ctx, message, "schedule", err)
		return
	}
	b.sendSuccess(ctx, message, "Публикация запланирована на "+b.formatTime(post.ScheduledAt))
}

// suggestSlots offers the nearest schedule slots as inline buttons
func (b *Bot) suggestSlots(ctx context.Context, req *Request, id string) {
	slots, err := b.posts.NextSlots(ctx, suggestedSlots)
	if err != nil {
		b.sendDomainError(ctx, req.Message, "schedule", err)
		return
	}
	if len(slots) == 0 {
		b.sendError(ctx, req.Message, "Нет активных слотов. Укажите время: <code>/schedule "+escape(id)+" ГГГГ-ММ-ДД ЧЧ:ММ</code>")
		return
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(slots))
	for _, slot := range slots {
		at := slot.At
		rows = append(rows, []telego.InlineKeyboardButton{{
			Text:         "🕐 " + b.formatTime(&at),
			CallbackData: "sched:" + id + ":" + strconv.FormatInt(at.Unix(), 10),
		}})
	}
	b.replyWithMarkup(ctx, req.Message, "Выберите время публикации:", &telego.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (b *Bot) cmdUnschedule(ctx context.Context, req *Request) {
	id := req.Arg(0)
	if id == "" {
		b.sendUsage(ctx, req.Message, "unschedule")
		return
	}
	if _, err := b.posts.Unschedule(ctx, req.User.Actor(), id); err != nil {
		b.sendDomainError(ctx, req.Message, "unschedule", err)
		return
	}
	b.sendSuccess(ctx, req.Message, "Публикация снята с расписания")
}

func (b *Bot) cmdPublish(ctx context.Context, req *Request) {
	id := req.Arg(0)
	if id == "" {
		b.sendUsage(ctx, req.Message, "publish")
		return
	}

	b.reply(ctx, req.Message, "🚀 Публикую…")
	outcome, err := b.posts.PublishNow(ctx, req.User.Actor(), id)
	if err != nil {
		b.sendDomainError(ctx, req.Message, "publish", err)
		return
	}
	b.reply(ctx, req.Message, formatOutcome(outcome))
}

func formatOutcome(outcome *policy.PublishOutcome) string {
	var sb strings.Builder
	switch {
	case !outcome.Success():
		sb.WriteString("❌ <b>Публикация не удалась</b>")
	case outcome.Post.Delivery == entity.DeliveryPartial:
		sb.WriteString("⚠️ <b>Опубликовано частично</b>")
	default:
		sb.WriteString("✅ <b>Опубликовано</b>")
	}
	for _, r := range outcome.Results {
		if r.Success {
			fmt.Fprintf(&sb, "\n✅ %s", escape(r.Platform))
			if r.ExternalURL != "" {
				fmt.Fprintf(&sb, " %s", escape(r.ExternalURL))
			}
			continue
		}
		fmt.Fprintf(&sb, "\n❌ %s: %s", escape(r.Platform), escape(truncate(r.Error, 200)))
	}
	return sb.String()
}

func (b *Bot) cmdStatus(ctx context.Context, req *Request) {
	statuses, err := b.posts.PlatformStatuses(ctx)
	if err != nil {
		b.sendDomainError(ctx, req.Message, "status", err)
		return
	}
	if len(statuses) == 0 {
		b.reply(ctx, req.Message, "Площадки не настроены")
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Площадки</b>\n")
	for _, s := range statuses {
		mark := "🔴"
		switch {
		case s.Connected:
			mark = "🟢"
		case !s.IsActive:
			mark = "⚪"
		}
		name := s.DisplayName
		if name == "" {
			name = s.Name
		}
		fmt.Fprintf(&sb, "\n%s %s", mark, escape(name))
	}
	b.reply(ctx, req.Message, sb.String())
}
