package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	userentity "github.com/vadim/poolsmm/internal/domain/user/entity"
)

// callbackHandler returns the text of the callback answer
type callbackHandler func(ctx context.Context, user *userentity.User, arg string) string

func (b *Bot) callbacks() map[string]callbackHandler {
	return map[string]callbackHandler{
		"uapprove": b.onApproveUser,
		"udecline": b.onDeclineUser,
		"papprove": b.onApprovePost,
		"preject":  b.onRejectPost,
		"sched":    b.onSchedule,
	}
}

func (b *Bot) onApproveUser(ctx context.Context, admin *userentity.User, arg string) string {
	if !admin.IsAdmin() {
		return "Недостаточно прав"
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return "Неверные данные"
	}

	user, err := b.users.Approve(ctx, id, entity.RoleEditor, admin.TelegramID)
	if err != nil {
		if errors.Is(err, userentity.ErrUserNotFound) {
			return "Заявка не найдена"
		}
		b.logger.Error("failed to approve user", "telegram_id", id, "error", err)
		return "Ошибка"
	}

	b.send(ctx, admin.TelegramID, "✅ "+escape(user.DisplayName())+" получил доступ: "+userentity.RoleLabel(user.Role), nil)
	b.send(ctx, user.TelegramID, "✅ Доступ одобрен! Ваша роль: "+userentity.RoleLabel(user.Role)+"\n\nКоманды: /help", nil)
	return "Одобрено"
}

func (b *Bot) onDeclineUser(ctx context.Context, admin *userentity.User, arg string) string {
	if !admin.IsAdmin() {
		return "Недостаточно прав"
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return "Неверные данные"
	}

	if err := b.users.Decline(ctx, id); err != nil {
		if errors.Is(err, userentity.ErrUserNotFound) {
			return "Заявка не найдена"
		}
		b.logger.Error("failed to decline user", "telegram_id", id, "error", err)
		return "Ошибка"
	}

	b.send(ctx, id, "❌ Заявка на доступ отклонена.", nil)
	return "Отклонено"
}

func (b *Bot) onApprovePost(ctx context.Context, admin *userentity.User, id string) string {
	if _, err := b.posts.Approve(ctx, admin.Actor(), id); err != nil {
		return errorText(err)
	}
	b.send(ctx, admin.TelegramID, "✅ Пост одобрен\n\nЗапланировать: /schedule "+id, nil)
	return "Одобрено"
}

func (b *Bot) onRejectPost(ctx context.Context, admin *userentity.User, id string) string {
	if _, err := b.posts.Reject(ctx, admin.Actor(), id, ""); err != nil {
		return errorText(err)
	}
	return "Отклонено"
}

func (b *Bot) onSchedule(ctx context.Context, admin *userentity.User, arg string) string {
	id, unix, ok := strings.Cut(arg, ":")
	if !ok {
		return "Неверные данные"
	}
	sec, err := strconv.ParseInt(unix, 10, 64)
	if err != nil {
		return "Неверные данные"
	}

	post, err := b.posts.Schedule(ctx, admin.Actor(), id, time.Unix(sec, 0))
	if err != nil {
		return errorText(err)
	}
	b.send(ctx, admin.TelegramID, "✅ Публикация запланирована на "+b.formatTime(post.ScheduledAt), nil)
	return "Запланировано"
}
