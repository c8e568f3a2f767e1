package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	userentity "github.com/vadim/poolsmm/internal/domain/user/entity"
	usersvc "github.com/vadim/poolsmm/internal/domain/user/service"
)

type registrationStep int

const (
	stepFullName registrationStep = iota
	stepPosition
)

// registration is an unfinished /register dialog
type registration struct {
	step     registrationStep
	fullName string
}

func (b *Bot) cmdStart(ctx context.Context, req *Request) {
	from := req.Message.From
	fullName := strings.TrimSpace(from.FirstName + " " + from.LastName)

	user, err := b.users.Start(ctx, from.ID, from.Username, fullName)
	switch {
	case errors.Is(err, userentity.ErrUserNotFound):
		b.reply(ctx, req.Message, "👋 Здравствуйте! Это бот публикаций «ПулСтрой».\n\n"+
			"Чтобы получить доступ, отправьте /register и ответьте на два вопроса.")
		return
	case err != nil:
		b.sendDomainError(ctx, req.Message, "start", err)
		return
	}

	switch user.Status {
	case userentity.StatusPending:
		b.reply(ctx, req.Message, "⏳ Ваша заявка на рассмотрении. Мы сообщим, когда администратор её одобрит.")
	case userentity.StatusBlocked:
		b.sendError(ctx, req.Message, "Доступ к боту заблокирован.")
	default:
		b.reply(ctx, req.Message, fmt.Sprintf("👋 %s, с возвращением!\nРоль: %s\n\n%s",
			escape(user.DisplayName()), userentity.RoleLabel(user.Role), b.Help(user)))
	}
}

func (b *Bot) cmdRegister(ctx context.Context, req *Request) {
	user, err := b.users.Get(ctx, req.Message.From.ID)
	if err == nil {
		switch user.Status {
		case userentity.StatusActive:
			b.reply(ctx, req.Message, "Вы уже зарегистрированы. Команды: /help")
			return
		case userentity.StatusBlocked:
			b.sendError(ctx, req.Message, "Доступ к боту заблокирован.")
			return
		}
	}

	b.mu.Lock()
	b.registrations[req.Message.From.ID] = &registration{step: stepFullName}
	b.mu.Unlock()

	b.reply(ctx, req.Message, "📝 Регистрация\n\nШаг 1/2. Введите ваше имя и фамилию:")
}

func (b *Bot) dropRegistration(userID int64) {
	b.mu.Lock()
	delete(b.registrations, userID)
	b.mu.Unlock()
}

// continueRegistration consumes a plain text answer of the /register dialog
func (b *Bot) continueRegistration(ctx context.Context, message *telego.Message, text string) bool {
	userID := message.From.ID

	b.mu.Lock()
	reg, ok := b.registrations[userID]
	if !ok {
		b.mu.Unlock()
		return false
	}
	if reg.step == stepFullName {
		if len([]rune(text)) < 3 {
			b.mu.Unlock()
			b.sendError(ctx, message, "Имя слишком короткое, попробуйте ещё раз:")
			return true
		}
		reg.fullName = text
		reg.step = stepPosition
		b.mu.Unlock()
		b.reply(ctx, message, "Шаг 2/2. Укажите вашу должность:")
		return true
	}
	fullName := reg.fullName
	delete(b.registrations, userID)
	b.mu.Unlock()

	user, err := b.users.Register(ctx, usersvc.RegisterInput{
		TelegramID: userID,
		Username:   message.From.Username,
		FullName:   fullName,
		Position:   text,
	})
	switch {
	case errors.Is(err, userentity.ErrAlreadyActive):
		b.reply(ctx, message, "Вы уже зарегистрированы. Команды: /help")
		return true
	case errors.Is(err, userentity.ErrBlocked):
		b.sendError(ctx, message, "Доступ к боту заблокирован.")
		return true
	case errors.Is(err, userentity.ErrNameTooShort):
		b.sendError(ctx, message, "Имя слишком короткое. Начните заново: /register")
		return true
	case err != nil:
		b.sendDomainError(ctx, message, "register", err)
		return true
	}

	b.sendSuccess(ctx, message, "Заявка отправлена администратору. Мы сообщим о решении.")
	b.notifyAdminAboutRegistration(ctx, user)
	return true
}

func (b *Bot) notifyAdminAboutRegistration(ctx context.Context, user *userentity.User) {
	adminID := b.users.AdminID()
	if adminID == 0 {
		return
	}

	username := "-"
	if user.Username != "" {
		username = "@" + user.Username
	}
	text := fmt.Sprintf("🆕 <b>Новая заявка на доступ</b>\n\nИмя: %s\nДолжность: %s\nTelegram: %s\nID: <code>%d</code>",
		escape(user.FullName), escape(user.Position), escape(username), user.TelegramID)

	id := strconv.FormatInt(user.TelegramID, 10)
	b.send(ctx, adminID, text, &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{
			{Text: "✅ Одобрить", CallbackData: "uapprove:" + id},
			{Text: "❌ Отклонить", CallbackData: "udecline:" + id},
		}},
	})
}

func (b *Bot) cmdUsers(ctx context.Context, req *Request) {
	users, err := b.users.List(ctx)
	if err != nil {
		b.sendDomainError(ctx, req.Message, "users", err)
		return
	}
	if len(users) == 0 {
		b.reply(ctx, req.Message, "Пользователей нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Пользователи</b>\n")
	for _, u := range users {
		fmt.Fprintf(&sb, "\n%s %s · %s\n  <code>%d</code>", u.Status.Emoji(), escape(u.DisplayName()),
			userentity.RoleLabel(u.Role), u.TelegramID)
		if u.Position != "" {
			fmt.Fprintf(&sb, " · %s", escape(u.Position))
		}
	}
	b.reply(ctx, req.Message, sb.String())
}

func (b *Bot) cmdApproveUser(ctx context.Context, req *Request) {
	id, err := strconv.ParseInt(req.Arg(0), 10, 64)
	if err != nil {
		b.sendUsage(ctx, req.Message, "approve_user")
		return
	}

	user, err := b.users.Approve(ctx, id, entity.Role(req.Arg(1)), req.User.TelegramID)
	switch {
	case errors.Is(err, userentity.ErrInvalidRole):
		b.sendError(ctx, req.Message, "Роль должна быть admin, editor или viewer")
		return
	case errors.Is(err, userentity.ErrUserNotFound):
		b.sendError(ctx, req.Message, "Пользователь не найден")
		return
	case err != nil:
		b.sendDomainError(ctx, req.Message, "approve_user", err)
		return
	}

	b.sendSuccess(ctx, req.Message, fmt.Sprintf("%s получил доступ: %s", escape(user.DisplayName()), userentity.RoleLabel(user.Role)))
	b.send(ctx, user.TelegramID, "✅ Доступ одобрен! Ваша роль: "+userentity.RoleLabel(user.Role)+"\n\nКоманды: /help", nil)
}

func (b *Bot) cmdBlockUser(ctx context.Context, req *Request) {
	id, err := strconv.ParseInt(req.Arg(0), 10, 64)
	if err != nil {
		b.sendUsage(ctx, req.Message, "block_user")
		return
	}
	if id == req.User.TelegramID {
		b.sendError(ctx, req.Message, "Нельзя заблокировать самого себя")
		return
	}

	user, err := b.users.Block(ctx, id)
	if errors.Is(err, userentity.ErrUserNotFound) {
		b.sendError(ctx, req.Message, "Пользователь не найден")
		return
	}
	if err != nil {
		b.sendDomainError(ctx, req.Message, "block_user", err)
		return
	}
	b.sendSuccess(ctx, req.Message, escape(user.DisplayName())+" заблокирован")
}
