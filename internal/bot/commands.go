package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"

	userentity "github.com/vadim/poolsmm/internal/domain/user/entity"
)

// Access is the minimal user level a command requires
type Access int

const (
	AccessAny Access = iota
	AccessViewer
	AccessEditor
	AccessAdmin
)

func (a Access) allows(u *userentity.User) bool {
	switch a {
	case AccessAny:
		return true
	case AccessViewer:
		return u.CanView()
	case AccessEditor:
		return u.CanCreatePosts()
	case AccessAdmin:
		return u.IsAdmin()
	default:
		return false
	}
}

// Request is a parsed command invocation
type Request struct {
	Message *telego.Message
	// Raw is everything after the command name, line breaks included
	Raw  string
	Args []string
	// User is nil for commands open to anyone
	User *userentity.User
}

// Arg returns the i-th argument or an empty string
func (r *Request) Arg(i int) string {
	if i < len(r.Args) {
		return r.Args[i]
	}
	return ""
}

// Command is a bot command with its help entry
type Command struct {
	Name        string
	Description string
	Example     string
	Group       string
	Access      Access
	Call        func(ctx context.Context, req *Request)
}

func (b *Bot) newCommand(name, description, example, group string, access Access, call func(context.Context, *Request)) {
	b.commands = append(b.commands, Command{
		Name:        name,
		Description: description,
		Example:     example,
		Group:       group,
		Access:      access,
		Call:        call,
	})
}

// CommandByName returns the command or nil
func (b *Bot) CommandByName(name string) *Command {
	for i := range b.commands {
		if b.commands[i].Name == name {
			return &b.commands[i]
		}
	}
	return nil
}

const (
	groupGeneral = "Общее"
	groupPosts   = "Посты"
	groupAI      = "Генерация"
	groupAdmin   = "Администрирование"
)

var groupOrder = []string{groupGeneral, groupPosts, groupAI, groupAdmin}

func (b *Bot) registerCommands() {
	b.newCommand("start", "Начать работу с ботом", "/start", groupGeneral, AccessAny, b.cmdStart)
	b.newCommand("register", "Запросить доступ", "/register", groupGeneral, AccessAny, b.cmdRegister)
	b.newCommand("help", "Список команд", "/help", groupGeneral, AccessAny, b.cmdHelp)
	b.newCommand("status", "Состояние площадок", "/status", groupGeneral, AccessViewer, b.cmdStatus)

	b.newCommand("new", "Создать черновик", "/new Заголовок\\nТекст поста", groupPosts, AccessEditor, b.cmdNew)
	b.newCommand("post", "Показать пост", "/post <id>", groupPosts, AccessViewer, b.cmdPost)
	b.newCommand("drafts", "Черновики", "/drafts", groupPosts, AccessViewer, b.cmdDrafts)
	b.newCommand("queue", "Посты на модерации", "/queue", groupPosts, AccessViewer, b.cmdQueue)
	b.newCommand("scheduled", "Запланированные посты", "/scheduled", groupPosts, AccessViewer, b.cmdScheduled)
	b.newCommand("submit", "Отправить на модерацию", "/submit <id>", groupPosts, AccessEditor, b.cmdSubmit)
	b.newCommand("approve", "Одобрить пост", "/approve <id>", groupPosts, AccessAdmin, b.cmdApprove)
	b.newCommand("reject", "Отклонить пост", "/reject <id> [причина]", groupPosts, AccessAdmin, b.cmdReject)
	b.newCommand("schedule", "Запланировать публикацию", "/schedule <id> [ГГГГ-ММ-ДД ЧЧ:ММ]", groupPosts, AccessAdmin, b.cmdSchedule)
	b.newCommand("unschedule", "Снять с расписания", "/unschedule <id>", groupPosts, AccessAdmin, b.cmdUnschedule)
	b.newCommand("publish", "Опубликовать сейчас", "/publish <id>", groupPosts, AccessAdmin, b.cmdPublish)

	b.newCommand("ai", "Сгенерировать черновик", "/ai tip про зимнюю консервацию", groupAI, AccessEditor, b.cmdAI)
	b.newCommand("ai_improve", "Улучшить текст", "/ai_improve <текст>", groupAI, AccessEditor, b.cmdImprove)
	b.newCommand("ai_hashtags", "Подобрать хештеги", "/ai_hashtags <текст>", groupAI, AccessEditor, b.cmdHashtags)
	b.newCommand("tips", "Подборка советов", "/tips 5", groupAI, AccessEditor, b.cmdTips)

	b.newCommand("users", "Пользователи бота", "/users", groupAdmin, AccessAdmin, b.cmdUsers)
	b.newCommand("approve_user", "Выдать доступ", "/approve_user <telegram_id> [admin|editor|viewer]", groupAdmin, AccessAdmin, b.cmdApproveUser)
	b.newCommand("block_user", "Заблокировать пользователя", "/block_user <telegram_id>", groupAdmin, AccessAdmin, b.cmdBlockUser)
}

// Help renders the commands available to the user grouped by section
func (b *Bot) Help(user *userentity.User) string {
	var sb strings.Builder
	sb.WriteString("<b>Доступные команды</b>\n")

	for _, group := range groupOrder {
		var lines []string
		for _, cmd := range b.commands {
			if cmd.Group != group {
				continue
			}
			if cmd.Access != AccessAny && (user == nil || !cmd.Access.allows(user)) {
				continue
			}
			lines = append(lines, fmt.Sprintf("/%s - %s\n<code>%s</code>", cmd.Name, escape(cmd.Description), escape(cmd.Example)))
		}
		if len(lines) == 0 {
			continue
		}
		sb.WriteString("\n<b>" + group + "</b>\n")
		sb.WriteString(strings.Join(lines, "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b *Bot) cmdHelp(ctx context.Context, req *Request) {
	user, err := b.users.Get(ctx, req.Message.From.ID)
	if err != nil || !user.IsActive() {
		user = nil
	}
	b.reply(ctx, req.Message, b.Help(user))
}
