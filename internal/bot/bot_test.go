package bot

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"

	"github.com/vadim/poolsmm/internal/database"
	contentsvc "github.com/vadim/poolsmm/internal/domain/content/service"
	"github.com/vadim/poolsmm/internal/domain/content/template"
	"github.com/vadim/poolsmm/internal/domain/post/dao"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/post/policy"
	"github.com/vadim/poolsmm/internal/domain/post/scheduler"
	"github.com/vadim/poolsmm/internal/domain/post/service"
	"github.com/vadim/poolsmm/internal/domain/publisher"
	userdao "github.com/vadim/poolsmm/internal/domain/user/dao"
	userentity "github.com/vadim/poolsmm/internal/domain/user/entity"
	usersvc "github.com/vadim/poolsmm/internal/domain/user/service"
)

const (
	adminID  = 100
	editorID = 200
)

type sentMessage struct {
	chatID int64
	text   string
	markup *telego.InlineKeyboardMarkup
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	answered []string
}

func (f *fakeSender) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	markup, _ := params.ReplyMarkup.(*telego.InlineKeyboardMarkup)
	f.sent = append(f.sent, sentMessage{chatID: params.ChatID.ID, text: params.Text, markup: markup})
	return &telego.Message{}, nil
}

func (f *fakeSender) AnswerCallbackQuery(_ context.Context, params *telego.AnswerCallbackQueryParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, params.Text)
	return nil
}

func (f *fakeSender) last(t *testing.T, chatID int64) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].chatID == chatID {
			return f.sent[i]
		}
	}
	t.Fatalf("no message sent to %d", chatID)
	return sentMessage{}
}

func (f *fakeSender) lastAnswer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answered) == 0 {
		return ""
	}
	return f.answered[len(f.answered)-1]
}

type okPublisher struct{}

func (okPublisher) Publish(context.Context, string, string) publisher.Result {
	return publisher.Result{Success: true, ExternalID: "1", ExternalURL: "https://t.me/pool/1"}
}

func (okPublisher) TestConnection(context.Context) bool { return true }

type testBot struct {
	bot    *Bot
	api    *fakeSender
	users  *usersvc.Service
	policy *policy.Policy
	nextID int
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	repo, err := userdao.NewUserSQLite(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	users := usersvc.New(repo, adminID)

	registry := publisher.NewRegistry(time.Second, logger)
	registry.Register(entity.PlatformTelegram, okPublisher{})
	generator := contentsvc.New(nil, template.New(logger), nil, logger)
	p := policy.New(policy.Deps{
		Service:    service.NewFromMemory(dao.NewMemory()),
		Publishers: registry,
		Jobs:       scheduler.New(time.UTC, 1, logger),
		Content:    generator,
		Logger:     logger,
		Location:   time.UTC,
	})

	api := &fakeSender{}
	tb := &testBot{
		bot:    New(api, users, p, generator, logger),
		api:    api,
		users:  users,
		policy: p,
	}

	tb.send(t, adminID, "/start")
	return tb
}

func (tb *testBot) send(t *testing.T, from int64, text string) sentMessage {
	t.Helper()
	tb.nextID++
	tb.bot.HandleUpdate(context.Background(), telego.Update{
		UpdateID: tb.nextID,
		Message: &telego.Message{
			MessageID: tb.nextID,
			From:      &telego.User{ID: from, FirstName: "Тест", Username: "tester"},
			Chat:      telego.Chat{ID: from, Type: telego.ChatTypePrivate},
			Text:      text,
		},
	})
	return tb.api.last(t, from)
}

func (tb *testBot) press(t *testing.T, from int64, data string) string {
	t.Helper()
	tb.nextID++
	tb.bot.HandleUpdate(context.Background(), telego.Update{
		UpdateID: tb.nextID,
		CallbackQuery: &telego.CallbackQuery{
			ID:   "cb",
			From: telego.User{ID: from},
			Data: data,
		},
	})
	return tb.api.lastAnswer()
}

func (tb *testBot) addEditor(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := tb.users.Register(ctx, usersvc.RegisterInput{TelegramID: editorID, FullName: "Анна Редактор"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tb.users.Approve(ctx, editorID, entity.RoleEditor, adminID); err != nil {
		t.Fatal(err)
	}
}

func (tb *testBot) onlyPost(t *testing.T, status entity.PostStatus) entity.Post {
	t.Helper()
	posts, err := tb.policy.ListByStatus(context.Background(), status, 10)
	if err != nil || len(posts) != 1 {
		t.Fatalf("posts in %s = %v, err = %v", status, posts, err)
	}
	return posts[0]
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in, name, raw string
	}{
		{"/help", "help", ""},
		{"/Approve abc", "approve", "abc"},
		{"/new@pool_bot Заголовок\nТекст", "new", "Заголовок\nТекст"},
		{"/reject id  причина с пробелами ", "reject", "id  причина с пробелами"},
	}
	for _, tt := range tests {
		name, raw := splitCommand(tt.in)
		if name != tt.name || raw != tt.raw {
			t.Errorf("splitCommand(%q) = %q, %q", tt.in, name, raw)
		}
	}
}

func TestMinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"help", "help", 0},
		{"hlep", "help", 2},
		{"sheduled", "scheduled", 1},
		{"пост", "пусть", 2},
	}
	for _, tt := range tests {
		if got := minDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("minDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestUnknownCommandSuggestions(t *testing.T) {
	tb := newTestBot(t)

	msg := tb.send(t, adminID, "/sheduled")
	if !strings.Contains(msg.text, "/scheduled") {
		t.Errorf("reply = %q", msg.text)
	}

	msg = tb.send(t, adminID, "/"+strings.Repeat("z", 19))
	if !strings.Contains(msg.text, "/help") {
		t.Errorf("reply = %q", msg.text)
	}
}

func TestAccessControl(t *testing.T) {
	tb := newTestBot(t)

	if msg := tb.send(t, 555, "/drafts"); !strings.Contains(msg.text, "/register") {
		t.Errorf("stranger reply = %q", msg.text)
	}

	tb.addEditor(t)
	if msg := tb.send(t, editorID, "/approve x"); !strings.Contains(msg.text, "Недостаточно прав") {
		t.Errorf("editor approve reply = %q", msg.text)
	}

	help := tb.send(t, editorID, "/help").text
	if !strings.Contains(help, "/new") || strings.Contains(help, "/approve_user") {
		t.Errorf("editor help = %q", help)
	}
	if help := tb.send(t, adminID, "/help").text; !strings.Contains(help, "/approve_user") {
		t.Errorf("admin help = %q", help)
	}
}

func TestRegistrationDialog(t *testing.T) {
	tb := newTestBot(t)
	const applicant = 777

	if msg := tb.send(t, applicant, "/start"); !strings.Contains(msg.text, "/register") {
		t.Errorf("start reply = %q", msg.text)
	}
	tb.send(t, applicant, "/register")
	if msg := tb.send(t, applicant, "Ян"); !strings.Contains(msg.text, "короткое") {
		t.Errorf("short name reply = %q", msg.text)
	}
	tb.send(t, applicant, "Мария Иванова")
	if msg := tb.send(t, applicant, "SMM-менеджер"); !strings.HasPrefix(msg.text, "✅") {
		t.Errorf("final reply = %q", msg.text)
	}

	notice := tb.api.last(t, adminID)
	if !strings.Contains(notice.text, "Мария Иванова") || notice.markup == nil {
		t.Fatalf("admin notice = %+v", notice)
	}
	approve := notice.markup.InlineKeyboard[0][0].CallbackData
	if approve != "uapprove:777" {
		t.Errorf("callback data = %q", approve)
	}

	if msg := tb.send(t, applicant, "/drafts"); !strings.Contains(msg.text, "рассмотрении") {
		t.Errorf("pending reply = %q", msg.text)
	}

	if answer := tb.press(t, applicant, approve); answer != "Нет доступа" {
		t.Errorf("self approve answer = %q", answer)
	}
	if answer := tb.press(t, adminID, approve); answer != "Одобрено" {
		t.Errorf("approve answer = %q", answer)
	}

	user, err := tb.users.Get(context.Background(), applicant)
	if err != nil || user.Status != userentity.StatusActive || user.Role != entity.RoleEditor {
		t.Errorf("user = %+v, err = %v", user, err)
	}
	if msg := tb.api.last(t, applicant); !strings.Contains(msg.text, "одобрен") {
		t.Errorf("applicant notice = %q", msg.text)
	}
}

func TestPostWorkflow(t *testing.T) {
	tb := newTestBot(t)
	tb.addEditor(t)

	if msg := tb.send(t, editorID, "/new только заголовок"); !strings.Contains(msg.text, "Использование") {
		t.Errorf("usage reply = %q", msg.text)
	}

	tb.send(t, editorID, "/new Бассейн <для> дачи\nКомпозитная чаша 6x3 м")
	draft := tb.onlyPost(t, entity.PostStatusDraft)
	if draft.Title != "Бассейн <для> дачи" || len(draft.Platforms) != 1 || draft.CreatedBy != "tg:200" {
		t.Errorf("draft = %+v", draft)
	}
	if msg := tb.send(t, editorID, "/drafts"); !strings.Contains(msg.text, "&lt;для&gt;") {
		t.Errorf("drafts reply is not escaped: %q", msg.text)
	}

	tb.send(t, editorID, "/submit "+draft.ID)
	review := tb.api.last(t, adminID)
	if review.markup == nil || review.markup.InlineKeyboard[0][0].CallbackData != "papprove:"+draft.ID {
		t.Fatalf("review notice = %+v", review)
	}

	if answer := tb.press(t, adminID, "papprove:"+draft.ID); answer != "Одобрено" {
		t.Errorf("approve answer = %q", answer)
	}
	if answer := tb.press(t, adminID, "papprove:"+draft.ID); answer != errorText(entity.ErrInvalidTransition) {
		t.Errorf("second approve answer = %q", answer)
	}

	msg := tb.send(t, adminID, "/publish "+draft.ID)
	if !strings.Contains(msg.text, "Опубликовано") || !strings.Contains(msg.text, "https://t.me/pool/1") {
		t.Errorf("publish reply = %q", msg.text)
	}
	tb.onlyPost(t, entity.PostStatusPublished)

	if msg := tb.send(t, adminID, "/post "+draft.ID); !strings.Contains(msg.text, "Публикации") {
		t.Errorf("post card = %q", msg.text)
	}
}

func TestScheduleWithSlots(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	admin, err := tb.users.Get(ctx, adminID)
	if err != nil {
		t.Fatal(err)
	}

	post, err := tb.policy.CreatePost(ctx, admin.Actor(), policy.CreatePostInput{
		Title: "Акция", Content: "Скидка 10%", Platforms: []string{entity.PlatformTelegram}, Submit: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	tb.send(t, adminID, "/approve "+post.ID)

	if msg := tb.send(t, adminID, "/schedule "+post.ID); !strings.Contains(msg.text, "Нет активных слотов") {
		t.Errorf("no slots reply = %q", msg.text)
	}

	if _, err := tb.policy.CreateSlot(ctx, admin.Actor(), service.SlotInput{DayOfWeek: 2, TimeOfDay: "10:00"}); err != nil {
		t.Fatal(err)
	}
	msg := tb.send(t, adminID, "/schedule "+post.ID)
	if msg.markup == nil || len(msg.markup.InlineKeyboard) != suggestedSlots {
		t.Fatalf("slot suggestions = %+v", msg)
	}
	data := msg.markup.InlineKeyboard[0][0].CallbackData
	if !strings.HasPrefix(data, "sched:"+post.ID+":") {
		t.Fatalf("callback data = %q", data)
	}

	if answer := tb.press(t, adminID, data); answer != "Запланировано" {
		t.Errorf("schedule answer = %q", answer)
	}
	scheduled := tb.onlyPost(t, entity.PostStatusScheduled)
	if scheduled.ScheduledAt == nil || scheduled.ScheduledAt.UTC().Weekday() != time.Wednesday {
		t.Errorf("scheduled = %+v", scheduled)
	}

	if msg := tb.send(t, adminID, "/schedule "+post.ID+" 2001-01-01 10:00"); !strings.Contains(msg.text, "в будущем") {
		t.Errorf("past reply = %q", msg.text)
	}
	if msg := tb.send(t, adminID, "/schedule "+post.ID+" завтра"); !strings.Contains(msg.text, "формат") {
		t.Errorf("bad time reply = %q", msg.text)
	}

	tb.send(t, adminID, "/unschedule "+post.ID)
	tb.onlyPost(t, entity.PostStatusApproved)
}

func TestAIFallback(t *testing.T) {
	tb := newTestBot(t)

	if msg := tb.send(t, adminID, "/ai unknown"); !strings.Contains(msg.text, "Категории") {
		t.Errorf("usage reply = %q", msg.text)
	}

	msg := tb.send(t, adminID, "/ai tip зимняя консервация")
	if !strings.Contains(msg.text, "шаблон") {
		t.Errorf("ai reply = %q", msg.text)
	}
	draft := tb.onlyPost(t, entity.PostStatusDraft)
	if draft.Category != entity.CategoryTip || draft.AIGenerated {
		t.Errorf("draft = %+v", draft)
	}

	if msg := tb.send(t, adminID, "/ai_improve текст"); !strings.Contains(msg.text, "ИИ не настроен") {
		t.Errorf("improve reply = %q", msg.text)
	}
	if msg := tb.send(t, adminID, "/tips 2"); strings.Count(msg.text, "</b> ") != 2 {
		t.Errorf("tips reply = %q", msg.text)
	}
}

func TestBlockUser(t *testing.T) {
	tb := newTestBot(t)
	tb.addEditor(t)

	if msg := tb.send(t, adminID, "/block_user 100"); !strings.Contains(msg.text, "самого себя") {
		t.Errorf("self block reply = %q", msg.text)
	}
	tb.send(t, adminID, "/block_user 200")
	if msg := tb.send(t, editorID, "/drafts"); !strings.Contains(msg.text, "заблокирован") {
		t.Errorf("blocked reply = %q", msg.text)
	}
	if msg := tb.send(t, adminID, "/users"); !strings.Contains(msg.text, "🚫") {
		t.Errorf("users reply = %q", msg.text)
	}
}
