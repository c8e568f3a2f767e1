package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vadim/poolsmm/internal/database"
	postentity "github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/user/dao"
	"github.com/vadim/poolsmm/internal/domain/user/entity"
)

const adminID = 1001

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := dao.NewUserSQLite(context.Background(), db)
	if err != nil {
		t.Fatalf("NewUserSQLite: %v", err)
	}
	return New(repo, adminID)
}

func TestStart(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	admin, err := s.Start(ctx, adminID, "boss", "Иван Петров")
	if err != nil {
		t.Fatal(err)
	}
	if !admin.IsAdmin() || !admin.CanPublish() || admin.ApprovedAt == nil {
		t.Errorf("admin = %+v", admin)
	}

	again, err := s.Start(ctx, adminID, "boss2", "")
	if err != nil || again.Username != "boss2" || again.FullName != "Иван Петров" {
		t.Errorf("again = %+v, err = %v", again, err)
	}

	if _, err := s.Start(ctx, 42, "stranger", "Кто-то"); !errors.Is(err, entity.ErrUserNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestRegistrationFlow(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, RegisterInput{TelegramID: 7, FullName: "Ян"}); !errors.Is(err, entity.ErrNameTooShort) {
		t.Errorf("err = %v", err)
	}

	u, err := s.Register(ctx, RegisterInput{TelegramID: 7, Username: "anna", FullName: " Анна Смирнова ", Position: "Маркетолог"})
	if err != nil {
		t.Fatal(err)
	}
	if u.Status != entity.StatusPending || u.FullName != "Анна Смирнова" || u.CanView() {
		t.Errorf("user = %+v", u)
	}
	if u.Actor().Role != "" {
		t.Errorf("pending actor role = %q", u.Actor().Role)
	}

	pending, err := s.ListPending(ctx)
	if err != nil || len(pending) != 1 || pending[0].Position != "Маркетолог" {
		t.Fatalf("pending = %+v, err = %v", pending, err)
	}

	if _, err := s.Approve(ctx, 7, "owner", adminID); !errors.Is(err, entity.ErrInvalidRole) {
		t.Errorf("err = %v", err)
	}
	approved, err := s.Approve(ctx, 7, "", adminID)
	if err != nil {
		t.Fatal(err)
	}
	if approved.Role != postentity.RoleEditor || !approved.CanCreatePosts() || approved.CanPublish() {
		t.Errorf("approved = %+v", approved)
	}
	if a := approved.Actor(); a.ID != "tg:7" || a.Role != postentity.RoleEditor {
		t.Errorf("actor = %+v", a)
	}

	stored, err := s.Get(ctx, 7)
	if err != nil || stored.ApprovedBy != adminID || stored.ApprovedAt == nil {
		t.Errorf("stored = %+v, err = %v", stored, err)
	}

	if _, err := s.Register(ctx, RegisterInput{TelegramID: 7, FullName: "Анна Смирнова"}); !errors.Is(err, entity.ErrAlreadyActive) {
		t.Errorf("err = %v", err)
	}

	blocked, err := s.Block(ctx, 7)
	if err != nil || blocked.CanView() || blocked.CanCreatePosts() {
		t.Errorf("blocked = %+v, err = %v", blocked, err)
	}
	if _, err := s.Register(ctx, RegisterInput{TelegramID: 7, FullName: "Анна Смирнова"}); !errors.Is(err, entity.ErrBlocked) {
		t.Errorf("err = %v", err)
	}
}

func TestDecline(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, RegisterInput{TelegramID: 9, FullName: "Пётр Иванов"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Decline(ctx, 9); err != nil {
		t.Fatal(err)
	}
	if err := s.Decline(ctx, 9); !errors.Is(err, entity.ErrUserNotFound) {
		t.Errorf("err = %v", err)
	}
	users, err := s.List(ctx)
	if err != nil || len(users) != 0 {
		t.Errorf("users = %v, err = %v", users, err)
	}
}
