package service

import (
	"context"
	"strings"
	"time"

	postentity "github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/user/dao"
	"github.com/vadim/poolsmm/internal/domain/user/entity"
)

// Service handles bot user registration and access
type Service struct {
	users   dao.UserRepository
	adminID int64
	now     func() time.Time
}

// New creates a user service. adminID is auto-registered as an active admin.
func New(users dao.UserRepository, adminID int64) *Service {
	return &Service{users: users, adminID: adminID, now: time.Now}
}

// AdminID returns the bootstrap administrator id
func (s *Service) AdminID() int64 {
	return s.adminID
}

// Get retrieves a user
func (s *Service) Get(ctx context.Context, telegramID int64) (*entity.User, error) {
	u, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, entity.ErrUserNotFound
	}
	return u, nil
}

// Start resolves the user behind a /start. The bootstrap admin is created
// on first contact; other unknown users get ErrUserNotFound and must register.
func (s *Service) Start(ctx context.Context, telegramID int64, username, fullName string) (*entity.User, error) {
	u, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		if u.Username != username && username != "" {
			u.Username = username
			if err := s.users.Upsert(ctx, u); err != nil {
				return nil, err
			}
		}
		return u, nil
	}

	if s.adminID == 0 || telegramID != s.adminID {
		return nil, entity.ErrUserNotFound
	}

	now := s.now()
	u = &entity.User{
		TelegramID: telegramID,
		Username:   username,
		FullName:   strings.TrimSpace(fullName),
		Role:       postentity.RoleAdmin,
		Status:     entity.StatusActive,
		CreatedAt:  now,
		ApprovedAt: &now,
	}
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RegisterInput represents a completed registration dialog
type RegisterInput struct {
	TelegramID int64
	Username   string
	FullName   string
	Position   string
}

// Register stores a pending access request
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	if len([]rune(fullName)) < 3 {
		return nil, entity.ErrNameTooShort
	}

	existing, err := s.users.GetByTelegramID(ctx, in.TelegramID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.Status {
		case entity.StatusActive:
			return nil, entity.ErrAlreadyActive
		case entity.StatusBlocked:
			return nil, entity.ErrBlocked
		}
	}

	u := &entity.User{
		TelegramID: in.TelegramID,
		Username:   in.Username,
		FullName:   fullName,
		Position:   strings.TrimSpace(in.Position),
		Role:       postentity.RoleViewer,
		Status:     entity.StatusPending,
		CreatedAt:  s.now(),
	}
	if existing != nil {
		u.CreatedAt = existing.CreatedAt
	}
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Approve activates a user with a role, editor when role is empty
func (s *Service) Approve(ctx context.Context, telegramID int64, role postentity.Role, approvedBy int64) (*entity.User, error) {
	if role == "" {
		role = postentity.RoleEditor
	}
	if !role.IsValid() {
		return nil, entity.ErrInvalidRole
	}

	u, err := s.Get(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u.Role = role
	u.Status = entity.StatusActive
	u.ApprovedAt = &now
	u.ApprovedBy = approvedBy
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Block revokes access of a user
func (s *Service) Block(ctx context.Context, telegramID int64) (*entity.User, error) {
	u, err := s.Get(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	u.Status = entity.StatusBlocked
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Decline deletes a pending access request
func (s *Service) Decline(ctx context.Context, telegramID int64) error {
	return s.users.Delete(ctx, telegramID)
}

// List returns all users, newest first
func (s *Service) List(ctx context.Context) ([]entity.User, error) {
	return s.users.List(ctx, nil)
}

// ListPending returns users waiting for approval
func (s *Service) ListPending(ctx context.Context) ([]entity.User, error) {
	status := entity.StatusPending
	return s.users.List(ctx, &status)
}
