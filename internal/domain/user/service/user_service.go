package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"healthhive/internal/domain/user/model"
	"healthhive/internal/domain/user/repository"
	"healthhive/pkg/apperr"

	"go.uber.org/zap"
)

// UserService 用户服务接口
type UserService interface {
	CreateProfile(ctx context.Context, id, email string, profile model.Profile) (*model.User, error)
	GetUsers(ctx context.Context, page, limit int) ([]*model.User, int64, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetAuthor(ctx context.Context, id string) (*model.AuthorSummary, error)
	UpdateProfile(ctx context.Context, id string, profile model.Profile) (*model.User, error)
	SetRole(ctx context.Context, id string, role model.Role) (*model.User, error)
}

// userService 实现
type userService struct {
	repo repository.UserRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, log *zap.Logger) UserService {
	return &userService{repo: repo, log: log, now: time.Now}
}

// CreateProfile 首次登录后建立资料，ID 来自已验证的令牌
func (s *userService) CreateProfile(ctx context.Context, id, email string, profile model.Profile) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("user id is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("invalid email %q", email)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{ID: id, Email: email, Role: model.RoleUser, CreatedAt: now}
	user.Apply(profile, now)

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user profile created", zap.String("user_id", id))
	return user, nil
}

// GetUsers 获取用户列表（分页）
func (s *userService) GetUsers(ctx context.Context, page, limit int) ([]*model.User, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.repo.GetList(ctx, offset, limit)
}

// GetUser 获取单个用户
func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAuthor 公开资料
func (s *userService) GetAuthor(ctx context.Context, id string) (*model.AuthorSummary, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

// UpdateProfile 更新资料，邮箱与角色不在此修改
func (s *userService) UpdateProfile(ctx context.Context, id string, profile model.Profile) (*model.User, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Apply(profile, s.now())
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetRole 管理员调整角色
func (s *userService) SetRole(ctx context.Context, id string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperr.Validation("unsupported role %q", role)
	}
	if err := s.repo.UpdateRole(ctx, id, role, s.now()); err != nil {
		return nil, err
	}
	s.log.Info("user role changed", zap.String("user_id", id), zap.String("role", string(role)))
	return s.repo.GetByID(ctx, id)
}
