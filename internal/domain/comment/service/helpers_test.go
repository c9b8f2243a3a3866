package service

import (
	"context"
	"fmt"
	"time"

	"healthhive/internal/domain/comment/model"
	"healthhive/internal/domain/comment/repository"
	userModel "healthhive/internal/domain/user/model"
	userRepo "healthhive/internal/domain/user/repository"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

// clock 每次调用前进一秒，保证创建时间严格递增
type clock struct{ now time.Time }

func (c *clock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	repo       *repository.MemoryCommentRepository
	users      *userRepo.MemoryUserRepository
	comments   CommentService
	queries    QueryService
	moderation ModerationService
	clock      *clock
}

func newFixture(dedupe bool) *fixture {
	repo := repository.NewMemoryCommentRepository()
	repo.AddPost("p1")
	repo.AddPost("p2")
	users := userRepo.NewMemoryUserRepository()

	clk := &clock{now: t0}
	seq := 0
	opts := Options{
		MaxPageSize:   50,
		DedupeReports: dedupe,
		Now:           clk.Now,
		NewID: func() string {
			seq++
			return fmt.Sprintf("c%03d", seq)
		},
	}
	log := zap.NewNop()
	return &fixture{
		repo:       repo,
		users:      users,
		comments:   NewCommentService(repo, log, nil, opts),
		queries:    NewQueryService(repo, users, log, opts),
		moderation: NewModerationService(repo, users, log, nil, opts),
		clock:      clk,
	}
}

func (f *fixture) addUser(id, name string, role userModel.Role) {
	_ = f.users.Create(context.Background(), &userModel.User{
		ID:           id,
		FullName:     name,
		Email:        id + "@example.com",
		Role:         role,
		ProfileImage: "https://img/" + id,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	})
}

// MockCommentRepository is a mock of CommentRepository
type MockCommentRepository struct {
	mock.Mock
}

func commentOrNil(args mock.Arguments) *model.Comment {
	if c, ok := args.Get(0).(*model.Comment); ok {
		return c
	}
	return nil
}

func (m *MockCommentRepository) Insert(ctx context.Context, c *model.Comment) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCommentRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	args := m.Called(ctx, id)
	return commentOrNil(args), args.Error(1)
}

func (m *MockCommentRepository) FindMany(ctx context.Context, filter model.Filter, sort model.SortOrder, skip, limit int) ([]*model.Comment, error) {
	args := m.Called(ctx, filter, sort, skip, limit)
	list, _ := args.Get(0).([]*model.Comment)
	return list, args.Error(1)
}

func (m *MockCommentRepository) Count(ctx context.Context, filter model.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommentRepository) UpdateText(ctx context.Context, id, newText string, editedAt time.Time) (*model.Comment, bool, error) {
	args := m.Called(ctx, id, newText, editedAt)
	return commentOrNil(args), args.Bool(1), args.Error(2)
}

func (m *MockCommentRepository) SetReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, error) {
	args := m.Called(ctx, id, user, kind, at)
	return commentOrNil(args), args.Error(1)
}

func (m *MockCommentRepository) RemoveReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, bool, error) {
	args := m.Called(ctx, id, user, kind, at)
	return commentOrNil(args), args.Bool(1), args.Error(2)
}

func (m *MockCommentRepository) AddReport(ctx context.Context, id string, report model.Report, dedupe bool) (*model.Comment, error) {
	args := m.Called(ctx, id, report, dedupe)
	return commentOrNil(args), args.Error(1)
}

func (m *MockCommentRepository) ClearReports(ctx context.Context, id string, at time.Time) (*model.Comment, error) {
	args := m.Called(ctx, id, at)
	return commentOrNil(args), args.Error(1)
}

func (m *MockCommentRepository) SetStatus(ctx context.Context, id string, status model.Status, at time.Time) (*model.Comment, error) {
	args := m.Called(ctx, id, status, at)
	return commentOrNil(args), args.Error(1)
}

func (m *MockCommentRepository) PostExists(ctx context.Context, postID string) (bool, error) {
	args := m.Called(ctx, postID)
	return args.Bool(0), args.Error(1)
}
