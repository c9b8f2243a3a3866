package service

import (
	"context"
	"errors"
	"strings"

	"healthhive/internal/domain/comment/model"
	"healthhive/internal/domain/comment/repository"
	"healthhive/pkg/apperr"
	"healthhive/pkg/metrics"

	"go.uber.org/zap"
)

// CreateInput 创建评论参数
type CreateInput struct {
	Post          string
	Author        string
	Text          string
	ParentComment *string
	IsAnonymous   bool
}

// CommentService 评论实体管理
type CommentService interface {
	Create(ctx context.Context, in CreateInput) (*model.Comment, error)
	Get(ctx context.Context, id string) (*model.Comment, error)
	EditText(ctx context.Context, id, newText string) (*model.Comment, error)
	React(ctx context.Context, id, user string, kind model.ReactionKind) (*model.Comment, error)
	Unreact(ctx context.Context, id, user string, kind model.ReactionKind) (*model.Comment, error)
}

type commentService struct {
	repo    repository.CommentRepository
	log     *zap.Logger
	metrics *metrics.MetricsCollector
	opts    Options
}

// NewCommentService 创建评论服务
func NewCommentService(repo repository.CommentRepository, log *zap.Logger, m *metrics.MetricsCollector, opts Options) CommentService {
	return &commentService{repo: repo, log: log, metrics: m, opts: opts.withDefaults()}
}

func (s *commentService) Create(ctx context.Context, in CreateInput) (*model.Comment, error) {
	now := s.opts.Now()
	c, err := model.NewComment(s.opts.NewID(), in.Post, in.Author, in.Text, in.ParentComment, in.IsAnonymous, now)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.PostExists(ctx, c.Post)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("post", c.Post)
	}

	// 父评论必须已存在于同一帖子，parentComment 不可变，因此不会成环
	if c.ParentComment != nil {
		parent, err := s.repo.FindByID(ctx, *c.ParentComment)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.Validation("parent comment %s does not exist", *c.ParentComment)
			}
			return nil, err
		}
		if parent.Post != c.Post {
			return nil, apperr.Validation("parent comment belongs to another post")
		}
		if parent.Status == model.StatusDeleted {
			return nil, apperr.Validation("cannot reply to a deleted comment")
		}
	}

	if err := s.repo.Insert(ctx, c); err != nil {
		s.log.Error("insert comment failed", zap.String("post", c.Post), zap.Error(err))
		return nil, err
	}
	s.metrics.CommentCreated()
	return c, nil
}

func (s *commentService) Get(ctx context.Context, id string) (*model.Comment, error) {
	return s.repo.FindByID(ctx, id)
}

// EditText 正文未变化时原样返回，不写历史
func (s *commentService) EditText(ctx context.Context, id, newText string) (*model.Comment, error) {
	text, err := model.NormalizeText(newText)
	if err != nil {
		return nil, err
	}

	c, edited, err := s.repo.UpdateText(ctx, id, text, s.opts.Now())
	if err != nil {
		return nil, err
	}
	if edited {
		s.metrics.CommentEdited()
	}
	return c, nil
}

func validateReaction(user string, kind model.ReactionKind) error {
	if strings.TrimSpace(user) == "" {
		return apperr.Validation("user is required")
	}
	if !kind.Valid() {
		return apperr.Validation("unsupported reaction %q", kind)
	}
	return nil
}

// React 设置反应，重复调用幂等，会替换相反的反应
func (s *commentService) React(ctx context.Context, id, user string, kind model.ReactionKind) (*model.Comment, error) {
	if err := validateReaction(user, kind); err != nil {
		return nil, err
	}
	c, err := s.repo.SetReaction(ctx, id, user, kind, s.opts.Now())
	if err != nil {
		return nil, err
	}
	s.metrics.CommentReaction(string(kind), "set")
	return c, nil
}

// Unreact 仅移除与 kind 相同的反应，否则不做修改
func (s *commentService) Unreact(ctx context.Context, id, user string, kind model.ReactionKind) (*model.Comment, error) {
	if err := validateReaction(user, kind); err != nil {
		return nil, err
	}
	c, removed, err := s.repo.RemoveReaction(ctx, id, user, kind, s.opts.Now())
	if err != nil {
		return nil, err
	}
	if removed {
		s.metrics.CommentReaction(string(kind), "remove")
	}
	return c, nil
}
