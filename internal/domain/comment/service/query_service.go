package service

import (
	"context"

	"healthhive/internal/domain/comment/model"
	"healthhive/internal/domain/comment/repository"
	"healthhive/pkg/utils"

	"go.uber.org/zap"
)

// QueryService 评论列表查询
type QueryService interface {
	ListComments(ctx context.Context, postID string, page, limit int, sort string) (*CommentPage, error)
	ListReplies(ctx context.Context, parentID string, page, limit int) (*CommentPage, error)
}

type queryService struct {
	repo    repository.CommentRepository
	authors AuthorDirectory
	log     *zap.Logger
	opts    Options
}

// NewQueryService 创建查询服务
func NewQueryService(repo repository.CommentRepository, authors AuthorDirectory, log *zap.Logger, opts Options) QueryService {
	return &queryService{repo: repo, authors: authors, log: log, opts: opts.withDefaults()}
}

// ListComments 帖子下 active 状态的一级评论
func (s *queryService) ListComments(ctx context.Context, postID string, page, limit int, sort string) (*CommentPage, error) {
	order, err := model.ParseSort(sort)
	if err != nil {
		return nil, err
	}
	filter := model.Filter{Post: postID, TopLevel: true, Statuses: []model.Status{model.StatusActive}}
	return s.list(ctx, filter, order, page, limit)
}

// ListReplies 评论的直接回复，按时间正序
func (s *queryService) ListReplies(ctx context.Context, parentID string, page, limit int) (*CommentPage, error) {
	filter := model.Filter{Parent: parentID, Statuses: []model.Status{model.StatusActive}}
	return s.list(ctx, filter, model.SortOldest, page, limit)
}

// list 计数与分页是两次独立读取，不要求事务一致
func (s *queryService) list(ctx context.Context, filter model.Filter, order model.SortOrder, page, limit int) (*CommentPage, error) {
	if err := validatePage(page, limit, s.opts.MaxPageSize); err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	comments, err := s.repo.FindMany(ctx, filter, order, utils.Offset(page, limit), limit)
	if err != nil {
		return nil, err
	}
	if err := joinAuthors(ctx, s.authors, comments); err != nil {
		return nil, err
	}

	return &CommentPage{Comments: comments, Pagination: utils.NewPageInfo(page, limit, total)}, nil
}

// joinAuthors 填充作者公开信息，作者不存在时保持为空
func joinAuthors(ctx context.Context, authors AuthorDirectory, comments []*model.Comment) error {
	if authors == nil || len(comments) == 0 {
		return nil
	}
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.Author)
	}
	found, err := authors.FindAuthors(ctx, ids)
	if err != nil {
		return err
	}
	for _, c := range comments {
		if a, ok := found[c.Author]; ok {
			c.AuthorInfo = &a
		}
	}
	return nil
}
