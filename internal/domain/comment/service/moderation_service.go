package service

import (
	"context"
	"strings"

	"healthhive/internal/domain/comment/model"
	"healthhive/internal/domain/comment/repository"
	"healthhive/pkg/apperr"
	"healthhive/pkg/metrics"
	"healthhive/pkg/utils"

	"go.uber.org/zap"
)

// ModerationService 举报与状态管理
type ModerationService interface {
	Report(ctx context.Context, id, user, reason string) (*model.Comment, error)
	SetStatus(ctx context.Context, id string, status model.Status) (*model.Comment, error)
	ClearReports(ctx context.Context, id string) (*model.Comment, error)
	ListReported(ctx context.Context, minReports, page, limit int) (*CommentPage, error)
}

type moderationService struct {
	repo    repository.CommentRepository
	authors AuthorDirectory
	log     *zap.Logger
	metrics *metrics.MetricsCollector
	opts    Options
}

// NewModerationService 创建审核服务
func NewModerationService(repo repository.CommentRepository, authors AuthorDirectory, log *zap.Logger, m *metrics.MetricsCollector, opts Options) ModerationService {
	return &moderationService{repo: repo, authors: authors, log: log, metrics: m, opts: opts.withDefaults()}
}

// Report 追加举报记录并计数；不会自动隐藏评论
func (s *moderationService) Report(ctx context.Context, id, user, reason string) (*model.Comment, error) {
	if strings.TrimSpace(user) == "" {
		return nil, apperr.Validation("user is required")
	}
	reason, err := model.NormalizeReason(reason)
	if err != nil {
		return nil, err
	}

	report := model.Report{User: user, Reason: reason, ReportedAt: s.opts.Now()}
	c, err := s.repo.AddReport(ctx, id, report, s.opts.DedupeReports)
	if err != nil {
		return nil, err
	}

	s.metrics.CommentReported()
	s.log.Info("comment reported",
		zap.String("comment_id", id),
		zap.String("user_id", user),
		zap.Int("report_count", c.ReportCount),
	)
	return c, nil
}

// SetStatus 任意状态之间均可切换，正文与历史保持不变
func (s *moderationService) SetStatus(ctx context.Context, id string, status model.Status) (*model.Comment, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unsupported status %q", status)
	}

	c, err := s.repo.SetStatus(ctx, id, status, s.opts.Now())
	if err != nil {
		return nil, err
	}

	s.metrics.CommentStatusChanged(string(status))
	s.log.Info("comment status changed", zap.String("comment_id", id), zap.String("status", string(status)))
	return c, nil
}

// ClearReports 复核后清空举报
func (s *moderationService) ClearReports(ctx context.Context, id string) (*model.Comment, error) {
	c, err := s.repo.ClearReports(ctx, id, s.opts.Now())
	if err != nil {
		return nil, err
	}
	s.log.Info("comment reports cleared", zap.String("comment_id", id))
	return c, nil
}

// ListReported 审核队列：未删除且举报数 >= minReports，举报最多的在前
func (s *moderationService) ListReported(ctx context.Context, minReports, page, limit int) (*CommentPage, error) {
	if err := validatePage(page, limit, s.opts.MaxPageSize); err != nil {
		return nil, err
	}
	if minReports < 1 {
		minReports = 1
	}

	filter := model.Filter{
		Statuses:   []model.Status{model.StatusActive, model.StatusHidden},
		MinReports: minReports,
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	comments, err := s.repo.FindMany(ctx, filter, model.SortMostReported, utils.Offset(page, limit), limit)
	if err != nil {
		return nil, err
	}
	if err := joinAuthors(ctx, s.authors, comments); err != nil {
		return nil, err
	}
	return &CommentPage{Comments: comments, Pagination: utils.NewPageInfo(page, limit, total)}, nil
}
