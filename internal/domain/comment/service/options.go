package service

import (
	"context"
	"time"

	"healthhive/internal/domain/comment/model"
	userModel "healthhive/internal/domain/user/model"
	"healthhive/pkg/apperr"
	"healthhive/pkg/utils"

	"github.com/google/uuid"
)

// DefaultMaxPageSize 单页最大条数
const DefaultMaxPageSize = 100

// AuthorDirectory 批量查询作者公开信息
type AuthorDirectory interface {
	FindAuthors(ctx context.Context, ids []string) (map[string]userModel.AuthorSummary, error)
}

// Options 评论服务的可配置项
type Options struct {
	MaxPageSize   int
	DedupeReports bool // 同一用户重复举报返回 ErrConflict

	// 测试注入
	Now   func() time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = DefaultMaxPageSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
	return o
}

// CommentPage 分页结果
type CommentPage struct {
	Comments   []*model.Comment `json:"comments"`
	Pagination utils.PageInfo   `json:"pagination"`
}

func validatePage(page, limit, max int) error {
	if page < 1 {
		return apperr.Validation("page must be >= 1")
	}
	if limit < 1 {
		return apperr.Validation("limit must be >= 1")
	}
	if limit > max {
		return apperr.Validation("limit cannot exceed %d", max)
	}
	return nil
}
