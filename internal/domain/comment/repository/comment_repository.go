package repository

import (
	"context"
	"time"

	"healthhive/internal/domain/comment/model"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// CommentRepository 评论存储适配器
// 每个写操作对单条评论是原子的，返回写入后的最新状态；
// 目标不存在时返回 apperr.ErrNotFound，驱动失败返回 apperr.ErrStoreUnavailable
type CommentRepository interface {
	Insert(ctx context.Context, c *model.Comment) error
	FindByID(ctx context.Context, id string) (*model.Comment, error)
	FindMany(ctx context.Context, filter model.Filter, sort model.SortOrder, skip, limit int) ([]*model.Comment, error)
	Count(ctx context.Context, filter model.Filter) (int64, error)

	// UpdateText 仅当正文不同时追加历史并替换，第二个返回值表示是否发生修改
	UpdateText(ctx context.Context, id, newText string, editedAt time.Time) (*model.Comment, bool, error)
	SetReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, error)
	// RemoveReaction 仅当用户当前反应为 kind 时移除，第二个返回值表示是否移除
	RemoveReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, bool, error)

	// AddReport dedupe 为 true 且该用户已举报过时返回 apperr.ErrConflict
	AddReport(ctx context.Context, id string, report model.Report, dedupe bool) (*model.Comment, error)
	ClearReports(ctx context.Context, id string, at time.Time) (*model.Comment, error)
	SetStatus(ctx context.Context, id string, status model.Status, at time.Time) (*model.Comment, error)

	PostExists(ctx context.Context, postID string) (bool, error)
}

func statusStrings(statuses []model.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// New 按已连接的存储选择实现，mdb 非空时使用 MongoDB
func New(db *gorm.DB, mdb *mongo.Database) CommentRepository {
	if mdb != nil {
		return NewMongoCommentRepository(mdb)
	}
	return NewGormCommentRepository(db)
}
