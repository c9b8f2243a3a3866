package repository

import (
	"context"
	"time"

	"healthhive/internal/domain/user/model"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// UserRepository 接口定义
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetList(ctx context.Context, offset, limit int) ([]*model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	UpdateRole(ctx context.Context, id string, role model.Role, at time.Time) error
	// FindAuthors 批量读取作者公开信息，缺失的 ID 不出现在结果中
	FindAuthors(ctx context.Context, ids []string) (map[string]model.AuthorSummary, error)
}

// uniqueIDs 去重并去掉空 ID
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// New 按已连接的存储选择实现，mdb 非空时使用 MongoDB
func New(db *gorm.DB, mdb *mongo.Database) UserRepository {
	if mdb != nil {
		return NewMongoUserRepository(mdb)
	}
	return NewUserRepository(db)
}
