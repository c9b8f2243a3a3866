package repository

import (
	"context"
	"errors"
	"time"

	"healthhive/internal/domain/user/model"
	"healthhive/pkg/apperr"
	"healthhive/pkg/database"
	baseModel "healthhive/pkg/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// userRow users 表
type userRow struct {
	baseModel.BaseModel
	FullName           string   `gorm:"type:varchar(100);not null"`
	Email              string   `gorm:"type:varchar(255);uniqueIndex;not null"`
	Role               string   `gorm:"type:varchar(16);not null;default:user"`
	Age                int      `gorm:"not null;default:0"`
	Gender             string   `gorm:"type:varchar(16)"`
	MedicalConditions  []string `gorm:"type:jsonb;serializer:json"`
	ProfileImage       string   `gorm:"type:varchar(500)"`
	LanguagePreference string   `gorm:"type:varchar(8);not null;default:en"`
}

func (userRow) TableName() string { return "users" }

func toUserRow(u *model.User) *userRow {
	return &userRow{
		BaseModel:          baseModel.BaseModel{ID: u.ID, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt},
		FullName:           u.FullName,
		Email:              u.Email,
		Role:               string(u.Role),
		Age:                u.Age,
		Gender:             string(u.Gender),
		MedicalConditions:  u.MedicalConditions,
		ProfileImage:       u.ProfileImage,
		LanguagePreference: u.LanguagePreference,
	}
}

func (r *userRow) toModel() *model.User {
	conditions := r.MedicalConditions
	if conditions == nil {
		conditions = []string{}
	}
	return &model.User{
		ID:                 r.ID,
		FullName:           r.FullName,
		Email:              r.Email,
		Role:               model.Role(r.Role),
		Age:                r.Age,
		Gender:             model.Gender(r.Gender),
		MedicalConditions:  conditions,
		ProfileImage:       r.ProfileImage,
		LanguagePreference: r.LanguagePreference,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// userRepository PostgreSQL 实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建新的仓库实例
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(toUserRow(user)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("user %s or email %s already exists", user.ID, user.Email)
		}
		if database.IsInvalidInput(err) {
			return apperr.Validation("malformed user id %q", user.ID)
		}
		return apperr.Unavailable("create user", err)
	}
	return nil
}

// GetByID 根据ID获取用户
func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidInput(err) {
			return nil, apperr.NotFound("user", id)
		}
		return nil, apperr.Unavailable("get user", err)
	}
	return row.toModel(), nil
}

// GetList 获取用户列表（分页）
func (r *userRepository) GetList(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	var rows []userRow
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&userRow{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Unavailable("count users", err)
	}

	if err := db.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, apperr.Unavailable("list users", err)
	}

	users := make([]*model.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toModel())
	}
	return users, total, nil
}

// Update 更新资料字段
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	res := r.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", user.ID).
		Select("full_name", "age", "gender", "medical_conditions", "profile_image", "language_preference", "updated_at").
		UpdateColumns(toUserRow(user))
	if res.Error != nil && !database.IsInvalidInput(res.Error) {
		return apperr.Unavailable("update user", res.Error)
	}
	if res.Error != nil || res.RowsAffected == 0 {
		return apperr.NotFound("user", user.ID)
	}
	return nil
}

// UpdateRole 修改角色
func (r *userRepository) UpdateRole(ctx context.Context, id string, role model.Role, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"role":       string(role),
		"updated_at": at,
	})
	if res.Error != nil && !database.IsInvalidInput(res.Error) {
		return apperr.Unavailable("update user role", res.Error)
	}
	if res.Error != nil || res.RowsAffected == 0 {
		return apperr.NotFound("user", id)
	}
	return nil
}

// FindAuthors 批量读取作者公开信息
// 非 UUID 的 id 不可能存在于 users 表，提前剔除以免整批查询失败
func (r *userRepository) FindAuthors(ctx context.Context, ids []string) (map[string]model.AuthorSummary, error) {
	ids = validUUIDs(uniqueIDs(ids))
	out := make(map[string]model.AuthorSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []userRow
	err := r.db.WithContext(ctx).Select("id", "full_name", "profile_image", "role").Where("id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, apperr.Unavailable("find authors", err)
	}
	for i := range rows {
		u := rows[i].toModel()
		out[u.ID] = u.Summary()
	}
	return out, nil
}

func validUUIDs(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}
