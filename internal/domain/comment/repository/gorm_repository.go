package repository

import (
	"context"
	"errors"
	"time"

	"healthhive/internal/domain/comment/model"
	"healthhive/pkg/apperr"
	"healthhive/pkg/database"
	baseModel "healthhive/pkg/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// commentRow comments 表
// like_count / dislike_count 为反规范化计数，与 comment_reactions 在同一事务内维护
type commentRow struct {
	baseModel.BaseModel
	PostID       string  `gorm:"type:uuid;not null;index:idx_comments_post_created,priority:1"`
	AuthorID     string  `gorm:"type:uuid;not null;index"`
	ParentID     *string `gorm:"type:uuid;index:idx_comments_parent_created,priority:1"`
	Text         string  `gorm:"type:varchar(2000);not null"`
	IsAnonymous  bool    `gorm:"not null;default:false"`
	IsEdited     bool    `gorm:"not null;default:false"`
	Status       string  `gorm:"type:varchar(16);not null;default:active;index"`
	ReportCount  int     `gorm:"not null;default:0"`
	LikeCount    int     `gorm:"not null;default:0"`
	DislikeCount int     `gorm:"not null;default:0"`

	Reactions []reactionRow `gorm:"foreignKey:CommentID"`
	Edits     []editRow     `gorm:"foreignKey:CommentID"`
	Reports   []reportRow   `gorm:"foreignKey:CommentID"`
}

func (commentRow) TableName() string { return "comments" }

// reactionRow 每个 (comment, user) 最多一行，天然保证点赞点踩互斥
type reactionRow struct {
	CommentID string `gorm:"primaryKey;type:uuid"`
	UserID    string `gorm:"primaryKey;type:uuid"`
	Kind      string `gorm:"type:varchar(8);not null"`
	CreatedAt time.Time
}

func (reactionRow) TableName() string { return "comment_reactions" }

type editRow struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	CommentID    string `gorm:"type:uuid;not null;index"`
	PreviousText string `gorm:"type:varchar(2000);not null"`
	EditedAt     time.Time
}

func (editRow) TableName() string { return "comment_edits" }

type reportRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	CommentID  string `gorm:"type:uuid;not null;index"`
	UserID     string `gorm:"type:uuid;not null"`
	Reason     string `gorm:"type:varchar(500);not null"`
	ReportedAt time.Time
}

func (reportRow) TableName() string { return "comment_reports" }

func toRow(c *model.Comment) *commentRow {
	row := &commentRow{
		BaseModel:    baseModel.BaseModel{ID: c.ID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt},
		PostID:       c.Post,
		AuthorID:     c.Author,
		ParentID:     c.ParentComment,
		Text:         c.Text,
		IsAnonymous:  c.IsAnonymous,
		IsEdited:     c.IsEdited,
		Status:       string(c.Status),
		ReportCount:  c.ReportCount,
		LikeCount:    c.LikeCount(),
		DislikeCount: c.DislikeCount(),
	}
	for u, k := range c.Reactions {
		row.Reactions = append(row.Reactions, reactionRow{CommentID: c.ID, UserID: u, Kind: string(k), CreatedAt: c.CreatedAt})
	}
	for _, e := range c.EditHistory {
		row.Edits = append(row.Edits, editRow{CommentID: c.ID, PreviousText: e.PreviousText, EditedAt: e.EditedAt})
	}
	for _, r := range c.ReportedBy {
		row.Reports = append(row.Reports, reportRow{CommentID: c.ID, UserID: r.User, Reason: r.Reason, ReportedAt: r.ReportedAt})
	}
	return row
}

func (row *commentRow) toModel() *model.Comment {
	c := &model.Comment{
		ID:            row.ID,
		Post:          row.PostID,
		Author:        row.AuthorID,
		ParentComment: row.ParentID,
		Text:          row.Text,
		IsAnonymous:   row.IsAnonymous,
		Reactions:     make(model.Reactions, len(row.Reactions)),
		IsEdited:      row.IsEdited,
		EditHistory:   make([]model.EditRecord, 0, len(row.Edits)),
		Status:        model.Status(row.Status),
		ReportCount:   row.ReportCount,
		ReportedBy:    make([]model.Report, 0, len(row.Reports)),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	for _, r := range row.Reactions {
		c.Reactions[r.UserID] = model.ReactionKind(r.Kind)
	}
	for _, e := range row.Edits {
		c.EditHistory = append(c.EditHistory, model.EditRecord{PreviousText: e.PreviousText, EditedAt: e.EditedAt})
	}
	for _, r := range row.Reports {
		c.ReportedBy = append(c.ReportedBy, model.Report{User: r.UserID, Reason: r.Reason, ReportedAt: r.ReportedAt})
	}
	return c
}

type gormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository PostgreSQL 实现
func NewGormCommentRepository(db *gorm.DB) CommentRepository {
	return &gormCommentRepository{db: db}
}

func byID(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }
func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Reactions").Preload("Edits", byID).Preload("Reports", byID)
}

func applyFilter(q *gorm.DB, f model.Filter) *gorm.DB {
	if f.Post != "" {
		q = q.Where("post_id = ?", f.Post)
	}
	if f.TopLevel {
		q = q.Where("parent_id IS NULL")
	}
	if f.Parent != "" {
		q = q.Where("parent_id = ?", f.Parent)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(f.Statuses))
	}
	if f.MinReports > 0 {
		q = q.Where("report_count >= ?", f.MinReports)
	}
	return q
}

func orderClause(s model.SortOrder) string {
	switch s {
	case model.SortOldest:
		return "created_at ASC, id ASC"
	case model.SortMostLiked:
		return "like_count DESC, created_at DESC, id DESC"
	case model.SortMostReported:
		return "report_count DESC, created_at DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

// notFoundOr 记录不存在或 id 无法解析为 uuid 时都视为不存在
func notFoundOr(op, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidInput(err) {
		return apperr.NotFound("comment", id)
	}
	return apperr.Unavailable(op, err)
}

func isAppError(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrValidation) ||
		errors.Is(err, apperr.ErrConflict) ||
		errors.Is(err, apperr.ErrStoreUnavailable)
}

func (r *gormCommentRepository) Insert(ctx context.Context, c *model.Comment) error {
	row := toRow(c)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("comment %s already exists", c.ID)
		}
		if database.IsInvalidInput(err) {
			return apperr.Validation("comment references a malformed id")
		}
		return apperr.Unavailable("insert comment", err)
	}
	return nil
}

func (r *gormCommentRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	var row commentRow
	if err := withDetails(r.db.WithContext(ctx)).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, notFoundOr("find comment", id, err)
	}
	return row.toModel(), nil
}

func (r *gormCommentRepository) FindMany(ctx context.Context, filter model.Filter, sort model.SortOrder, skip, limit int) ([]*model.Comment, error) {
	var rows []commentRow
	q := applyFilter(r.db.WithContext(ctx).Model(&commentRow{}), filter).Order(orderClause(sort)).Offset(skip)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := withDetails(q).Find(&rows).Error; err != nil {
		if database.IsInvalidInput(err) {
			return []*model.Comment{}, nil
		}
		return nil, apperr.Unavailable("list comments", err)
	}

	out := make([]*model.Comment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (r *gormCommentRepository) Count(ctx context.Context, filter model.Filter) (int64, error) {
	var total int64
	if err := applyFilter(r.db.WithContext(ctx).Model(&commentRow{}), filter).Count(&total).Error; err != nil {
		if database.IsInvalidInput(err) {
			return 0, nil
		}
		return 0, apperr.Unavailable("count comments", err)
	}
	return total, nil
}

// lockComment 在事务内对评论行加 FOR UPDATE 锁
func lockComment(tx *gorm.DB, id string) (*commentRow, error) {
	var row commentRow
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// inTx 执行事务后重新读取评论
// 加锁之后出现的格式错误来自用户 id 等其他参数
func (r *gormCommentRepository) inTx(ctx context.Context, op, id string, fn func(tx *gorm.DB) error) (*model.Comment, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockComment(tx, id); err != nil {
			return notFoundOr(op, id, err)
		}
		if err := fn(tx); err != nil {
			if database.IsInvalidInput(err) {
				return apperr.Validation("%s: malformed id", op)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if isAppError(err) {
			return nil, err
		}
		return nil, notFoundOr(op, id, err)
	}
	return r.FindByID(ctx, id)
}

func (r *gormCommentRepository) UpdateText(ctx context.Context, id, newText string, editedAt time.Time) (*model.Comment, bool, error) {
	edited := false
	c, err := r.inTx(ctx, "update comment text", id, func(tx *gorm.DB) error {
		var current commentRow
		if err := tx.Select("text").Where("id = ?", id).First(&current).Error; err != nil {
			return err
		}
		if current.Text == newText {
			return nil
		}
		if err := tx.Create(&editRow{CommentID: id, PreviousText: current.Text, EditedAt: editedAt}).Error; err != nil {
			return err
		}
		edited = true
		return tx.Model(&commentRow{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
			"text":       newText,
			"is_edited":  true,
			"updated_at": editedAt,
		}).Error
	})
	return c, edited, err
}

// refreshCounts 按 comment_reactions 重算反规范化计数
func refreshCounts(tx *gorm.DB, id string, at time.Time) error {
	return tx.Exec(`UPDATE comments SET
		like_count = (SELECT COUNT(*) FROM comment_reactions WHERE comment_id = ? AND kind = 'like'),
		dislike_count = (SELECT COUNT(*) FROM comment_reactions WHERE comment_id = ? AND kind = 'dislike'),
		updated_at = ?
		WHERE id = ?`, id, id, at, id).Error
}

func (r *gormCommentRepository) SetReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, error) {
	return r.inTx(ctx, "set reaction", id, func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "comment_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind"}),
		}).Create(&reactionRow{CommentID: id, UserID: user, Kind: string(kind), CreatedAt: at}).Error
		if err != nil {
			return err
		}
		return refreshCounts(tx, id, at)
	})
}

func (r *gormCommentRepository) RemoveReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, bool, error) {
	removed := false
	c, err := r.inTx(ctx, "remove reaction", id, func(tx *gorm.DB) error {
		res := tx.Where("comment_id = ? AND user_id = ? AND kind = ?", id, user, string(kind)).Delete(&reactionRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return refreshCounts(tx, id, at)
	})
	return c, removed, err
}

func (r *gormCommentRepository) AddReport(ctx context.Context, id string, report model.Report, dedupe bool) (*model.Comment, error) {
	return r.inTx(ctx, "add report", id, func(tx *gorm.DB) error {
		if dedupe {
			var n int64
			if err := tx.Model(&reportRow{}).Where("comment_id = ? AND user_id = ?", id, report.User).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return apperr.Conflict("user %s already reported comment %s", report.User, id)
			}
		}
		row := &reportRow{CommentID: id, UserID: report.User, Reason: report.Reason, ReportedAt: report.ReportedAt}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return tx.Model(&commentRow{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
			"report_count": gorm.Expr("report_count + 1"),
			"updated_at":   report.ReportedAt,
		}).Error
	})
}

func (r *gormCommentRepository) ClearReports(ctx context.Context, id string, at time.Time) (*model.Comment, error) {
	return r.inTx(ctx, "clear reports", id, func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&reportRow{}).Error; err != nil {
			return err
		}
		return tx.Model(&commentRow{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
			"report_count": 0,
			"updated_at":   at,
		}).Error
	})
}

func (r *gormCommentRepository) SetStatus(ctx context.Context, id string, status model.Status, at time.Time) (*model.Comment, error) {
	res := r.db.WithContext(ctx).Model(&commentRow{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"status":     string(status),
		"updated_at": at,
	})
	if res.Error != nil {
		return nil, notFoundOr("set comment status", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("comment", id)
	}
	return r.FindByID(ctx, id)
}

func (r *gormCommentRepository) PostExists(ctx context.Context, postID string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Table("posts").Where("id = ?", postID).Count(&n).Error; err != nil {
		if database.IsInvalidInput(err) {
			return false, nil
		}
		return false, apperr.Unavailable("check post", err)
	}
	return n > 0, nil
}
