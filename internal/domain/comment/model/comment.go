package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	userModel "healthhive/internal/domain/user/model"
	"healthhive/pkg/apperr"
)

// MaxTextLength 评论正文最大字符数（按 Unicode 码点计）
const MaxTextLength = 2000

// MaxReasonLength 举报理由最大字符数
const MaxReasonLength = 500

// Status 评论状态
type Status string

const (
	StatusActive  Status = "active"
	StatusHidden  Status = "hidden"
	StatusDeleted Status = "deleted" // 软删除，数据保留
)

// Valid 是否为合法状态
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusHidden, StatusDeleted:
		return true
	}
	return false
}

// ReactionKind 点赞/点踩
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// Valid 是否为合法反应类型
func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// Reactions 用户ID -> 反应类型
// 每个用户最多一个反应，点赞与点踩天然互斥
type Reactions map[string]ReactionKind

// Count 指定类型的数量
func (r Reactions) Count(kind ReactionKind) int {
	n := 0
	for _, k := range r {
		if k == kind {
			n++
		}
	}
	return n
}

// Users 指定类型的用户ID，按字典序
func (r Reactions) Users(kind ReactionKind) []string {
	users := make([]string, 0, len(r))
	for u, k := range r {
		if k == kind {
			users = append(users, u)
		}
	}
	sort.Strings(users)
	return users
}

// FromSets 由 likes/dislikes 两个列表还原，重复ID只保留一份
// 同一用户同时出现在两个列表时以 dislike 为准，与写入顺序一致
func FromSets(likes, dislikes []string) Reactions {
	r := make(Reactions, len(likes)+len(dislikes))
	for _, u := range likes {
		r[u] = ReactionLike
	}
	for _, u := range dislikes {
		r[u] = ReactionDislike
	}
	return r
}

// EditRecord 编辑历史条目
type EditRecord struct {
	PreviousText string    `json:"previousText"`
	EditedAt     time.Time `json:"editedAt"`
}

// Report 举报条目
type Report struct {
	User       string    `json:"user"`
	Reason     string    `json:"reason"`
	ReportedAt time.Time `json:"reportedAt"`
}

// Comment 评论模型
type Comment struct {
	ID            string       `json:"id"`
	Post          string       `json:"post"`
	Author        string       `json:"author"`
	ParentComment *string      `json:"parentComment"` // nil 表示一级评论
	Text          string       `json:"text"`
	IsAnonymous   bool         `json:"isAnonymous"`
	Reactions     Reactions    `json:"-"`
	IsEdited      bool         `json:"isEdited"`
	EditHistory   []EditRecord `json:"editHistory"`
	Status        Status       `json:"status"`
	ReportCount   int          `json:"reportCount"`
	ReportedBy    []Report     `json:"reportedBy"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	// 查询时关联出的作者公开信息，不持久化
	AuthorInfo *userModel.AuthorSummary `json:"authorInfo,omitempty"`
}

// LikeCount 点赞数
func (c *Comment) LikeCount() int { return c.Reactions.Count(ReactionLike) }

// DislikeCount 点踩数
func (c *Comment) DislikeCount() int { return c.Reactions.Count(ReactionDislike) }

// Score 净得分
func (c *Comment) Score() int { return c.LikeCount() - c.DislikeCount() }

// IsTopLevel 是否一级评论
func (c *Comment) IsTopLevel() bool { return c.ParentComment == nil }

// MarshalJSON 输出 likes/dislikes 列表及派生计数
func (c Comment) MarshalJSON() ([]byte, error) {
	type alias Comment
	history := c.EditHistory
	if history == nil {
		history = []EditRecord{}
	}
	reports := c.ReportedBy
	if reports == nil {
		reports = []Report{}
	}
	a := alias(c)
	a.EditHistory = history
	a.ReportedBy = reports
	return json.Marshal(struct {
		alias
		Likes        []string `json:"likes"`
		Dislikes     []string `json:"dislikes"`
		LikeCount    int      `json:"likeCount"`
		DislikeCount int      `json:"dislikeCount"`
		Score        int      `json:"score"`
	}{
		alias:        a,
		Likes:        c.Reactions.Users(ReactionLike),
		Dislikes:     c.Reactions.Users(ReactionDislike),
		LikeCount:    c.LikeCount(),
		DislikeCount: c.DislikeCount(),
		Score:        c.Score(),
	})
}

// NormalizeText 去除首尾空白并校验长度
func NormalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Validation("comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", apperr.Validation("comment cannot exceed %d characters", MaxTextLength)
	}
	return text, nil
}

// NormalizeReason 去除首尾空白并校验举报理由
func NormalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", apperr.Validation("report reason is required")
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return "", apperr.Validation("report reason cannot exceed %d characters", MaxReasonLength)
	}
	return reason, nil
}

// NewComment 创建一条 active 状态的新评论，ID 与时间由调用方给出
func NewComment(id, post, author, text string, parent *string, anonymous bool, now time.Time) (*Comment, error) {
	if strings.TrimSpace(post) == "" {
		return nil, apperr.Validation("post is required")
	}
	if strings.TrimSpace(author) == "" {
		return nil, apperr.Validation("author is required")
	}
	if parent != nil && strings.TrimSpace(*parent) == "" {
		parent = nil
	}
	text, err := NormalizeText(text)
	if err != nil {
		return nil, err
	}
	return &Comment{
		ID:            id,
		Post:          post,
		Author:        author,
		ParentComment: parent,
		Text:          text,
		IsAnonymous:   anonymous,
		Reactions:     Reactions{},
		EditHistory:   []EditRecord{},
		Status:        StatusActive,
		ReportedBy:    []Report{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ApplyEdit 替换正文并记录历史；文本未变化时返回 false
// newText 需已经过 NormalizeText
func (c *Comment) ApplyEdit(newText string, now time.Time) bool {
	if newText == c.Text {
		return false
	}
	c.EditHistory = append(c.EditHistory, EditRecord{PreviousText: c.Text, EditedAt: now})
	c.IsEdited = true
	c.Text = newText
	c.UpdatedAt = now
	return true
}

// React 设置用户反应，会覆盖相反的反应
func (c *Comment) React(user string, kind ReactionKind, now time.Time) {
	if c.Reactions == nil {
		c.Reactions = Reactions{}
	}
	c.Reactions[user] = kind
	c.UpdatedAt = now
}

// Unreact 仅当用户当前反应为 kind 时移除
func (c *Comment) Unreact(user string, kind ReactionKind, now time.Time) bool {
	if c.Reactions[user] != kind {
		return false
	}
	delete(c.Reactions, user)
	c.UpdatedAt = now
	return true
}

// HasReported 用户是否已举报过
func (c *Comment) HasReported(user string) bool {
	for _, r := range c.ReportedBy {
		if r.User == user {
			return true
		}
	}
	return false
}

// AddReport 追加举报并计数
func (c *Comment) AddReport(r Report) {
	c.ReportedBy = append(c.ReportedBy, r)
	c.ReportCount++
	c.UpdatedAt = r.ReportedAt
}

// ClearReports 管理员复核后清零举报
func (c *Comment) ClearReports(now time.Time) {
	c.ReportedBy = []Report{}
	c.ReportCount = 0
	c.UpdatedAt = now
}

// Clone 深拷贝，内存存储返回副本避免共享可变状态
func (c *Comment) Clone() *Comment {
	out := *c
	if c.ParentComment != nil {
		p := *c.ParentComment
		out.ParentComment = &p
	}
	out.Reactions = make(Reactions, len(c.Reactions))
	for u, k := range c.Reactions {
		out.Reactions[u] = k
	}
	out.EditHistory = append([]EditRecord{}, c.EditHistory...)
	out.ReportedBy = append([]Report{}, c.ReportedBy...)
	if c.AuthorInfo != nil {
		a := *c.AuthorInfo
		out.AuthorInfo = &a
	}
	return &out
}
