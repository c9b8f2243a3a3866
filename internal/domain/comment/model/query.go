package model

import "healthhive/pkg/apperr"

// SortOrder 列表排序方式
type SortOrder string

const (
	SortNewest       SortOrder = "newest"
	SortOldest       SortOrder = "oldest"
	SortMostLiked    SortOrder = "mostLiked"    // likeCount desc, createdAt desc
	SortMostReported SortOrder = "mostReported" // reportCount desc, createdAt desc，审核队列使用
)

// ParseSort 解析公开列表的排序参数，空值默认 newest
func ParseSort(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortMostLiked:
		return SortOrder(s), nil
	}
	return "", apperr.Validation("unsupported sort %q", s)
}

// Filter 评论查询条件，零值字段不参与过滤
type Filter struct {
	Post       string
	Parent     string // 非空时查询该评论的直接回复
	TopLevel   bool   // 只要一级评论 (parentComment = null)
	Statuses   []Status
	MinReports int
}

// Matches 内存实现使用的匹配逻辑，与各存储的查询条件保持一致
func (f Filter) Matches(c *Comment) bool {
	if f.Post != "" && c.Post != f.Post {
		return false
	}
	if f.TopLevel && c.ParentComment != nil {
		return false
	}
	if f.Parent != "" && (c.ParentComment == nil || *c.ParentComment != f.Parent) {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if c.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.MinReports > 0 && c.ReportCount < f.MinReports {
		return false
	}
	return true
}

// Less 排序比较，createdAt 相同时按 ID 保证稳定
func (s SortOrder) Less(a, b *Comment) bool {
	switch s {
	case SortOldest:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	case SortMostLiked:
		if la, lb := a.LikeCount(), b.LikeCount(); la != lb {
			return la > lb
		}
	case SortMostReported:
		if a.ReportCount != b.ReportCount {
			return a.ReportCount > b.ReportCount
		}
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
