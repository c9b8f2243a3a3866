package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"healthhive/internal/domain/comment/model"
	"healthhive/pkg/apperr"
)

// MemoryCommentRepository 内存实现，用于测试与本地调试
// 单把互斥锁保证单条评论读改写的原子性
type MemoryCommentRepository struct {
	mu       sync.RWMutex
	posts    map[string]struct{}
	comments map[string]*model.Comment
	byPost   map[string][]string // postID -> commentIDs
	byParent map[string][]string // parentID -> commentIDs
}

// NewMemoryCommentRepository 创建内存仓库
func NewMemoryCommentRepository() *MemoryCommentRepository {
	return &MemoryCommentRepository{
		posts:    make(map[string]struct{}),
		comments: make(map[string]*model.Comment),
		byPost:   make(map[string][]string),
		byParent: make(map[string][]string),
	}
}

// AddPost 登记帖子，帖子本身由其他服务维护
func (r *MemoryCommentRepository) AddPost(postID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[postID] = struct{}{}
}

func (r *MemoryCommentRepository) PostExists(ctx context.Context, postID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.posts[postID]
	return ok, nil
}

func (r *MemoryCommentRepository) Insert(ctx context.Context, c *model.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.comments[c.ID]; exists {
		return apperr.Conflict("comment %s already exists", c.ID)
	}
	r.comments[c.ID] = c.Clone()
	r.byPost[c.Post] = append(r.byPost[c.Post], c.ID)
	if c.ParentComment != nil {
		r.byParent[*c.ParentComment] = append(r.byParent[*c.ParentComment], c.ID)
	}
	return nil
}

func (r *MemoryCommentRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.comments[id]
	if !ok {
		return nil, apperr.NotFound("comment", id)
	}
	return c.Clone(), nil
}

// candidates 优先走 post / parent 索引
func (r *MemoryCommentRepository) candidates(f model.Filter) []*model.Comment {
	var ids []string
	switch {
	case f.Parent != "":
		ids = r.byParent[f.Parent]
	case f.Post != "":
		ids = r.byPost[f.Post]
	default:
		out := make([]*model.Comment, 0, len(r.comments))
		for _, c := range r.comments {
			if f.Matches(c) {
				out = append(out, c)
			}
		}
		return out
	}

	out := make([]*model.Comment, 0, len(ids))
	for _, id := range ids {
		if c := r.comments[id]; c != nil && f.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

func (r *MemoryCommentRepository) FindMany(ctx context.Context, filter model.Filter, order model.SortOrder, skip, limit int) ([]*model.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.candidates(filter)
	sort.Slice(all, func(i, j int) bool { return order.Less(all[i], all[j]) })

	if skip >= len(all) {
		return []*model.Comment{}, nil
	}
	end := len(all)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}

	page := make([]*model.Comment, 0, end-skip)
	for _, c := range all[skip:end] {
		page = append(page, c.Clone())
	}
	return page, nil
}

func (r *MemoryCommentRepository) Count(ctx context.Context, filter model.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.candidates(filter))), nil
}

// mutate 在写锁内对单条评论执行修改
func (r *MemoryCommentRepository) mutate(id string, fn func(c *model.Comment) error) (*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[id]
	if !ok {
		return nil, apperr.NotFound("comment", id)
	}
	// 在副本上修改，失败时原记录保持不变
	next := c.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	r.comments[id] = next
	return next.Clone(), nil
}

func (r *MemoryCommentRepository) UpdateText(ctx context.Context, id, newText string, editedAt time.Time) (*model.Comment, bool, error) {
	var edited bool
	c, err := r.mutate(id, func(c *model.Comment) error {
		edited = c.ApplyEdit(newText, editedAt)
		return nil
	})
	return c, edited, err
}

func (r *MemoryCommentRepository) SetReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, error) {
	return r.mutate(id, func(c *model.Comment) error {
		c.React(user, kind, at)
		return nil
	})
}

func (r *MemoryCommentRepository) RemoveReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, bool, error) {
	var removed bool
	c, err := r.mutate(id, func(c *model.Comment) error {
		removed = c.Unreact(user, kind, at)
		return nil
	})
	return c, removed, err
}

func (r *MemoryCommentRepository) AddReport(ctx context.Context, id string, report model.Report, dedupe bool) (*model.Comment, error) {
	return r.mutate(id, func(c *model.Comment) error {
		if dedupe && c.HasReported(report.User) {
			return apperr.Conflict("user %s already reported comment %s", report.User, id)
		}
		c.AddReport(report)
		return nil
	})
}

func (r *MemoryCommentRepository) ClearReports(ctx context.Context, id string, at time.Time) (*model.Comment, error) {
	return r.mutate(id, func(c *model.Comment) error {
		c.ClearReports(at)
		return nil
	})
}

func (r *MemoryCommentRepository) SetStatus(ctx context.Context, id string, status model.Status, at time.Time) (*model.Comment, error) {
	return r.mutate(id, func(c *model.Comment) error {
		c.Status = status
		c.UpdatedAt = at
		return nil
	})
}
