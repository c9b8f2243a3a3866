package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"healthhive/internal/domain/user/model"
	"healthhive/pkg/apperr"
)

// MemoryUserRepository 内存实现，用于测试
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*model.User)}
}

func clone(u *model.User) *model.User {
	out := *u
	out.MedicalConditions = append([]string{}, u.MedicalConditions...)
	return &out
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return apperr.Conflict("user %s already exists", user.ID)
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperr.Conflict("email %s already exists", user.Email)
		}
	}
	r.users[user.ID] = clone(user)
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("user", id)
	}
	return clone(u), nil
}

func (r *MemoryUserRepository) GetList(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []*model.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := make([]*model.User, 0, end-offset)
	for _, u := range all[offset:end] {
		page = append(page, clone(u))
	}
	return page, total, nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return apperr.NotFound("user", user.ID)
	}
	next := clone(user)
	next.Email = current.Email
	next.Role = current.Role
	next.CreatedAt = current.CreatedAt
	r.users[user.ID] = next
	return nil
}

func (r *MemoryUserRepository) UpdateRole(ctx context.Context, id string, role model.Role, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return apperr.NotFound("user", id)
	}
	u.Role = role
	u.UpdatedAt = at
	return nil
}

func (r *MemoryUserRepository) FindAuthors(ctx context.Context, ids []string) (map[string]model.AuthorSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]model.AuthorSummary)
	for _, id := range uniqueIDs(ids) {
		if u, ok := r.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}
