package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"healthhive/internal/domain/comment/model"
	"healthhive/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo *MemoryCommentRepository, id, post string, parent *string, at time.Time) *model.Comment {
	t.Helper()
	c, err := model.NewComment(id, post, "author-"+id, "text "+id, parent, false, at)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), c))
	return c
}

func TestMemoryInsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCommentRepository()
	seed(t, repo, "c1", "p1", nil, base)

	t.Run("duplicate id", func(t *testing.T) {
		c, _ := model.NewComment("c1", "p1", "u", "again", nil, false, base)
		assert.ErrorIs(t, repo.Insert(ctx, c), apperr.ErrConflict)
	})

	t.Run("returned copy is isolated", func(t *testing.T) {
		got, err := repo.FindByID(ctx, "c1")
		require.NoError(t, err)
		got.Text = "mutated"
		got.Reactions["u9"] = model.ReactionLike

		again, err := repo.FindByID(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "text c1", again.Text)
		assert.Equal(t, 0, again.LikeCount())
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestMemoryFindManyPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCommentRepository()
	for i := 0; i < 5; i++ {
		seed(t, repo, fmt.Sprintf("c%d", i), "p1", nil, base.Add(time.Duration(i)*time.Minute))
	}
	parent := "c0"
	seed(t, repo, "r1", "p1", &parent, base.Add(time.Hour))
	seed(t, repo, "other", "p2", nil, base)

	filter := model.Filter{Post: "p1", TopLevel: true, Statuses: []model.Status{model.StatusActive}}

	n, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	page1, err := repo.FindMany(ctx, filter, model.SortNewest, 0, 2)
	require.NoError(t, err)
	page2, err := repo.FindMany(ctx, filter, model.SortNewest, 2, 2)
	require.NoError(t, err)
	page3, err := repo.FindMany(ctx, filter, model.SortNewest, 4, 2)
	require.NoError(t, err)
	beyond, err := repo.FindMany(ctx, filter, model.SortNewest, 10, 2)
	require.NoError(t, err)

	ids := func(list []*model.Comment) []string {
		out := []string{}
		for _, c := range list {
			out = append(out, c.ID)
		}
		return out
	}
	assert.Equal(t, []string{"c4", "c3"}, ids(page1))
	assert.Equal(t, []string{"c2", "c1"}, ids(page2))
	assert.Equal(t, []string{"c0"}, ids(page3))
	assert.Empty(t, beyond)

	replies, err := repo.FindMany(ctx, model.Filter{Parent: "c0"}, model.SortOldest, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(replies))
}

func TestMemoryReactions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCommentRepository()
	seed(t, repo, "c1", "p1", nil, base)

	c, err := repo.SetReaction(ctx, "c1", "u1", model.ReactionLike, base)
	require.NoError(t, err)
	assert.Equal(t, 1, c.LikeCount())

	c, err = repo.SetReaction(ctx, "c1", "u1", model.ReactionDislike, base)
	require.NoError(t, err)
	assert.Equal(t, 0, c.LikeCount())
	assert.Equal(t, 1, c.DislikeCount())

	c, removed, err := repo.RemoveReaction(ctx, "c1", "u1", model.ReactionLike, base)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, c.DislikeCount())

	_, removed, err = repo.RemoveReaction(ctx, "c1", "u1", model.ReactionDislike, base)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = repo.SetReaction(ctx, "missing", "u1", model.ReactionLike, base)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryConcurrentReactions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCommentRepository()
	seed(t, repo, "c1", "p1", nil, base)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := model.ReactionLike
			if i%2 == 1 {
				kind = model.ReactionDislike
			}
			_, err := repo.SetReaction(ctx, "c1", fmt.Sprintf("u%d", i), kind, base)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	c, err := repo.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 25, c.LikeCount())
	assert.Equal(t, 25, c.DislikeCount())
}

func TestMemoryReports(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCommentRepository()
	seed(t, repo, "c1", "p1", nil, base)
	report := model.Report{User: "u1", Reason: "spam", ReportedAt: base}

	c, err := repo.AddReport(ctx, "c1", report, false)
	require.NoError(t, err)
	c, err = repo.AddReport(ctx, "c1", report, false)
	require.NoError(t, err)
	assert.Equal(t, 2, c.ReportCount)

	_, err = repo.AddReport(ctx, "c1", report, true)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	c, err = repo.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.ReportCount, "failed report must not change state")

	c, err = repo.ClearReports(ctx, "c1", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, c.ReportCount)
	assert.Empty(t, c.ReportedBy)
}

func TestMemoryUpdateTextAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCommentRepository()
	seed(t, repo, "c1", "p1", nil, base)

	c, edited, err := repo.UpdateText(ctx, "c1", "text c1", base)
	require.NoError(t, err)
	assert.False(t, edited)
	assert.Empty(t, c.EditHistory)

	c, edited, err = repo.UpdateText(ctx, "c1", "new", base.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, edited)
	assert.Equal(t, "new", c.Text)
	require.Len(t, c.EditHistory, 1)
	assert.Equal(t, "text c1", c.EditHistory[0].PreviousText)

	c, err = repo.SetStatus(ctx, "c1", model.StatusHidden, base)
	require.NoError(t, err)
	assert.Equal(t, model.StatusHidden, c.Status)

	_, _, err = repo.UpdateText(ctx, "missing", "x", base)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryPostExists(t *testing.T) {
	repo := NewMemoryCommentRepository()
	repo.AddPost("p1")

	ok, err := repo.PostExists(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.PostExists(context.Background(), "p2")
	require.NoError(t, err)
	assert.False(t, ok)
}
