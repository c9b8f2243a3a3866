package repository

import (
	"context"
	"errors"
	"time"

	"healthhive/internal/domain/comment/model"
	"healthhive/pkg/apperr"
	"healthhive/pkg/metrics"
)

// instrumentedRepository 为每次存储调用记录耗时与结果
type instrumentedRepository struct {
	next      CommentRepository
	collector *metrics.MetricsCollector
}

// WithMetrics 包装仓库；collector 为 nil 时原样返回
func WithMetrics(next CommentRepository, collector *metrics.MetricsCollector) CommentRepository {
	if collector == nil {
		return next
	}
	return &instrumentedRepository{next: next, collector: collector}
}

// observe 只把存储不可用计为失败，NotFound / Conflict 属于正常业务结果
func (r *instrumentedRepository) observe(op string, start time.Time, err error) {
	r.collector.RecordStoreOp(op, CommentCollection, time.Since(start), !errors.Is(err, apperr.ErrStoreUnavailable))
}

func (r *instrumentedRepository) Insert(ctx context.Context, c *model.Comment) error {
	start := time.Now()
	err := r.next.Insert(ctx, c)
	r.observe("insert", start, err)
	return err
}

func (r *instrumentedRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	start := time.Now()
	c, err := r.next.FindByID(ctx, id)
	r.observe("find_by_id", start, err)
	return c, err
}

func (r *instrumentedRepository) FindMany(ctx context.Context, filter model.Filter, sort model.SortOrder, skip, limit int) ([]*model.Comment, error) {
	start := time.Now()
	list, err := r.next.FindMany(ctx, filter, sort, skip, limit)
	r.observe("find_many", start, err)
	return list, err
}

func (r *instrumentedRepository) Count(ctx context.Context, filter model.Filter) (int64, error) {
	start := time.Now()
	n, err := r.next.Count(ctx, filter)
	r.observe("count", start, err)
	return n, err
}

func (r *instrumentedRepository) UpdateText(ctx context.Context, id, newText string, editedAt time.Time) (*model.Comment, bool, error) {
	start := time.Now()
	c, edited, err := r.next.UpdateText(ctx, id, newText, editedAt)
	r.observe("update_text", start, err)
	return c, edited, err
}

func (r *instrumentedRepository) SetReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, error) {
	start := time.Now()
	c, err := r.next.SetReaction(ctx, id, user, kind, at)
	r.observe("set_reaction", start, err)
	return c, err
}

func (r *instrumentedRepository) RemoveReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, bool, error) {
	start := time.Now()
	c, removed, err := r.next.RemoveReaction(ctx, id, user, kind, at)
	r.observe("remove_reaction", start, err)
	return c, removed, err
}

func (r *instrumentedRepository) AddReport(ctx context.Context, id string, report model.Report, dedupe bool) (*model.Comment, error) {
	start := time.Now()
	c, err := r.next.AddReport(ctx, id, report, dedupe)
	r.observe("add_report", start, err)
	return c, err
}

func (r *instrumentedRepository) ClearReports(ctx context.Context, id string, at time.Time) (*model.Comment, error) {
	start := time.Now()
	c, err := r.next.ClearReports(ctx, id, at)
	r.observe("clear_reports", start, err)
	return c, err
}

func (r *instrumentedRepository) SetStatus(ctx context.Context, id string, status model.Status, at time.Time) (*model.Comment, error) {
	start := time.Now()
	c, err := r.next.SetStatus(ctx, id, status, at)
	r.observe("set_status", start, err)
	return c, err
}

func (r *instrumentedRepository) PostExists(ctx context.Context, postID string) (bool, error) {
	start := time.Now()
	ok, err := r.next.PostExists(ctx, postID)
	r.observe("post_exists", start, err)
	return ok, err
}
