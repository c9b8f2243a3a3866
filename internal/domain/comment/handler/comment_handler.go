package handler

import (
	"net/http"

	"healthhive/internal/domain/comment/model"
	"healthhive/internal/domain/comment/service"
	"healthhive/internal/pkg/middleware"
	"healthhive/pkg/apperr"
	"healthhive/pkg/response"

	"github.com/gin-gonic/gin"
)

// CommentHandler 评论处理器
type CommentHandler struct {
	comments   service.CommentService
	queries    service.QueryService
	moderation service.ModerationService
}

// NewCommentHandler 创建处理器
func NewCommentHandler(comments service.CommentService, queries service.QueryService, moderation service.ModerationService) *CommentHandler {
	return &CommentHandler{comments: comments, queries: queries, moderation: moderation}
}

// CreateInput 发表评论输入
type CreateInput struct {
	Text          string  `json:"text" binding:"required"`
	ParentComment *string `json:"parentComment"`
	IsAnonymous   bool    `json:"isAnonymous"`
}

// EditInput 编辑输入
type EditInput struct {
	Text string `json:"text" binding:"required"`
}

// ReactInput 点赞/点踩输入
type ReactInput struct {
	Kind string `json:"kind" binding:"required,oneof=like dislike"`
}

// ReportInput 举报输入
type ReportInput struct {
	Reason string `json:"reason" binding:"required"`
}

// StatusInput 审核状态输入
type StatusInput struct {
	Status string `json:"status" binding:"required,oneof=active hidden deleted"`
}

// ListQuery 列表分页参数，缺省 page=1 limit=10
type ListQuery struct {
	Page  int    `form:"page,default=1"`
	Limit int    `form:"limit,default=10"`
	Sort  string `form:"sort"`
}

// ReportedQuery 审核队列参数
type ReportedQuery struct {
	ListQuery
	MinReports int `form:"minReports,default=1"`
}

func badRequest(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	response.HandleError(c, err, response.CommentCodes)
}

// viewer 当前请求者
type viewer struct {
	userID string
	admin  bool
}

func viewerOf(c *gin.Context) viewer {
	id, _ := middleware.CurrentUserID(c)
	return viewer{userID: id, admin: middleware.IsAdmin(c)}
}

// present 匿名评论对非作者、非管理员隐藏作者；举报人只对管理员可见
func (v viewer) present(cm *model.Comment) *model.Comment {
	out := cm.Clone()
	if out.IsAnonymous && !v.admin && out.Author != v.userID {
		out.Author = ""
		out.AuthorInfo = nil
	}
	if !v.admin {
		out.ReportedBy = []model.Report{}
	}
	return out
}

func (v viewer) presentPage(p *service.CommentPage) *service.CommentPage {
	out := &service.CommentPage{Comments: make([]*model.Comment, 0, len(p.Comments)), Pagination: p.Pagination}
	for _, cm := range p.Comments {
		out.Comments = append(out.Comments, v.present(cm))
	}
	return out
}

// ListComments 帖子评论列表
// @Router /posts/{id}/comments [get]
func (h *CommentHandler) ListComments(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.queries.ListComments(c.Request.Context(), c.Param("id"), q.Page, q.Limit, q.Sort)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, viewerOf(c).presentPage(page))
}

// CreateComment 发表评论或回复
// @Router /posts/{id}/comments [post]
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var input CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	v := viewerOf(c)
	cm, err := h.comments.Create(c.Request.Context(), service.CreateInput{
		Post:          c.Param("id"),
		Author:        v.userID,
		Text:          input.Text,
		ParentComment: input.ParentComment,
		IsAnonymous:   input.IsAnonymous,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, v.present(cm))
}

// GetComment 单条评论，非 active 状态仅作者与管理员可见
// @Router /comments/{id} [get]
func (h *CommentHandler) GetComment(c *gin.Context) {
	id := c.Param("id")
	cm, err := h.comments.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	v := viewerOf(c)
	if cm.Status != model.StatusActive && !v.admin && cm.Author != v.userID {
		fail(c, apperr.NotFound("comment", id))
		return
	}
	response.Success(c, v.present(cm))
}

// ListReplies 直接回复列表
// @Router /comments/{id}/replies [get]
func (h *CommentHandler) ListReplies(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.queries.ListReplies(c.Request.Context(), c.Param("id"), q.Page, q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, viewerOf(c).presentPage(page))
}

// EditComment 仅作者可编辑
// @Router /comments/{id} [put]
func (h *CommentHandler) EditComment(c *gin.Context) {
	var input EditInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	v := viewerOf(c)
	cm, err := h.comments.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if cm.Author != v.userID {
		fail(c, apperr.Forbidden("only the author can edit this comment"))
		return
	}
	if cm.Status == model.StatusDeleted {
		fail(c, apperr.NotFound("comment", id))
		return
	}

	cm, err = h.comments.EditText(c.Request.Context(), id, input.Text)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, v.present(cm))
}

// DeleteComment 作者或管理员软删除
// @Router /comments/{id} [delete]
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	id := c.Param("id")
	v := viewerOf(c)
	cm, err := h.comments.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if cm.Author != v.userID && !v.admin {
		fail(c, apperr.Forbidden("only the author or an admin can delete this comment"))
		return
	}

	cm, err = h.moderation.SetStatus(c.Request.Context(), id, model.StatusDeleted)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, v.present(cm))
}

// React 点赞或点踩
// @Router /comments/{id}/reactions [post]
func (h *CommentHandler) React(c *gin.Context) {
	var input ReactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	v := viewerOf(c)
	cm, err := h.comments.React(c.Request.Context(), c.Param("id"), v.userID, model.ReactionKind(input.Kind))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, v.present(cm))
}

// Unreact 取消点赞或点踩
// @Router /comments/{id}/reactions/{kind} [delete]
func (h *CommentHandler) Unreact(c *gin.Context) {
	v := viewerOf(c)
	cm, err := h.comments.Unreact(c.Request.Context(), c.Param("id"), v.userID, model.ReactionKind(c.Param("kind")))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, v.present(cm))
}

// Report 举报评论
// @Router /comments/{id}/reports [post]
func (h *CommentHandler) Report(c *gin.Context) {
	var input ReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	v := viewerOf(c)
	cm, err := h.moderation.Report(c.Request.Context(), c.Param("id"), v.userID, input.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": cm.ID, "reportCount": cm.ReportCount})
}

// ListReported 审核队列 (管理员)
// @Router /admin/comments/reported [get]
func (h *CommentHandler) ListReported(c *gin.Context) {
	var q ReportedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.moderation.ListReported(c.Request.Context(), q.MinReports, q.Page, q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, viewerOf(c).presentPage(page))
}

// SetStatus 修改评论状态 (管理员)
// @Router /admin/comments/{id}/status [put]
func (h *CommentHandler) SetStatus(c *gin.Context) {
	var input StatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	cm, err := h.moderation.SetStatus(c.Request.Context(), c.Param("id"), model.Status(input.Status))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, viewerOf(c).present(cm))
}

// ClearReports 清空举报 (管理员)
// @Router /admin/comments/{id}/reports [delete]
func (h *CommentHandler) ClearReports(c *gin.Context) {
	cm, err := h.moderation.ClearReports(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, viewerOf(c).present(cm))
}
