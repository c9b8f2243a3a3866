package handler

import (
	"net/http"

	"healthhive/internal/domain/user/model"
	"healthhive/internal/domain/user/service"
	"healthhive/internal/pkg/middleware"
	"healthhive/pkg/response"
	"healthhive/pkg/utils"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	service service.UserService
}

// NewUserHandler 创建处理器
func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// ProfileInput 资料输入
type ProfileInput struct {
	FullName           string   `json:"fullName" binding:"required"`
	Age                int      `json:"age"`
	Gender             string   `json:"gender"`
	MedicalConditions  []string `json:"medicalConditions"`
	ProfileImage       string   `json:"profileImage"`
	LanguagePreference string   `json:"languagePreference"`
}

func (in ProfileInput) profile() model.Profile {
	return model.Profile{
		FullName:           in.FullName,
		Age:                in.Age,
		Gender:             model.Gender(in.Gender),
		MedicalConditions:  in.MedicalConditions,
		ProfileImage:       in.ProfileImage,
		LanguagePreference: in.LanguagePreference,
	}
}

// CreateInput 建立资料输入
type CreateInput struct {
	Email string `json:"email" binding:"required,email"`
	ProfileInput
}

// RoleInput 角色输入
type RoleInput struct {
	Role string `json:"role" binding:"required,oneof=user doctor admin"`
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	response.HandleError(c, err, response.UserCodes)
}

// CreateProfile 首次登录后建立资料
// @Router /users [post]
func (h *UserHandler) CreateProfile(c *gin.Context) {
	var input CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	id, _ := middleware.CurrentUserID(c)
	user, err := h.service.CreateProfile(c.Request.Context(), id, input.Email, input.profile())
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, user)
}

// GetMe 当前用户资料
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	id, _ := middleware.CurrentUserID(c)
	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateMe 修改当前用户资料
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var input ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	id, _ := middleware.CurrentUserID(c)
	user, err := h.service.UpdateProfile(c.Request.Context(), id, input.profile())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, user)
}

// GetUser 公开资料，只返回作者摘要
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	author, err := h.service.GetAuthor(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, author)
}

// GetUsers 用户列表 (管理员)
// @Router /users [get]
func (h *UserHandler) GetUsers(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	_, limit := p.GetPageOffset()
	users, total, err := h.service.GetUsers(c.Request.Context(), p.Page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: users, Total: total, Page: p.Page, Limit: limit})
}

// SetRole 修改角色 (管理员)
// @Router /users/{id}/role [put]
func (h *UserHandler) SetRole(c *gin.Context) {
	var input RoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	user, err := h.service.SetRole(c.Request.Context(), c.Param("id"), model.Role(input.Role))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, user)
}
