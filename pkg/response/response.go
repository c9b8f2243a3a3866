package response

import (
	"errors"
	"net/http"

	"healthhive/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`    // 业务码
	Message string      `json:"message"` // 提示信息
	Data    interface{} `json:"data"`    // 数据
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	c.JSON(httpCode, Response{
		Code:    errCode,
		Message: msg,
		Data:    nil,
	})
}

// HandleError 按 apperr 分类映射 HTTP 状态码与业务码
// codes 由调用模块指定，例如 CommentCodes
func HandleError(c *gin.Context, err error, codes Codes) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		Error(c, http.StatusBadRequest, ErrInvalidParam, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		Error(c, http.StatusNotFound, codes.NotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		Error(c, http.StatusConflict, codes.Conflict, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		Error(c, http.StatusForbidden, codes.Forbidden, err.Error())
	case errors.Is(err, apperr.ErrStoreUnavailable):
		// 不向客户端暴露驱动错误细节
		Error(c, http.StatusServiceUnavailable, ErrStoreUnavailable, "store unavailable, please retry later")
	default:
		Error(c, http.StatusInternalServerError, ErrServerInternal, err.Error())
	}
}
