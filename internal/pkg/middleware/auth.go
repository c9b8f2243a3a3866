package middleware

import (
	"net/http"
	"strings"

	userModel "healthhive/internal/domain/user/model"
	"healthhive/pkg/response"
	"healthhive/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// bearerToken 解析 "Bearer <token>"，缺失时返回空串
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", true
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// authenticate 校验令牌并写入上下文
func authenticate(c *gin.Context, token string) bool {
	claims, err := utils.ParseToken(token)
	if err != nil {
		return false
	}
	role := userModel.Role(claims.Role)
	if !role.Valid() {
		role = userModel.RoleUser
	}
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxRole, role)
	return true
}

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if token == "" {
			msg := "Authorization header is required"
			if !ok {
				msg = "Invalid authorization header format"
			}
			response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, msg)
			c.Abort()
			return
		}

		if !authenticate(c, token) {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Next()
	}
}

// OptionalAuthMiddleware 有令牌时解析身份，无令牌或令牌无效时按匿名访客处理
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, _ := bearerToken(c); token != "" {
			authenticate(c, token)
		}
		c.Next()
	}
}

// RequireRoles 角色权限中间件，需在 AuthMiddleware 之后使用
func RequireRoles(roles ...userModel.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := CurrentRole(c)
		if !exists {
			response.Error(c, http.StatusUnauthorized, response.ErrNoPermission, "Unauthorized")
			c.Abort()
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Insufficient role")
		c.Abort()
	}
}

// AdminMiddleware 管理员权限中间件
func AdminMiddleware() gin.HandlerFunc {
	return RequireRoles(userModel.RoleAdmin)
}

// CurrentUserID 当前登录用户ID
func CurrentUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ctxUserID)
	return id, id != ""
}

// CurrentRole 当前登录用户角色
func CurrentRole(c *gin.Context) (userModel.Role, bool) {
	v, exists := c.Get(ctxRole)
	if !exists {
		return "", false
	}
	role, ok := v.(userModel.Role)
	return role, ok
}

// IsAdmin 当前用户是否管理员
func IsAdmin(c *gin.Context) bool {
	role, _ := CurrentRole(c)
	return role == userModel.RoleAdmin
}
