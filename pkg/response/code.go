package response

// 业务状态码
const (
	CodeSuccess = 0

	// 用户模块错误 100xx
	ErrUserExists   = 10001
	ErrUserNotFound = 10002
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 评论模块错误 300xx
	ErrCommentNotFound  = 30001
	ErrCommentConflict  = 30002
	ErrCommentForbidden = 30003

	// 系统错误 500xx
	ErrServerInternal   = 50001
	ErrInvalidParam     = 50002
	ErrTooManyRequests  = 50003
	ErrStoreUnavailable = 50004
)

// Codes 各模块专属的业务码，由 HandleError 按错误分类选用
type Codes struct {
	NotFound  int
	Conflict  int
	Forbidden int
}

var (
	UserCodes    = Codes{NotFound: ErrUserNotFound, Conflict: ErrUserExists, Forbidden: ErrNoPermission}
	CommentCodes = Codes{NotFound: ErrCommentNotFound, Conflict: ErrCommentConflict, Forbidden: ErrCommentForbidden}
)
