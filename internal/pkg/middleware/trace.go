package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxTraceID    = "traceID"
	headerTraceID = "X-Trace-ID"
	maxTraceIDLen = 128
)

// TraceMiddleware 沿用网关传入的追踪ID，缺失或不合法时生成新的
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(headerTraceID)
		if !validTraceID(traceID) {
			traceID = uuid.New().String()
		}

		c.Set(ctxTraceID, traceID)
		c.Header(headerTraceID, traceID)

		c.Next()
	}
}

// TraceID 当前请求的追踪ID，未经过 TraceMiddleware 时为空
func TraceID(c *gin.Context) string {
	return c.GetString(ctxTraceID)
}

// validTraceID 只接受有限长度的可打印 ASCII，避免日志注入
func validTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
