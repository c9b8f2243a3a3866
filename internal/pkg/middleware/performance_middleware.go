package middleware

import (
	"net/http"
	"time"

	"healthhive/pkg/metrics"
	"healthhive/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MetricsMiddleware 记录 HTTP 请求指标，endpoint 使用路由模板避免高基数
func MetricsMiddleware(collector *metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start), c.Writer.Size())
	}
}

// RecoveryMiddleware 捕获 panic 并返回统一错误
func RecoveryMiddleware(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("trace_id", TraceID(c)),
		)
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "internal server error")
		c.Abort()
	})
}

// SecurityHeadersMiddleware 安全头中间件
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}
