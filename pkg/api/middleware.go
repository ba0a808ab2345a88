package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"TradeAssistant/pkg/logger"
)

// requestLogger 记录每个请求的方法、路径、状态码和耗时
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("HTTP请求", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("HTTP请求", fields...)
		default:
			log.Debug("HTTP请求", fields...)
		}
	}
}

// recovery 捕获 handler 中的 panic 并返回 500
func recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("处理请求时发生panic",
			logger.String("path", c.Request.URL.Path),
			logger.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
