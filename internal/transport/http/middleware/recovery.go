package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "persona-chat-api/internal/transport/http/response"
)

// Recovery panic 兜底：细节进日志，对外只给统一 500 文案
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", c.FullPath()),
					zap.Stack("stack"),
				)
				excType := fmt.Sprintf("%T", rec)
				c.Header(resp.HeaderExceptionType, excType)
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp.ErrorBody{
					StatusCode:           http.StatusInternalServerError,
					Message:              resp.GenericErrorMessage,
					ExceptionType:        excType,
					IsBusinessException:  false,
					IsTechnicalException: true,
					Timestamp:            time.Now().UTC().Format(time.RFC3339),
				})
			}
		}()
		c.Next()
	}
}
