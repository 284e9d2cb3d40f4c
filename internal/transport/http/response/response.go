// Package response 出错边界：把任意内部错误翻译成统一的 HTTP 响应。
// Business 类错误的 reason 原样下发；Technical 类和没归类的错误
// 一律兜底文案，细节只进服务端日志。
package response

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-chat-api/internal/apperr"
)

// GenericErrorMessage Technical/未分类错误对外的固定文案
const GenericErrorMessage = "Sorry, something went wrong on our side. Please try again later."

// HeaderExceptionType 诊断用响应头（只含类型名，不含细节）
const HeaderExceptionType = "Exception-Type"

// ErrorBody 错误响应契约
type ErrorBody struct {
	StatusCode           int    `json:"statusCode"`
	Message              string `json:"message"`
	ExceptionType        string `json:"exceptionType"`
	IsBusinessException  bool   `json:"isBusinessException"`
	IsTechnicalException bool   `json:"isTechnicalException"`
	Timestamp            string `json:"timestamp"` // ISO8601 UTC
}

func OK(c *gin.Context, data any) { c.JSON(http.StatusOK, data) }

func Created(c *gin.Context, data any) { c.JSON(http.StatusCreated, data) }

// Fail 翻译并写出错误响应。翻译之前先把完整细节落日志，
// 下发内容与日志内容解耦。
func Fail(c *gin.Context, l *zap.Logger, err error) {
	status := http.StatusInternalServerError
	message := GenericErrorMessage
	excType := fmt.Sprintf("%T", err)
	business := false

	var ae *apperr.Error
	if errors.As(err, &ae) {
		excType = string(ae.Kind)
		if ae.Kind.IsBusiness() {
			business = true
			message = ae.Reason
			if ae.Kind == apperr.KindNotFound {
				status = http.StatusNotFound
			} else {
				status = http.StatusBadRequest
			}
		}
	}

	if l != nil {
		l.Error("request failed",
			zap.String("exception_type", excType),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
	}

	c.Header(HeaderExceptionType, excType)
	c.AbortWithStatusJSON(status, ErrorBody{
		StatusCode:           status,
		Message:              message,
		ExceptionType:        excType,
		IsBusinessException:  business,
		IsTechnicalException: !business,
		Timestamp:            time.Now().UTC().Format(time.RFC3339),
	})
}
