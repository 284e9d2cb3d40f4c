package router

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-chat-api/internal/apperr"
	resp "persona-chat-api/internal/transport/http/response"
)

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func NewEZ(g *gin.RouterGroup, log *zap.Logger) EZ { return EZ{g: g, log: log} }

// Action 非 CRUD 接口一行注册：I 入参，O 出参。
// handler 返回的 error 统一交给 response.Fail 翻译，这里不碰状态码。
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Status  int // 成功状态码，0 当 200
	Handler func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			resp.Fail(c, e.log, apperr.Validation(bindErr.Error()))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			resp.Fail(c, e.log, err)
			return
		}
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		c.JSON(status, out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

// RegisterUpload multipart 单文件上传（人设头像用）
func RegisterUpload(e EZ, path, fieldName string, h func(c *gin.Context, file *multipart.FileHeader) (any, error)) {
	e.g.POST(path, func(c *gin.Context) {
		file, err := c.FormFile(fieldName)
		if err != nil {
			resp.Fail(c, e.log, apperr.Wrap(apperr.KindImageValidation, "missing upload field "+fieldName, err).
				WithReason("no file uploaded"))
			return
		}
		data, err := h(c, file)
		if err != nil {
			resp.Fail(c, e.log, err)
			return
		}
		c.JSON(http.StatusOK, data)
	})
}
