package router

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"persona-chat-api/internal/apperr"
	"persona-chat-api/internal/core/auth"
	"persona-chat-api/internal/domain"
	mdw "persona-chat-api/internal/transport/http/middleware"
)

// NewAdminEngine 管理端：用户列表/封禁 + /metrics，统一要求 admin 角色
func NewAdminEngine(l *zap.Logger, users domain.UserRepository, jwter *auth.JWTer) *gin.Engine {
	r := gin.New()

	r.Use(
		ginzap.Ginzap(l, time.RFC3339, true),
		ginzap.RecoveryWithZap(l, true),
		mdw.RequestID(),
		mdw.Metrics(),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, "admin"))

	ez := NewEZ(admin, l)

	type listQ struct {
		Page int    `form:"page,default=1"`
		Size int    `form:"size,default=20"`
		Q    string `form:"q"` // 按 email/name 模糊搜
	}
	RegisterAction[listQ, *domain.Paginated[domain.User]](ez, Action[listQ, *domain.Paginated[domain.User]]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: BindQuery,
		Handler: func(c *gin.Context, in *listQ) (*domain.Paginated[domain.User], error) {
			return users.Search(in.Q, in.Page, in.Size)
		},
	})

	// 封禁=软删
	RegisterAction[struct{}, gin.H](ez, Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/users/:id/ban",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			u, err := users.FindByID(id)
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, apperr.NotFound("user", id)
			}
			if err := users.SoftDelete(id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})

	return r
}
