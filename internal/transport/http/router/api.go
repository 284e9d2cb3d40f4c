package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-chat-api/internal/chat"
	"persona-chat-api/internal/core/auth"
	"persona-chat-api/internal/core/cache"
	"persona-chat-api/internal/domain"
	mdw "persona-chat-api/internal/transport/http/middleware"
)

// Deps 路由层依赖，构造期显式注入，不做惰性初始化
type Deps struct {
	Log      *zap.Logger
	JWTer    *auth.JWTer
	Users    domain.UserRepository
	Personas domain.PersonaRepository
	Chats    domain.ChatRepository
	Messages domain.MessageRepository
	Chat     *chat.Service
	Training *chat.TrainingStore
	Cache    *cache.Cache // 可为 nil
	DataDir  string       // 上传文件落盘目录
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),      // 全局总闸
		mdw.RateLimitPerIP(20, 40),   // 单客户端限速
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		// 要盖得住网关默认 60s 超时
		mdw.Timeout(90*time.Second),
		mdw.Recovery(d.Log),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
		cors.Default(), // Web 前端跨域
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	// 人设头像静态托管
	r.Static("/static", d.DataDir)

	api := r.Group("/api/v1")

	// 鉴权分组
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.JWTer, ""))

	mountAuthActions(api, authed, d)
	mountUserRoutes(authed, d)
	mountPersonaRoutes(authed, d)
	mountChatRoutes(authed, d)

	return r
}
