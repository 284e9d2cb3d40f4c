package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"persona-chat-api/internal/apperr"
	"persona-chat-api/internal/domain"
	"persona-chat-api/pkg/utils"
)

func mountChatRoutes(authed *gin.RouterGroup, d Deps) {
	ez := NewEZ(authed, d.Log)

	type chatIn struct {
		PersonaID string `json:"personaId" binding:"required"`
		Title     string `json:"title"`
	}
	RegisterAction[chatIn, *domain.Chat](ez, Action[chatIn, *domain.Chat]{
		Method: http.MethodPost,
		Path:   "/chats",
		Binder: BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *chatIn) (*domain.Chat, error) {
			persona, err := d.Personas.FindByID(in.PersonaID)
			if err != nil {
				return nil, err
			}
			if persona == nil {
				return nil, apperr.Validation("persona not found")
			}
			chatRow := &domain.Chat{
				ID:            utils.NewID(),
				UserID:        c.GetString("userId"),
				PersonaID:     in.PersonaID,
				Title:         strings.TrimSpace(in.Title),
				LastMessageAt: time.Now().UTC(),
			}
			if verr := domain.ValidateChat(chatRow); verr != nil {
				return nil, verr
			}
			if err := d.Chats.Create(chatRow); err != nil {
				return nil, err
			}
			return chatRow, nil
		},
	})

	type pageQ struct {
		Page int `form:"page,default=1"`
		Size int `form:"size,default=20"`
	}
	RegisterAction[pageQ, *domain.Paginated[domain.Chat]](ez, Action[pageQ, *domain.Paginated[domain.Chat]]{
		Method: http.MethodGet,
		Path:   "/chats",
		Binder: BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (*domain.Paginated[domain.Chat], error) {
			return d.Chats.ListByUser(c.GetString("userId"), in.Page, in.Size)
		},
	})

	RegisterAction[struct{}, *domain.Chat](ez, Action[struct{}, *domain.Chat]{
		Method: http.MethodGet,
		Path:   "/chats/:id",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Chat, error) {
			chatRow, err := findOwnChat(c, d, c.Param("id"))
			if err != nil {
				return nil, err
			}
			return chatRow, nil
		},
	})

	RegisterAction[struct{}, gin.H](ez, Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/chats/:id",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if _, err := findOwnChat(c, d, c.Param("id")); err != nil {
				return nil, err
			}
			if err := d.Chats.Delete(c.Param("id")); err != nil {
				return nil, err
			}
			return gin.H{"id": c.Param("id")}, nil
		},
	})

	// 历史消息翻页（页内按创建时间正序）
	RegisterAction[pageQ, *domain.Paginated[domain.Message]](ez, Action[pageQ, *domain.Paginated[domain.Message]]{
		Method: http.MethodGet,
		Path:   "/chats/:id/messages",
		Binder: BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (*domain.Paginated[domain.Message], error) {
			if _, err := findOwnChat(c, d, c.Param("id")); err != nil {
				return nil, err
			}
			return d.Messages.ListPage(c.Param("id"), in.Page, in.Size)
		},
	})

	// 发消息：整条编排（落用户消息 → 调 LLM → 落助手消息）在 chat.Service 里
	type sendIn struct {
		Content string `json:"content" binding:"required"`
	}
	RegisterAction[sendIn, *domain.Message](ez, Action[sendIn, *domain.Message]{
		Method: http.MethodPost,
		Path:   "/chats/:id/messages",
		Binder: BindJSON,
		Status: http.StatusCreated,
		// 注意：这里不预查会话。会话不存在由编排层报 Validation（线上
		// 行为是 400 而不是 404，先保持一致，见 chat.Service.SendMessage）。
		Handler: func(c *gin.Context, in *sendIn) (*domain.Message, error) {
			return d.Chat.SendMessage(c.Request.Context(), c.Param("id"), in.Content)
		},
	})
}

// findOwnChat 取会话并校验归属；不存在 → NotFound(404)
func findOwnChat(c *gin.Context, d Deps, id string) (*domain.Chat, error) {
	chatRow, err := d.Chats.FindByID(id)
	if err != nil {
		return nil, err
	}
	if chatRow == nil || chatRow.UserID != c.GetString("userId") {
		return nil, apperr.NotFound("chat", id)
	}
	return chatRow, nil
}
