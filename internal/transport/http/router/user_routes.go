package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"persona-chat-api/internal/apperr"
	"persona-chat-api/internal/domain"
)

func mountUserRoutes(authed *gin.RouterGroup, d Deps) {
	ez := NewEZ(authed, d.Log)

	RegisterAction[struct{}, *domain.User](ez, Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			u, err := d.Users.FindByID(c.Param("id"))
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, apperr.NotFound("user", c.Param("id"))
			}
			return u, nil
		},
	})

	type updateIn struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	RegisterAction[updateIn, *domain.User](ez, Action[updateIn, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id",
		Binder: BindJSON,
		Handler: func(c *gin.Context, in *updateIn) (*domain.User, error) {
			id := c.Param("id")
			// 只能改自己
			if id != c.GetString("userId") {
				return nil, apperr.Validation("cannot update another user")
			}
			u, err := d.Users.FindByID(id)
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, apperr.NotFound("user", id)
			}
			u.Name = strings.TrimSpace(in.Name)
			u.Phone = strings.TrimSpace(in.Phone)
			if verr := domain.ValidateUser(u); verr != nil {
				return nil, verr
			}
			if err := d.Users.Update(u); err != nil {
				return nil, err
			}
			return u, nil
		},
	})

	// 注销=软删，账号数据保留
	RegisterAction[struct{}, gin.H](ez, Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if id != c.GetString("userId") {
				return nil, apperr.Validation("cannot delete another user")
			}
			if err := d.Users.SoftDelete(id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
}
