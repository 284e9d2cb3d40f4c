package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"persona-chat-api/internal/apperr"
	"persona-chat-api/internal/domain"
	"persona-chat-api/pkg/utils"
)

// /auth/login：查不到就自动注册 + 发 JWT；/me 拿当前用户
func mountAuthActions(api, authed *gin.RouterGroup, d Deps) {
	ezPublic := NewEZ(api, d.Log)

	type loginIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"     binding:"omitempty,max=64"` // 首次注册可用
		Phone    string `json:"phone"    binding:"omitempty,max=32"`
	}
	type loginOut struct {
		Token string       `json:"token"`
		IsNew bool         `json:"isNew"`
		User  *domain.User `json:"user"`
	}
	RegisterAction[loginIn, loginOut](ezPublic, Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			email := strings.TrimSpace(in.Email)

			u, err := d.Users.FindByEmail(email)
			if err != nil {
				return loginOut{}, err
			}

			if u == nil {
				// 自动注册
				name := strings.TrimSpace(in.Name)
				if name == "" {
					if at := strings.IndexByte(email, '@'); at > 0 {
						name = email[:at]
					} else {
						name = "user"
					}
				}
				u = &domain.User{
					ID:           utils.NewID(),
					Email:        email,
					Name:         name,
					Phone:        strings.TrimSpace(in.Phone),
					PasswordHash: utils.HashPassword(in.Password),
					Role:         "user",
				}
				if verr := domain.ValidateUser(u); verr != nil {
					return loginOut{}, verr
				}
				if err := d.Users.Create(u); err != nil {
					// 并发兜底：唯一冲突 → 再查一次
					if isDupKey(err) {
						if u, err = d.Users.FindByEmail(email); err != nil || u == nil {
							return loginOut{}, apperr.Duplicate("user", "email")
						}
					} else {
						return loginOut{}, err
					}
				}
				tok, err := d.JWTer.Issue(u.ID, u.Role)
				if err != nil {
					return loginOut{}, err
				}
				return loginOut{Token: tok, IsNew: true, User: u}, nil
			}

			// 已存在 → 校验密码
			if !utils.CheckPassword(in.Password, u.PasswordHash) {
				return loginOut{}, apperr.Validation("invalid credentials")
			}
			tok, err := d.JWTer.Issue(u.ID, u.Role)
			if err != nil {
				return loginOut{}, err
			}
			return loginOut{Token: tok, IsNew: false, User: u}, nil
		},
	})

	ezAuth := NewEZ(authed, d.Log)
	RegisterAction[struct{}, *domain.User](ezAuth, Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			u, err := d.Users.FindByID(c.GetString("userId"))
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, apperr.NotFound("user", c.GetString("userId"))
			}
			return u, nil
		},
	})
}

func isDupKey(err error) bool {
	// 不依赖 gorm.ErrDuplicatedKey，避免驱动差异导致匹配不上
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "unique failed")
}
