package router

import (
	"context"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"persona-chat-api/internal/apperr"
	"persona-chat-api/internal/core/cache"
	"persona-chat-api/internal/domain"
	"persona-chat-api/pkg/utils"
)

const maxImageBytes = 5 << 20 // 5MB

var allowedImageExt = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
}

func mountPersonaRoutes(authed *gin.RouterGroup, d Deps) {
	ez := NewEZ(authed, d.Log)

	type personaIn struct {
		DisplayName string `json:"displayName" binding:"required"`
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		ImageURL    string `json:"imageUrl"`
	}

	RegisterAction[personaIn, *domain.Persona](ez, Action[personaIn, *domain.Persona]{
		Method: http.MethodPost,
		Path:   "/personas",
		Binder: BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *personaIn) (*domain.Persona, error) {
			p := &domain.Persona{
				ID:          utils.NewID(),
				OwnerID:     c.GetString("userId"),
				DisplayName: strings.TrimSpace(in.DisplayName),
				FirstName:   strings.TrimSpace(in.FirstName),
				LastName:    strings.TrimSpace(in.LastName),
				ImageURL:    strings.TrimSpace(in.ImageURL),
			}
			if verr := domain.ValidatePersona(p); verr != nil {
				return nil, verr
			}
			// display name 全局唯一
			if exist, err := d.Personas.FindByDisplayName(p.DisplayName); err != nil {
				return nil, err
			} else if exist != nil {
				return nil, apperr.Duplicate("persona", "display name")
			}
			if err := d.Personas.Create(p); err != nil {
				if isDupKey(err) {
					return nil, apperr.Duplicate("persona", "display name")
				}
				return nil, err
			}
			return p, nil
		},
	})

	type pageQ struct {
		Page int `form:"page,default=1"`
		Size int `form:"size,default=20"`
	}
	RegisterAction[pageQ, *domain.Paginated[domain.Persona]](ez, Action[pageQ, *domain.Paginated[domain.Persona]]{
		Method: http.MethodGet,
		Path:   "/personas",
		Binder: BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (*domain.Paginated[domain.Persona], error) {
			return d.Personas.List(in.Page, in.Size)
		},
	})

	RegisterAction[struct{}, *domain.Persona](ez, Action[struct{}, *domain.Persona]{
		Method: http.MethodGet,
		Path:   "/personas/:id",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Persona, error) {
			p, err := findPersonaCached(c, d, c.Param("id"))
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, apperr.NotFound("persona", c.Param("id"))
			}
			return p, nil
		},
	})

	RegisterAction[personaIn, *domain.Persona](ez, Action[personaIn, *domain.Persona]{
		Method: http.MethodPut,
		Path:   "/personas/:id",
		Binder: BindJSON,
		Handler: func(c *gin.Context, in *personaIn) (*domain.Persona, error) {
			p, err := d.Personas.FindByID(c.Param("id"))
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, apperr.NotFound("persona", c.Param("id"))
			}
			p.DisplayName = strings.TrimSpace(in.DisplayName)
			p.FirstName = strings.TrimSpace(in.FirstName)
			p.LastName = strings.TrimSpace(in.LastName)
			p.ImageURL = strings.TrimSpace(in.ImageURL)
			if verr := domain.ValidatePersona(p); verr != nil {
				return nil, verr
			}
			if err := d.Personas.Update(p); err != nil {
				if isDupKey(err) {
					return nil, apperr.Duplicate("persona", "display name")
				}
				return nil, err
			}
			invalidatePersonaCache(c, d, p.ID)
			return p, nil
		},
	})

	RegisterAction[struct{}, gin.H](ez, Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/personas/:id",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := d.Personas.Delete(id); err != nil {
				return nil, err
			}
			invalidatePersonaCache(c, d, id)
			return gin.H{"id": id}, nil
		},
	})

	// 训练文本单独上传/替换，和人设元数据解耦
	type trainingIn struct {
		Text string `json:"text" binding:"required"`
	}
	RegisterAction[trainingIn, gin.H](ez, Action[trainingIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/personas/:id/training",
		Binder: BindJSON,
		Handler: func(c *gin.Context, in *trainingIn) (gin.H, error) {
			p, err := d.Personas.FindByID(c.Param("id"))
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, apperr.NotFound("persona", c.Param("id"))
			}
			path, err := d.Training.Save(p.ID, in.Text)
			if err != nil {
				return nil, err
			}
			p.TrainingFilePath = path
			if err := d.Personas.Update(p); err != nil {
				return nil, err
			}
			invalidatePersonaCache(c, d, p.ID)
			return gin.H{"id": p.ID, "bytes": len(in.Text)}, nil
		},
	})

	// 头像上传：格式/大小不对 → ImageValidation；落盘失败 → ImageUpload
	RegisterUpload(ez, "/personas/:id/image", "image", func(c *gin.Context, file *multipart.FileHeader) (any, error) {
		p, err := d.Personas.FindByID(c.Param("id"))
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, apperr.NotFound("persona", c.Param("id"))
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if _, ok := allowedImageExt[ext]; !ok {
			return nil, apperr.Newf(apperr.KindImageValidation, "unsupported image extension %q", ext).
				WithReason("unsupported image format, use jpg/png/webp")
		}
		if file.Size > maxImageBytes {
			return nil, apperr.Newf(apperr.KindImageValidation, "image too large: %d bytes", file.Size).
				WithReason("image too large, max 5MB")
		}

		dst := filepath.Join(d.DataDir, "personas", p.ID+ext)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			return nil, apperr.Wrap(apperr.KindImageUpload, "save image to "+dst, err)
		}
		p.ImageURL = "/static/personas/" + p.ID + ext
		if err := d.Personas.Update(p); err != nil {
			return nil, err
		}
		invalidatePersonaCache(c, d, p.ID)
		return gin.H{"id": p.ID, "imageUrl": p.ImageURL}, nil
	})
}

// findPersonaCached 有 redis 就走读缓存（singleflight 合并回源），没有就直连 DB
func findPersonaCached(ctx context.Context, d Deps, id string) (*domain.Persona, error) {
	if d.Cache == nil {
		return d.Personas.FindByID(id)
	}
	return cache.GetOrLoadJSON(d.Cache, ctx, personaCacheKey(id), 5*time.Minute,
		func(context.Context) (*domain.Persona, error) { return d.Personas.FindByID(id) })
}

func invalidatePersonaCache(ctx context.Context, d Deps, id string) {
	if d.Cache != nil {
		_ = d.Cache.RDB.Del(ctx, personaCacheKey(id)).Err()
	}
}

func personaCacheKey(id string) string { return "persona:meta:" + id }
