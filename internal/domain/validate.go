package domain

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"persona-chat-api/internal/apperr"
)

// 纯函数校验器：不碰网络和存储，一个实体的所有违规合并成一个 Validation 错误，
// 各字段信息用 "; " 连接（ozzo 的 Errors.Error() 正好是这个格式）。

var phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\-\s]{5,19}$`)

// notBlank 必填且不能全空白（ozzo 的 Required 不会 trim）
var notBlank = validation.By(func(v any) error {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return validation.ErrRequired
	}
	return nil
})

func asValidationErr(err error) *apperr.Error {
	if err == nil {
		return nil
	}
	return apperr.Validation(err.Error())
}

func ValidateUser(u *User) *apperr.Error {
	return asValidationErr(validation.ValidateStruct(u,
		validation.Field(&u.Name, notBlank),
		validation.Field(&u.Email, notBlank, is.Email),
		// 可选字段只在非空时校验格式
		validation.Field(&u.Phone, validation.When(strings.TrimSpace(u.Phone) != "",
			validation.Match(phoneRe).Error("must be a valid phone number"))),
	))
}

func ValidatePersona(p *Persona) *apperr.Error {
	return asValidationErr(validation.ValidateStruct(p,
		validation.Field(&p.DisplayName, notBlank, validation.Length(0, 64)),
		validation.Field(&p.ImageURL, validation.When(strings.TrimSpace(p.ImageURL) != "", is.URL)),
	))
}

func ValidateChat(c *Chat) *apperr.Error {
	return asValidationErr(validation.ValidateStruct(c,
		validation.Field(&c.UserID, notBlank),
		validation.Field(&c.PersonaID, notBlank),
	))
}

func ValidateMessage(m *Message) *apperr.Error {
	return asValidationErr(validation.ValidateStruct(m,
		validation.Field(&m.ChatID, notBlank),
		validation.Field(&m.Role, notBlank, validation.In(RoleUser, RoleAssistant).Error("must be user or assistant")),
		validation.Field(&m.Content, notBlank, validation.RuneLength(0, MaxMessageContentLen)),
	))
}
