package chat

import (
	"strings"

	"persona-chat-api/internal/domain"
)

// BuildSystemPrompt 按固定顺序拼 system prompt：身份句 → 可选真名句 →
// 可选训练文本 → 固定回复守则。纯函数，入参相同则输出逐字节一致。
// 这里不限制长度，token 上限交给下游模型侧。
func BuildSystemPrompt(p *domain.Persona, trainingText string) string {
	parts := make([]string, 0, 4)

	parts = append(parts, "You are "+p.DisplayName+", a persona chatting with a user.")

	realName := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if realName != "" {
		parts = append(parts, "Your real name is "+realName+".")
	}

	if t := strings.TrimSpace(trainingText); t != "" {
		parts = append(parts, "Background and Training: "+trainingText)
	}

	parts = append(parts, "Response Guidelines: Stay in character as "+p.DisplayName+
		" at all times and reply in a natural, conversational way.")

	return strings.Join(parts, " ")
}
