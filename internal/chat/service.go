// Package chat 消息发送编排：落用户消息 → 取会话/人设/历史 →
// 拼 prompt 调网关 → 落助手消息 → 更新会话时间戳。
// 严格串行，步骤之间不并发；子调用抛出的错误原样上抛，
// 翻译成 HTTP 响应是边界层（response 包）的事。
package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"persona-chat-api/internal/apperr"
	"persona-chat-api/internal/domain"
	"persona-chat-api/internal/gateway/openai"
	"persona-chat-api/pkg/utils"
)

const DefaultHistoryLimit = 50

// Generator 网关抽象（生产用 openai.Client，测试注入假实现）
type Generator interface {
	GenerateChatCompletion(ctx context.Context, systemPrompt string, history []openai.ChatMessage) (string, error)
}

type Service struct {
	chats        domain.ChatRepository
	messages     domain.MessageRepository
	personas     domain.PersonaRepository
	gateway      Generator
	training     *TrainingStore
	historyLimit int
	log          *zap.Logger
}

// NewService 依赖全部在构造时显式传入，不做惰性初始化
func NewService(
	chats domain.ChatRepository,
	messages domain.MessageRepository,
	personas domain.PersonaRepository,
	gateway Generator,
	training *TrainingStore,
	log *zap.Logger,
) *Service {
	return &Service{
		chats:        chats,
		messages:     messages,
		personas:     personas,
		gateway:      gateway,
		training:     training,
		historyLimit: DefaultHistoryLimit,
		log:          log,
	}
}

// WithHistoryLimit 覆盖默认上下文条数（配置 chat.history_limit），n<=0 不生效
func (s *Service) WithHistoryLimit(n int) *Service {
	if n > 0 {
		s.historyLimit = n
	}
	return s
}

// SendMessage 处理一次用户发言并返回生成的助手消息。
//
// 失败语义（有意为之，改动需产品确认）：
//   - 第 1 步之前失败：无任何副作用；
//   - 用户消息落库之后任何一步失败：不回滚用户消息，
//     前端可以只重试生成，不算数据损坏；
//   - 会话在第 7 步之前被删：静默跳过时间戳更新（助手消息已保存）。
func (s *Service) SendMessage(ctx context.Context, chatID, content string) (*domain.Message, error) {
	// 1. 校验并落库用户消息（任何外部调用之前）
	userMsg := &domain.Message{
		ID:      utils.NewID(),
		ChatID:  chatID,
		Role:    domain.RoleUser,
		Content: content,
	}
	if verr := domain.ValidateMessage(userMsg); verr != nil {
		return nil, verr
	}
	if err := s.messages.Create(userMsg); err != nil {
		return nil, err
	}

	// 2. 取会话。这里沿用线上行为报 Validation 而不是 NotFound（前端按 400 处理），
	// 对齐其余 CRUD 接口前先别改。
	chatRow, err := s.chats.FindByID(chatID)
	if err != nil {
		return nil, err
	}
	if chatRow == nil {
		return nil, apperr.Validation("chat not found")
	}

	// 3. 最近 50 条历史（含刚落库的用户消息），正序作为上下文
	history, err := s.messages.Recent(chatID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	// 4. 人设 + 可选训练文本（文本缺失按空处理，不当错误）
	persona, err := s.personas.FindByID(chatRow.PersonaID)
	if err != nil {
		return nil, err
	}
	if persona == nil {
		return nil, apperr.Validation("persona not found")
	}
	trainingText, err := s.training.Load(ctx, persona.TrainingFilePath)
	if err != nil {
		return nil, err
	}

	// 5. 拼 prompt 调网关。网关错误原样上抛，第 1 步的用户消息不回滚。
	prompt := BuildSystemPrompt(persona, trainingText)
	reply, err := s.gateway.GenerateChatCompletion(ctx, prompt, toGatewayHistory(history))
	if err != nil {
		return nil, err
	}

	// 6. 校验并落库助手消息
	assistantMsg := &domain.Message{
		ID:      utils.NewID(),
		ChatID:  chatID,
		Role:    domain.RoleAssistant,
		Content: reply,
	}
	if verr := domain.ValidateMessage(assistantMsg); verr != nil {
		return nil, verr
	}
	if err := s.messages.Create(assistantMsg); err != nil {
		return nil, err
	}

	// 7. 更新会话时间戳；会话中途被删只记 debug 不报错
	touched, err := s.chats.TouchLastMessage(chatID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !touched {
		s.log.Debug("chat gone before lastMessageAt update, skipped",
			zap.String("chat_id", chatID))
	}

	return assistantMsg, nil
}

func toGatewayHistory(msgs []domain.Message) []openai.ChatMessage {
	out := make([]openai.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
