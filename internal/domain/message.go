package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// MaxMessageContentLen 单条消息内容上限（字符数）
	MaxMessageContentLen = 10000
)

// Message 会话内一条消息。同一会话内按创建时间只追加不修改。
type Message struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ChatID    string    `gorm:"index:idx_chat_created,priority:1;size:36" json:"chatId"`
	Role      string    `gorm:"size:16" json:"role"` // user / assistant
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_chat_created,priority:2" json:"createdAt"`
}

type MessageRepository interface {
	Create(m *Message) error
	FindByID(id string) (*Message, error)
	// ListPage 会话消息分页，页内按创建时间正序（给前端翻历史用）
	ListPage(chatID string, page, size int) (*Paginated[Message], error)
	// Recent 取最近 limit 条并按时间正序返回（给 LLM 上下文用，两种排序用途不同）
	Recent(chatID string, limit int) ([]Message, error)
}
