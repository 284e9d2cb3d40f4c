package domain

import "time"

// Chat 一个用户和一个人设的会话。LastMessageAt 只增不减。
type Chat struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"index;size:36" json:"userId"`
	PersonaID     string    `gorm:"index;size:36" json:"personaId"`
	Title         string    `gorm:"size:255" json:"title,omitempty"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type ChatRepository interface {
	Create(c *Chat) error
	FindByID(id string) (*Chat, error)
	ListByUser(userID string, page, size int) (*Paginated[Chat], error)
	Update(c *Chat) error
	Delete(id string) error
	// TouchLastMessage 更新 last_message_at；时间倒退时不写（保持单调）。
	// 行不存在返回 (false, nil)，调用方自行决定是否当错误。
	TouchLastMessage(id string, t time.Time) (bool, error)
}
