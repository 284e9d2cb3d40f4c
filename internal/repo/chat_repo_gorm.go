package repo

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"persona-chat-api/internal/domain"
)

type ChatRepo struct{ db *gorm.DB }

func NewChatRepo(db *gorm.DB) *ChatRepo { return &ChatRepo{db: db} }

func (r *ChatRepo) Create(c *domain.Chat) error { return r.db.Create(c).Error }

func (r *ChatRepo) FindByID(id string) (*domain.Chat, error) {
	var c domain.Chat
	err := r.db.First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepo) ListByUser(userID string, page, size int) (*domain.Paginated[domain.Chat], error) {
	page, size = domain.NormalizePage(page, size)
	q := r.db.Model(&domain.Chat{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	var cs []domain.Chat
	if err := q.Order("last_message_at DESC").Offset((page - 1) * size).Limit(size).Find(&cs).Error; err != nil {
		return nil, err
	}
	return &domain.Paginated[domain.Chat]{Items: cs, TotalCount: total, PageNumber: page, PageSize: size}, nil
}

func (r *ChatRepo) Update(c *domain.Chat) error { return r.db.Save(c).Error }

func (r *ChatRepo) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&domain.Chat{}).Error
}

// TouchLastMessage 条件更新保证 last_message_at 单调不减；
// 会话在中途被删时 RowsAffected==0，返回 false 由调用方决定是否忽略。
func (r *ChatRepo) TouchLastMessage(id string, t time.Time) (bool, error) {
	res := r.db.Model(&domain.Chat{}).
		Where("id = ? AND last_message_at <= ?", id, t).
		Update("last_message_at", t)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
