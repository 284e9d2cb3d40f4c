package repo

import (
	"errors"

	"gorm.io/gorm"

	"persona-chat-api/internal/domain"
)

type MessageRepo struct{ db *gorm.DB }

func NewMessageRepo(db *gorm.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) Create(m *domain.Message) error { return r.db.Create(m).Error }

func (r *MessageRepo) FindByID(id string) (*domain.Message, error) {
	var m domain.Message
	err := r.db.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListPage 翻历史用：全局按时间正序分页
func (r *MessageRepo) ListPage(chatID string, page, size int) (*domain.Paginated[domain.Message], error) {
	page, size = domain.NormalizePage(page, size)
	q := r.db.Model(&domain.Message{}).Where("chat_id = ?", chatID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	var ms []domain.Message
	if err := q.Order("created_at ASC, id ASC").Offset((page - 1) * size).Limit(size).Find(&ms).Error; err != nil {
		return nil, err
	}
	return &domain.Paginated[domain.Message]{Items: ms, TotalCount: total, PageNumber: page, PageSize: size}, nil
}

// Recent 上下文用：先倒序取最近 limit 条，再翻回正序交给上层
func (r *MessageRepo) Recent(chatID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var ms []domain.Message
	err := r.db.Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").Limit(limit).Find(&ms).Error
	if err != nil {
		return nil, err
	}
	// 反转成 oldest-first
	for i, j := 0, len(ms)-1; i < j; i, j = i+1, j-1 {
		ms[i], ms[j] = ms[j], ms[i]
	}
	return ms, nil
}
