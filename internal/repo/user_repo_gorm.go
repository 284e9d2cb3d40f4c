package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"persona-chat-api/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(u *domain.User) error { return r.db.Create(u).Error }

func (r *UserRepo) FindByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.db.First(&u, "id = ? AND deleted_at IS NULL", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.db.First(&u, "email = ? AND deleted_at IS NULL", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) List(page, size int) (*domain.Paginated[domain.User], error) {
	page, size = domain.NormalizePage(page, size)
	q := r.db.Model(&domain.User{}).Where("deleted_at IS NULL")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	var users []domain.User
	if err := q.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&users).Error; err != nil {
		return nil, err
	}
	return &domain.Paginated[domain.User]{Items: users, TotalCount: total, PageNumber: page, PageSize: size}, nil
}

func (r *UserRepo) Search(q string, page, size int) (*domain.Paginated[domain.User], error) {
	page, size = domain.NormalizePage(page, size)
	tx := r.db.Model(&domain.User{}).Where("deleted_at IS NULL")
	if s := strings.TrimSpace(q); s != "" {
		like := "%" + s + "%"
		tx = tx.Where("email LIKE ? OR name LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}
	var users []domain.User
	if err := tx.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&users).Error; err != nil {
		return nil, err
	}
	return &domain.Paginated[domain.User]{Items: users, TotalCount: total, PageNumber: page, PageSize: size}, nil
}

func (r *UserRepo) Update(u *domain.User) error { return r.db.Save(u).Error }

// SoftDelete 打软删标记，永不物理删除
func (r *UserRepo) SoftDelete(id string) error {
	return r.db.Model(&domain.User{}).Where("id = ?", id).
		Update("deleted_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}
