package repo

import (
	"errors"

	"gorm.io/gorm"

	"persona-chat-api/internal/domain"
)

type PersonaRepo struct{ db *gorm.DB }

func NewPersonaRepo(db *gorm.DB) *PersonaRepo { return &PersonaRepo{db: db} }

func (r *PersonaRepo) Create(p *domain.Persona) error { return r.db.Create(p).Error }

func (r *PersonaRepo) FindByID(id string) (*domain.Persona, error) {
	var p domain.Persona
	err := r.db.First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PersonaRepo) FindByDisplayName(name string) (*domain.Persona, error) {
	var p domain.Persona
	err := r.db.First(&p, "display_name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PersonaRepo) List(page, size int) (*domain.Paginated[domain.Persona], error) {
	page, size = domain.NormalizePage(page, size)
	q := r.db.Model(&domain.Persona{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	var ps []domain.Persona
	if err := q.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&ps).Error; err != nil {
		return nil, err
	}
	return &domain.Paginated[domain.Persona]{Items: ps, TotalCount: total, PageNumber: page, PageSize: size}, nil
}

func (r *PersonaRepo) Update(p *domain.Persona) error { return r.db.Save(p).Error }

func (r *PersonaRepo) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&domain.Persona{}).Error
}
