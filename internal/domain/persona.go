package domain

import "time"

// Persona 聊天人设。TrainingFilePath 指向落盘的训练文本，
// 训练文本与元数据分开维护（可以单独上传/替换）。
type Persona struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID          string    `gorm:"index;size:36" json:"ownerId"`
	DisplayName      string    `gorm:"uniqueIndex;size:64" json:"displayName"`
	FirstName        string    `gorm:"size:64" json:"firstName,omitempty"`
	LastName         string    `gorm:"size:64" json:"lastName,omitempty"`
	ImageURL         string    `gorm:"size:255" json:"imageUrl,omitempty"`
	TrainingFilePath string    `gorm:"size:255" json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type PersonaRepository interface {
	Create(p *Persona) error
	FindByID(id string) (*Persona, error)
	FindByDisplayName(name string) (*Persona, error)
	List(page, size int) (*Paginated[Persona], error)
	Update(p *Persona) error
	Delete(id string) error
}
