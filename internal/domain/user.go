package domain

import "time"

type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Name         string     `gorm:"size:64" json:"name"`
	Email        string     `gorm:"uniqueIndex;size:191" json:"email"`
	Phone        string     `gorm:"size:32" json:"phone,omitempty"`
	AuthSubject  string     `gorm:"index;size:191" json:"-"` // 外部认证（OIDC）sub
	PasswordHash string     `gorm:"size:191" json:"-"`
	Role         string     `gorm:"size:16" json:"role"` // "user"/"admin"
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `gorm:"index" json:"-"` // 软删，不做物理删除
}

type UserRepository interface {
	Create(u *User) error
	FindByID(id string) (*User, error)
	FindByEmail(email string) (*User, error)
	List(page, size int) (*Paginated[User], error)
	// Search 按 email/name 模糊搜（管理端用）；q 为空退化成 List
	Search(q string, page, size int) (*Paginated[User], error)
	Update(u *User) error
	SoftDelete(id string) error
}
