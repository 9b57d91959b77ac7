package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin  UserRole = "admin"  // Quản trị hệ thống
	RoleMentor UserRole = "mentor" // Người hướng dẫn (nhận xét truyện)
	RoleChild  UserRole = "child"  // Trẻ em (người viết truyện)
)

type User struct {
	ID       uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	FullName string           `gorm:"size:150;not null" json:"full_name"`
	Email    string           `gorm:"size:150;uniqueIndex;not null" json:"email"`
	Password string           `gorm:"type:text;not null" json:"-"`
	Role     UserRole         `gorm:"type:varchar(20);not null;default:'child'" json:"role"`
	Tier     SubscriptionTier `gorm:"type:varchar(20);not null;default:'free'" json:"tier"`
	Age      *int             `json:"age,omitempty"`
	Status   *bool            `gorm:"default:true" json:"status"` // false = tạm khóa

	// Bộ đếm sử dụng, cập nhật khi trẻ viết truyện
	StoriesCreated    int `gorm:"default:0" json:"stories_created"`
	TotalWordsWritten int `gorm:"default:0" json:"total_words_written"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Quan hệ
	Sessions []StorySession `gorm:"foreignKey:ChildID" json:"sessions,omitempty"`
}

// Gán UUID phía ứng dụng để không phụ thuộc gen_random_uuid của Postgres
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type PasswordReset struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string    `gorm:"size:100;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	User User `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

func (p *PasswordReset) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
