package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentType string

const (
	CommentGeneral       CommentType = "general"
	CommentGrammar       CommentType = "grammar"
	CommentCreativity    CommentType = "creativity"
	CommentStructure     CommentType = "structure"
	CommentSuggestion    CommentType = "suggestion"
	CommentAdminFeedback CommentType = "admin_feedback"
)

func ValidCommentType(t CommentType) bool {
	switch t {
	case CommentGeneral, CommentGrammar, CommentCreativity,
		CommentStructure, CommentSuggestion, CommentAdminFeedback:
		return true
	}
	return false
}

// Nhận xét của mentor/admin trên một phiên truyện
type Comment struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  uuid.UUID   `gorm:"type:uuid;not null;index" json:"session_id"`
	AuthorID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"author_id"`
	Type       CommentType `gorm:"type:varchar(30);not null;default:'general'" json:"type"`
	Content    string      `gorm:"type:text;not null" json:"content"`
	Resolved   bool        `gorm:"default:false" json:"resolved"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`

	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE;" json:"author,omitempty"`
}

func (cm *Comment) BeforeCreate(tx *gorm.DB) error {
	if cm.ID == uuid.Nil {
		cm.ID = uuid.New()
	}
	return nil
}
