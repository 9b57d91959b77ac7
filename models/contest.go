package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContestStatus string

const (
	ContestDraft            ContestStatus = "draft"
	ContestActive           ContestStatus = "active"
	ContestEnded            ContestStatus = "ended"
	ContestResultsPublished ContestStatus = "results_published"
)

// Vòng đời cuộc thi đi một chiều: draft → active → ended → results_published
func (s ContestStatus) CanTransitionTo(next ContestStatus) bool {
	switch s {
	case ContestDraft:
		return next == ContestActive
	case ContestActive:
		return next == ContestEnded
	case ContestEnded:
		return next == ContestResultsPublished
	}
	return false
}

type Contest struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Slug        string        `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description string        `gorm:"type:text" json:"description"`
	Rules       string        `gorm:"type:text" json:"rules"`
	Prizes      string        `gorm:"type:text" json:"prizes"`
	Status      ContestStatus `gorm:"type:varchar(30);default:'draft'" json:"status"`
	StartsAt    *time.Time    `json:"starts_at,omitempty"`
	EndsAt      *time.Time    `json:"ends_at,omitempty"`
	CreatedBy   uuid.UUID     `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`

	Submissions []ContestSubmission `gorm:"foreignKey:ContestID;constraint:OnDelete:CASCADE;" json:"submissions,omitempty"`
}

func (ct *Contest) BeforeCreate(tx *gorm.DB) error {
	if ct.ID == uuid.Nil {
		ct.ID = uuid.New()
	}
	return nil
}

// Bài dự thi: một trẻ chỉ nộp một truyện cho mỗi cuộc thi
type ContestSubmission struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContestID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contest_child" json:"contest_id"`
	ChildID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contest_child" json:"child_id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null" json:"session_id"`
	Place     int       `gorm:"default:0" json:"place"` // 0 = chưa xếp giải
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Child   User         `gorm:"foreignKey:ChildID;constraint:OnDelete:CASCADE;" json:"child,omitempty"`
	Session StorySession `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE;" json:"session,omitempty"`
}

func (cs *ContestSubmission) BeforeCreate(tx *gorm.DB) error {
	if cs.ID == uuid.Nil {
		cs.ID = uuid.New()
	}
	return nil
}
