package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StoryMode string

const (
	ModeGuided   StoryMode = "guided"   // Có bộ yếu tố truyện gợi ý
	ModeFreeform StoryMode = "freeform" // Trẻ tự viết câu mở đầu
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFlagged   SessionStatus = "flagged" // Đánh giá nghi ngờ đạo văn / nội dung AI
	SessionPaused    SessionStatus = "paused"  // Admin tạm dừng
)

// Bộ yếu tố truyện cho chế độ guided, thiếu yếu tố nào thì không hợp lệ
type StoryElements struct {
	Genre     string `gorm:"size:50" json:"genre"`
	Character string `gorm:"size:100" json:"character"`
	Setting   string `gorm:"size:100" json:"setting"`
	Theme     string `gorm:"size:100" json:"theme"`
	Mood      string `gorm:"size:50" json:"mood"`
	Tone      string `gorm:"size:50" json:"tone"`
}

func (e StoryElements) Complete() bool {
	return e.Genre != "" && e.Character != "" && e.Setting != "" &&
		e.Theme != "" && e.Mood != "" && e.Tone != ""
}

type StorySession struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChildID uuid.UUID `gorm:"type:uuid;not null;index" json:"child_id"`
	Child   User      `gorm:"foreignKey:ChildID;constraint:OnDelete:CASCADE;" json:"child,omitempty"`

	StoryNumber int           `gorm:"not null" json:"story_number"` // tuần tự theo từng trẻ
	Title       string        `gorm:"size:255" json:"title"`
	Mode        StoryMode     `gorm:"type:varchar(20);not null" json:"mode"`
	Elements    StoryElements `gorm:"embedded;embeddedPrefix:element_" json:"elements"`
	Opening     string        `gorm:"type:text" json:"opening"`

	CurrentTurn  int `gorm:"default:1" json:"current_turn"` // chỉ tăng, không bao giờ giảm
	ChildWords   int `gorm:"default:0" json:"child_words"`
	AiWords      int `gorm:"default:0" json:"ai_words"`
	ApiCallsUsed int `gorm:"default:0" json:"api_calls_used"`
	MaxApiCalls  int `gorm:"not null" json:"max_api_calls"`

	Status SessionStatus `gorm:"type:varchar(20);default:'active'" json:"status"`

	// Kết quả đánh giá khi hoàn thành (JSON thô từ AI hoặc ghi chú "pending")
	Assessment    string   `gorm:"type:text" json:"assessment,omitempty"`
	OverallScore  *float64 `gorm:"type:numeric(5,2)" json:"overall_score,omitempty"`
	IntegrityRisk string   `gorm:"size:20" json:"integrity_risk,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Turns    []Turn    `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE;" json:"turns,omitempty"`
	Comments []Comment `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE;" json:"comments,omitempty"`
}

func (s *StorySession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Một lượt kể trong phiên truyện, bất biến sau khi tạo.
// Index unique (session_id, turn_number) chặn lượt kể trùng số.
type Turn struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_session_turn" json:"session_id"`
	TurnNumber int       `gorm:"not null;uniqueIndex:idx_session_turn" json:"turn_number"`
	ChildText  string    `gorm:"type:text;not null" json:"child_text"`
	AiResponse string    `gorm:"type:text" json:"ai_response"`
	ChildWords int       `gorm:"default:0" json:"child_words"`
	AiWords    int       `gorm:"default:0" json:"ai_words"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (t *Turn) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
