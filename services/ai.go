package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mintoons/mintoons-backend/models"
)

// Metadata kèm theo khi chấm truyện
type AssessmentMeta struct {
	Title      string `json:"title"`
	ChildAge   int    `json:"child_age"`
	TurnCount  int    `json:"turn_count"`
	ChildWords int    `json:"child_words"`
}

// Kết quả chấm truyện nhiều tiêu chí từ AI
type Assessment struct {
	GrammarScore    int      `json:"grammar_score"`
	CreativityScore int      `json:"creativity_score"`
	VocabularyScore int      `json:"vocabulary_score"`
	StructureScore  int      `json:"structure_score"`
	CharacterScore  int      `json:"character_score"`
	PlotScore       int      `json:"plot_score"`
	OverallScore    int      `json:"overall_score"`
	ReadingLevel    string   `json:"reading_level"`
	Feedback        string   `json:"feedback"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`

	// Kiểm tra tính nguyên bản
	IntegrityRisk    string `json:"integrity_risk"` // low | medium | high | critical
	PlagiarismScore  int    `json:"plagiarism_score"`
	AiDetectionScore int    `json:"ai_detection_score"`
}

// Flagged = nghi ngờ đạo văn hoặc nội dung do AI viết
func (a *Assessment) Flagged() bool {
	return a.IntegrityRisk == "high" || a.IntegrityRisk == "critical"
}

// StoryAI là hợp đồng với engine sinh văn bản bên ngoài.
// Mọi lỗi từ engine phải được caller thay bằng nội dung dự phòng,
// không được làm hỏng luồng người dùng.
type StoryAI interface {
	GenerateOpening(ctx context.Context, elements models.StoryElements) (string, error)
	GenerateContinuation(ctx context.Context, childText string, previous []models.Turn, turnNumber int) (string, error)
	PerformAssessment(ctx context.Context, fullText string, meta AssessmentMeta) (*Assessment, error)
}

// Câu mở đầu dự phòng, dựng thuần từ bộ yếu tố nên luôn có kết quả
func FallbackOpening(e models.StoryElements) string {
	return fmt.Sprintf(
		"Once upon a time, in a %s world full of %s adventures, there lived %s in %s. "+
			"A story about %s was about to begin...",
		e.Mood, e.Genre, e.Character, e.Setting, e.Theme,
	)
}

var fallbackContinuations = []string{
	"What an exciting turn! What do you think happens next?",
	"The adventure continues... How does your hero react to this?",
	"Something unexpected was waiting just around the corner. What could it be?",
	"Your story is getting better and better! What happens now?",
	"Suddenly, everything changed. Tell me what your character does next!",
	"The plot thickens! Where does the journey lead from here?",
}

// Câu dẫn dự phòng khi AI lỗi, xoay vòng theo số lượt để không lặp
func FallbackContinuation(turnNumber int) string {
	if turnNumber < 1 {
		turnNumber = 1
	}
	return fallbackContinuations[(turnNumber-1)%len(fallbackContinuations)]
}

// Ghép toàn bộ truyện: mở đầu + các đoạn trẻ viết, dùng khi chấm điểm
func AssembleStoryText(opening string, turns []models.Turn) string {
	var sb strings.Builder
	if strings.TrimSpace(opening) != "" {
		sb.WriteString(strings.TrimSpace(opening))
	}
	for _, t := range turns {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(t.ChildText))
	}
	return sb.String()
}
