package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mintoons/mintoons-backend/models"
)

// GeminiAI triển khai StoryAI trên Gemini
type GeminiAI struct {
	Model string
}

func NewGeminiAI() *GeminiAI {
	return &GeminiAI{Model: "gemini-2.0-flash"}
}

// Hàm gọn để xử lý prompt và trả kết quả từ Gemini
func (g *GeminiAI) generateText(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(os.Getenv("GEMINI_API_KEY")))
	if err != nil {
		return "", fmt.Errorf("không thể tạo Gemini client: %v", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.Model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("lỗi Gemini xử lý: %v", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini không trả kết quả hợp lệ")
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

// Retry có backoff tuyến tính, Gemini hay lỗi 429 thoáng qua
func (g *GeminiAI) generateWithRetry(ctx context.Context, prompt string, retries int) (string, error) {
	var resp string
	var err error
	for i := 0; i < retries; i++ {
		resp, err = g.generateText(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}
	return "", err
}

func (g *GeminiAI) GenerateOpening(ctx context.Context, e models.StoryElements) (string, error) {
	prompt := fmt.Sprintf(`
Bạn là AI kể chuyện cùng trẻ em trên nền tảng viết truyện Mintoons.
Hãy viết MỘT đoạn mở đầu truyện (2-3 câu) bằng tiếng Anh đơn giản, phù hợp trẻ 5-15 tuổi, dựa trên các yếu tố:

- Thể loại: %s
- Nhân vật chính: %s
- Bối cảnh: %s
- Chủ đề: %s
- Không khí: %s
- Giọng kể: %s

Kết thúc đoạn mở đầu bằng một tình huống gợi mở để trẻ viết tiếp.
Chỉ trả về đoạn mở đầu, không thêm bất kỳ văn bản nào khác.
`, e.Genre, e.Character, e.Setting, e.Theme, e.Mood, e.Tone)

	text, err := g.generateWithRetry(ctx, prompt, 3)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiAI) GenerateContinuation(ctx context.Context, childText string, previous []models.Turn, turnNumber int) (string, error) {
	// Ghép ngữ cảnh hội thoại từ các lượt trước
	var sb strings.Builder
	for _, t := range previous {
		sb.WriteString(fmt.Sprintf("Trẻ (lượt %d): %s\n", t.TurnNumber, t.ChildText))
		if t.AiResponse != "" {
			sb.WriteString(fmt.Sprintf("AI: %s\n", t.AiResponse))
		}
	}

	prompt := fmt.Sprintf(`
Bạn là AI kể chuyện cùng trẻ em trên nền tảng viết truyện Mintoons.
Truyện được viết luân phiên, trẻ viết một đoạn rồi bạn viết tiếp MỘT đoạn ngắn (1-2 câu) bằng đúng ngôn ngữ trẻ đang viết.

Yêu cầu:
- Nội dung trong sáng, phù hợp trẻ 5-15 tuổi.
- Không kết thúc truyện, luôn mở ra tình huống để trẻ viết tiếp.
- Đây là lượt số %d trên 7 lượt.

Ngữ cảnh các lượt trước:
%s
Đoạn trẻ vừa viết: %s

Chỉ trả về đoạn viết tiếp, không thêm bất kỳ văn bản nào khác.
`, turnNumber, sb.String(), childText)

	text, err := g.generateWithRetry(ctx, prompt, 3)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiAI) PerformAssessment(ctx context.Context, fullText string, meta AssessmentMeta) (*Assessment, error) {
	prompt := fmt.Sprintf(`
Bạn là AI chấm bài viết sáng tạo của trẻ em (%d tuổi) trên nền tảng Mintoons.
Hãy chấm toàn bộ truyện dưới đây (trẻ viết %d đoạn, %d từ) theo thang 0-100 cho từng tiêu chí,
đồng thời ước lượng nguy cơ đạo văn / nội dung do AI viết hộ.

Trả về JSON hợp lệ đúng cấu trúc:
{
  "grammar_score": 0-100,
  "creativity_score": 0-100,
  "vocabulary_score": 0-100,
  "structure_score": 0-100,
  "character_score": 0-100,
  "plot_score": 0-100,
  "overall_score": 0-100,
  "reading_level": "beginner|elementary|intermediate|advanced",
  "feedback": "2-3 câu nhận xét động viên, bằng ngôn ngữ trẻ đang viết",
  "strengths": ["..."],
  "improvements": ["..."],
  "integrity_risk": "low|medium|high|critical",
  "plagiarism_score": 0-100,
  "ai_detection_score": 0-100
}

Chỉ trả về JSON hợp lệ, không thêm bất kỳ văn bản nào khác.

Truyện "%s":
%s
`, meta.ChildAge, meta.TurnCount, meta.ChildWords, meta.Title, fullText)

	raw, err := g.generateWithRetry(ctx, prompt, 3)
	if err != nil {
		return nil, err
	}

	var result Assessment
	if err := json.Unmarshal([]byte(cleanGeminiJSON(raw)), &result); err != nil {
		return nil, fmt.Errorf("parse JSON đánh giá lỗi: %v", err)
	}
	if result.IntegrityRisk == "" {
		result.IntegrityRisk = "low"
	}
	return &result, nil
}

// Làm sạch JSON Gemini (bỏ rào ``` và tiền tố "json")
func cleanGeminiJSON(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "`")
	clean = strings.TrimPrefix(clean, "json")
	return strings.TrimSpace(clean)
}
