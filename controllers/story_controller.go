package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mintoons/mintoons-backend/models"
	"github.com/mintoons/mintoons-backend/services"
	"github.com/mintoons/mintoons-backend/ws"
)

// Truyện hoàn thành ở lượt thứ 7 (luật 6 lượt cũ đã bỏ)
const storyCompletionTurn = 7

// Cửa sổ tính hạn mức tạo phiên theo gói
const sessionRateWindow = 24 * time.Hour

type CreateSessionInput struct {
	Mode        string                `json:"mode" binding:"required,oneof=guided freeform"`
	Title       string                `json:"title"`
	Elements    *models.StoryElements `json:"elements"`
	OpeningText string                `json:"opening_text"`
}

// Tạo phiên truyện mới cho trẻ
func CreateSession(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	ai := c.MustGet("ai").(services.StoryAI)

	childID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	var input CreateSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := models.StoryMode(input.Mode)
	switch mode {
	case models.ModeGuided:
		if input.Elements == nil || !input.Elements.Complete() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Chế độ guided cần đủ 6 yếu tố truyện"})
			return
		}
	case models.ModeFreeform:
		if len(strings.TrimSpace(input.OpeningText)) < 10 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Chế độ freeform cần câu mở đầu ít nhất 10 ký tự"})
			return
		}
	}

	var child models.User
	if err := db.First(&child, "id = ?", childID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Không tìm thấy người dùng"})
		return
	}

	// Hạn mức tạo phiên theo gói trong cửa sổ 24h
	cfg := models.ConfigForTier(child.Tier)
	since := time.Now().Add(-sessionRateWindow)
	var recent []models.StorySession
	if err := db.Select("created_at").
		Where("child_id = ? AND created_at > ?", childID, since).
		Order("created_at asc").Find(&recent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể kiểm tra hạn mức"})
		return
	}
	if len(recent) >= cfg.SessionsPerDay {
		retryAfter := int(time.Until(recent[0].CreatedAt.Add(sessionRateWindow)).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Bạn đã hết lượt tạo truyện hôm nay, thử lại sau nhé",
			"retry_after": retryAfter,
		})
		return
	}

	// Số truyện tuần tự theo từng trẻ: max hiện có + 1
	var maxNumber int
	db.Model(&models.StorySession{}).
		Where("child_id = ?", childID).
		Select("COALESCE(MAX(story_number), 0)").Scan(&maxNumber)

	session := models.StorySession{
		ChildID:     childID,
		StoryNumber: maxNumber + 1,
		Title:       input.Title,
		Mode:        mode,
		CurrentTurn: 1,
		Status:      models.SessionActive,
		MaxApiCalls: cfg.MaxApiCalls,
	}
	if session.Title == "" {
		session.Title = fmt.Sprintf("Truyện số %d", session.StoryNumber)
	}
	if mode == models.ModeGuided {
		session.Elements = *input.Elements
	} else {
		session.Opening = strings.TrimSpace(input.OpeningText)
	}

	if err := db.Create(&session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo phiên truyện"})
		return
	}

	db.Model(&models.User{}).Where("id = ?", childID).
		UpdateColumn("stories_created", gorm.Expr("stories_created + 1"))

	// Chế độ guided: sinh câu mở đầu ở background, client nhận qua ws
	if mode == models.ModeGuided {
		go generateOpening(db, ai, session.ID, session.Elements)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Tạo phiên truyện thành công",
		"session": session,
	})
}

// Sinh câu mở đầu; AI lỗi thì dùng câu dự phòng dựng từ bộ yếu tố,
// phiên không bao giờ bị bỏ trống mở đầu
func generateOpening(db *gorm.DB, ai services.StoryAI, sessionID uuid.UUID, elements models.StoryElements) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opening, err := ai.GenerateOpening(ctx, elements)
	if err != nil || strings.TrimSpace(opening) == "" {
		opening = services.FallbackOpening(elements)
	}

	db.Model(&models.StorySession{}).
		Where("id = ? AND opening = ''", sessionID).
		Update("opening", opening)

	ws.SendStoryEvent(sessionID.String(), "opening_ready", map[string]interface{}{
		"opening": opening,
	})
}

type SubmitTurnInput struct {
	SessionID string `json:"session_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

// Trẻ nộp một lượt kể; lượt thứ 7 chốt truyện và gọi chấm điểm
func SubmitTurn(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	ai := c.MustGet("ai").(services.StoryAI)
	childID := c.GetString("user_id")

	var input SubmitTurnInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID, err := uuid.Parse(input.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id không hợp lệ"})
		return
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nội dung lượt kể không được rỗng"})
		return
	}

	var session models.StorySession
	if err := db.First(&session, "id = ? AND child_id = ?", sessionID, childID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên truyện"})
		return
	}

	if session.Status != models.SessionActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Phiên truyện không còn hoạt động"})
		return
	}

	if session.ApiCallsUsed >= session.MaxApiCalls {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Phiên truyện đã hết lượt gọi AI"})
		return
	}

	if session.CurrentTurn >= storyCompletionTurn {
		finalizeSession(c, db, ai, session, text)
		return
	}

	childWords := len(strings.Fields(text))

	// Ngữ cảnh hội thoại từ các lượt trước
	var previous []models.Turn
	db.Where("session_id = ?", session.ID).Order("turn_number asc").Find(&previous)

	aiText, err := ai.GenerateContinuation(c.Request.Context(), text, previous, session.CurrentTurn)
	if err != nil || strings.TrimSpace(aiText) == "" {
		// Lỗi AI được nuốt tại chỗ, truyện vẫn tiếp tục
		aiText = services.FallbackContinuation(session.CurrentTurn)
	}
	aiWords := len(strings.Fields(aiText))

	turn := models.Turn{
		SessionID:  session.ID,
		TurnNumber: session.CurrentTurn,
		ChildText:  text,
		AiResponse: aiText,
		ChildWords: childWords,
		AiWords:    aiWords,
	}
	if err := db.Create(&turn).Error; err != nil {
		// Index unique (session_id, turn_number) chặn lượt nộp trùng
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Lượt kể này đã được xử lý"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lưu lượt kể"})
		return
	}

	// Update có điều kiện theo current_turn để chặn hai lượt nộp song song
	res := db.Model(&models.StorySession{}).
		Where("id = ? AND status = ? AND current_turn = ?",
			session.ID, models.SessionActive, session.CurrentTurn).
		Updates(map[string]interface{}{
			"current_turn":   gorm.Expr("current_turn + 1"),
			"child_words":    gorm.Expr("child_words + ?", childWords),
			"ai_words":       gorm.Expr("ai_words + ?", aiWords),
			"api_calls_used": gorm.Expr("api_calls_used + 1"),
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật phiên truyện"})
		return
	}
	if res.RowsAffected == 0 {
		// Phiên đã bị lượt nộp khác vượt trước, gỡ lượt vừa ghi
		db.Delete(&turn)
		c.JSON(http.StatusConflict, gin.H{"error": "Lượt kể này đã được xử lý"})
		return
	}

	db.Model(&models.User{}).Where("id = ?", session.ChildID).
		UpdateColumn("total_words_written", gorm.Expr("total_words_written + ?", childWords))

	c.JSON(http.StatusOK, gin.H{
		"message":        "Đã ghi lượt kể",
		"turn":           turn,
		"current_turn":   session.CurrentTurn + 1,
		"api_calls_used": session.ApiCallsUsed + 1,
	})
}

// Lượt cuối: ghi đoạn kết của trẻ, ghép toàn truyện và gọi chấm điểm.
// Chấm điểm lỗi thì truyện vẫn hoàn thành, đánh giá trả sau.
func finalizeSession(c *gin.Context, db *gorm.DB, ai services.StoryAI, session models.StorySession, text string) {
	childWords := len(strings.Fields(text))

	turn := models.Turn{
		SessionID:  session.ID,
		TurnNumber: session.CurrentTurn,
		ChildText:  text,
		ChildWords: childWords,
	}
	if err := db.Create(&turn).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Lượt kể này đã được xử lý"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lưu lượt kể"})
		return
	}

	var turns []models.Turn
	db.Where("session_id = ?", session.ID).Order("turn_number asc").Find(&turns)
	fullText := services.AssembleStoryText(session.Opening, turns)

	meta := services.AssessmentMeta{
		Title:      session.Title,
		TurnCount:  len(turns),
		ChildWords: session.ChildWords + childWords,
	}
	var child models.User
	if err := db.Select("age").First(&child, "id = ?", session.ChildID).Error; err == nil && child.Age != nil {
		meta.ChildAge = *child.Age
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":         models.SessionCompleted,
		"completed_at":   &now,
		"child_words":    gorm.Expr("child_words + ?", childWords),
		"api_calls_used": gorm.Expr("api_calls_used + 1"),
	}

	assessment, assessErr := ai.PerformAssessment(c.Request.Context(), fullText, meta)
	if assessErr != nil {
		// Ghi chú pending, đánh giá sẽ được bổ sung sau
		updates["assessment"] = `{"status":"pending","note":"Đánh giá tạm thời chưa có, sẽ cập nhật sau"}`
	} else {
		raw, _ := json.Marshal(assessment)
		updates["assessment"] = string(raw)
		updates["overall_score"] = float64(assessment.OverallScore)
		updates["integrity_risk"] = assessment.IntegrityRisk
		if assessment.Flagged() {
			updates["status"] = models.SessionFlagged
		}
	}

	res := db.Model(&models.StorySession{}).
		Where("id = ? AND status = ? AND current_turn = ?",
			session.ID, models.SessionActive, session.CurrentTurn).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể hoàn thành phiên truyện"})
		return
	}
	if res.RowsAffected == 0 {
		db.Delete(&turn)
		c.JSON(http.StatusConflict, gin.H{"error": "Lượt kể này đã được xử lý"})
		return
	}

	db.Model(&models.User{}).Where("id = ?", session.ChildID).
		UpdateColumn("total_words_written", gorm.Expr("total_words_written + ?", childWords))

	ws.SendStoryEvent(session.ID.String(), "assessment_ready", map[string]interface{}{
		"pending": assessErr != nil,
	})

	if assessErr != nil {
		c.JSON(http.StatusOK, gin.H{
			"message":            "Truyện đã hoàn thành, đánh giá sẽ có sau",
			"status":             models.SessionCompleted,
			"assessment_pending": true,
		})
		return
	}

	status := models.SessionCompleted
	if assessment.Flagged() {
		status = models.SessionFlagged
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Truyện đã hoàn thành",
		"status":        status,
		"overall_score": assessment.OverallScore,
		"assessment":    assessment,
	})
}

// Danh sách truyện của trẻ đang đăng nhập (lọc theo status, phân trang)
func GetMyStories(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	childID := c.GetString("user_id")

	query := db.Model(&models.StorySession{}).Where("child_id = ?", childID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	var total int64
	query.Count(&total)

	var sessions []models.StorySession
	if err := query.Limit(limit).Offset(offset).Order("created_at desc").Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách truyện"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  sessions,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Chi tiết một truyện của trẻ, kèm các lượt kể và nhận xét
func GetMyStoryDetail(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	childID := c.GetString("user_id")
	id := c.Param("id")

	var session models.StorySession
	if err := db.
		Preload("Turns", func(db *gorm.DB) *gorm.DB {
			return db.Order("turn_number asc")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		Preload("Comments.Author").
		First(&session, "id = ? AND child_id = ?", id, childID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên truyện"})
		return
	}

	c.JSON(http.StatusOK, session)
}
