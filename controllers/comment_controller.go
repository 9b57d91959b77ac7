package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mintoons/mintoons-backend/models"
	"github.com/mintoons/mintoons-backend/ws"
)

// Gửi thông báo realtime + lưu DB cho trẻ khi có nhận xét mới
func notifyNewComment(db *gorm.DB, session models.StorySession, comment models.Comment) {
	notif := models.Notification{
		UserID:    session.ChildID,
		Title:     "Truyện của bạn có nhận xét mới",
		Message:   comment.Content,
		Type:      "new_comment",
		SessionID: &session.ID,
		CommentID: &comment.ID,
	}
	db.Create(&notif)

	ws.SendUserNotification(session.ChildID.String(), map[string]interface{}{
		"id":         notif.ID.String(),
		"type":       "new_comment",
		"title":      notif.Title,
		"message":    notif.Message,
		"session_id": session.ID.String(),
		"comment_id": comment.ID.String(),
	})
	ws.SendStoryEvent(session.ID.String(), "new_comment", map[string]interface{}{
		"comment_id": comment.ID.String(),
	})

	// Cập nhật badge số lượng chưa đọc
	var count int64
	db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = false", session.ChildID).Count(&count)
	ws.SendBadgeUpdate(session.ChildID.String(), count)
}

type CreateCommentInput struct {
	SessionID string `json:"session_id" binding:"required"`
	Type      string `json:"type"`
	Content   string `json:"content" binding:"required"`
}

// Mentor/admin tạo nhận xét trên một phiên truyện
func CreateComment(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	authorID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	var input CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID, err := uuid.Parse(input.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id không hợp lệ"})
		return
	}

	commentType := models.CommentType(input.Type)
	if input.Type == "" {
		commentType = models.CommentGeneral
	}
	if !models.ValidCommentType(commentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Loại nhận xét không hợp lệ"})
		return
	}
	// admin_feedback chỉ dành cho admin
	if commentType == models.CommentAdminFeedback && c.GetString("role") != string(models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Chỉ admin được dùng loại nhận xét này"})
		return
	}

	var session models.StorySession
	if err := db.First(&session, "id = ?", sessionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên truyện"})
		return
	}

	comment := models.Comment{
		SessionID: session.ID,
		AuthorID:  authorID,
		Type:      commentType,
		Content:   input.Content,
	}
	if err := db.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lưu nhận xét"})
		return
	}

	db.Preload("Author").First(&comment, "id = ?", comment.ID)
	notifyNewComment(db, session, comment)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Đã gửi nhận xét",
		"comment": comment,
	})
}

// Danh sách nhận xét của một phiên truyện
func GetSessionComments(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	sessionID := c.Param("id")

	var session models.StorySession
	if err := db.Select("id").First(&session, "id = ?", sessionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên truyện"})
		return
	}

	query := db.Model(&models.Comment{}).Where("session_id = ?", sessionID)
	if resolved := c.Query("resolved"); resolved != "" {
		switch resolved {
		case "true":
			query = query.Where("resolved = ?", true)
		case "false":
			query = query.Where("resolved = ?", false)
		}
	}

	var comments []models.Comment
	if err := query.Preload("Author").Order("created_at asc").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách nhận xét"})
		return
	}

	c.JSON(http.StatusOK, comments)
}

// Đánh dấu nhận xét đã xử lý / chưa xử lý
func ResolveComment(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	commentID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	var comment models.Comment
	if err := db.First(&comment, "id = ?", commentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy nhận xét"})
		return
	}

	comment.Resolved = !comment.Resolved
	if comment.Resolved {
		now := time.Now()
		comment.ResolvedAt = &now
	} else {
		comment.ResolvedAt = nil
	}

	if err := db.Save(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật nhận xét"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Đã đổi trạng thái nhận xét",
		"resolved": comment.Resolved,
	})
}

// Xóa nhận xét: tác giả xóa của mình, admin xóa bất kỳ
func DeleteComment(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	commentID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	var comment models.Comment
	if err := db.First(&comment, "id = ?", commentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy nhận xét"})
		return
	}

	if c.GetString("role") != string(models.RoleAdmin) &&
		comment.AuthorID.String() != c.GetString("user_id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "Bạn không có quyền xóa nhận xét này"})
		return
	}

	if err := db.Delete(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa nhận xét"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Xóa thành công"})
}
