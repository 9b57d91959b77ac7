package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mintoons/mintoons-backend/models"
)

// Danh sách phiên truyện cho admin (lọc status/child, phân trang)
func AdminGetSessions(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	query := db.Model(&models.StorySession{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if childID := c.Query("child_id"); childID != "" {
		query = query.Where("child_id = ?", childID)
	}

	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	var total int64
	query.Count(&total)

	var sessions []models.StorySession
	if err := query.Preload("Child").
		Limit(limit).Offset(offset).Order("created_at desc").Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách phiên truyện"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  sessions,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

func AdminGetSessionDetail(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var session models.StorySession
	if err := db.
		Preload("Child").
		Preload("Turns", func(db *gorm.DB) *gorm.DB {
			return db.Order("turn_number asc")
		}).
		Preload("Comments").
		First(&session, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên truyện"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// Tạm dừng một phiên đang hoạt động
func PauseSession(c *gin.Context) {
	updateSessionStatus(c, models.SessionActive, models.SessionPaused,
		"Chỉ tạm dừng được phiên đang hoạt động")
}

// Mở lại một phiên đang tạm dừng
func ResumeSession(c *gin.Context) {
	updateSessionStatus(c, models.SessionPaused, models.SessionActive,
		"Chỉ mở lại được phiên đang tạm dừng")
}

// Gắn cờ một phiên đang hoạt động (trạng thái cuối, không quay lại)
func FlagSession(c *gin.Context) {
	updateSessionStatus(c, models.SessionActive, models.SessionFlagged,
		"Chỉ gắn cờ được phiên đang hoạt động")
}

// Update trạng thái có điều kiện: trạng thái cuối không bị ghi đè
func updateSessionStatus(c *gin.Context, from, to models.SessionStatus, errMsg string) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	sessionID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	res := db.Model(&models.StorySession{}).
		Where("id = ? AND status = ?", sessionID, from).
		Update("status", to)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật trạng thái"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Đã đổi trạng thái phiên truyện",
		"status":  to,
	})
}

// Xóa cứng phiên truyện, cascade lượt kể và nhận xét
func AdminDeleteSession(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	sessionID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	// Cascade thủ công cho chắc, không phụ thuộc FK của DB
	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Turn{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Comment{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.StorySession{}, "id = ?", sessionID).Error
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa phiên truyện"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Xóa thành công"})
}
