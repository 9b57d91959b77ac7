package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mintoons/mintoons-backend/models"
)

// Danh sách truyện cho mentor duyệt (lọc theo status, phân trang)
func MentorGetSessions(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	query := db.Model(&models.StorySession{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		// Mặc định chỉ hiện truyện đã hoàn thành hoặc bị gắn cờ
		query = query.Where("status IN ?", []models.SessionStatus{
			models.SessionCompleted, models.SessionFlagged,
		})
	}

	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	var total int64
	query.Count(&total)

	var sessions []models.StorySession
	if err := query.Preload("Child").
		Limit(limit).Offset(offset).Order("created_at desc").
		Find(&sessions).Error; err != nil {
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

// Chi tiết truyện cho mentor, kèm lượt kể và nhận xét
func MentorGetSessionDetail(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var session models.StorySession
	if err := db.
		Preload("Child").
		Preload("Turns", func(db *gorm.DB) *gorm.DB {
			return db.Order("turn_number asc")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		Preload("Comments.Author").
		First(&session, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên truyện"})
		return
	}

	c.JSON(http.StatusOK, session)
}
