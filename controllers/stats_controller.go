package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mintoons/mintoons-backend/models"
)

// Số liệu tổng quan cho dashboard admin
func GetDashboardStats(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	usersByRole := map[string]int64{}
	for _, role := range []models.UserRole{models.RoleChild, models.RoleMentor, models.RoleAdmin} {
		var count int64
		db.Model(&models.User{}).Where("role = ?", role).Count(&count)
		usersByRole[string(role)] = count
	}

	sessionsByStatus := map[string]int64{}
	for _, status := range []models.SessionStatus{
		models.SessionActive, models.SessionCompleted,
		models.SessionFlagged, models.SessionPaused,
	} {
		var count int64
		db.Model(&models.StorySession{}).Where("status = ?", status).Count(&count)
		sessionsByStatus[string(status)] = count
	}

	var totalChildWords int64
	db.Model(&models.StorySession{}).
		Select("COALESCE(SUM(child_words), 0)").Scan(&totalChildWords)

	var avgScore float64
	db.Model(&models.StorySession{}).
		Where("overall_score IS NOT NULL").
		Select("COALESCE(AVG(overall_score), 0)").Scan(&avgScore)

	var contestCount int64
	db.Model(&models.Contest{}).Count(&contestCount)

	var unresolvedComments int64
	db.Model(&models.Comment{}).Where("resolved = false").Count(&unresolvedComments)

	c.JSON(http.StatusOK, gin.H{
		"users_by_role":       usersByRole,
		"sessions_by_status":  sessionsByStatus,
		"total_child_words":   totalChildWords,
		"average_score":       avgScore,
		"contest_count":       contestCount,
		"unresolved_comments": unresolvedComments,
	})
}
