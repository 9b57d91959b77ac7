package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/mintoons/mintoons-backend/models"
)

// Danh sách người dùng cho admin (search, lọc role/tier, phân trang)
func GetUsers(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	query := db.Model(&models.User{})

	if search := c.Query("search"); search != "" {
		query = query.Where("full_name ILIKE ? OR email ILIKE ?", "%"+search+"%", "%"+search+"%") // Postgres
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if tier := c.Query("tier"); tier != "" {
		query = query.Where("tier = ?", tier)
	}

	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Limit(limit).Offset(offset).Order("created_at desc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách người dùng"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  users,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Danh sách mentor (cho trang quản lý mentor)
func GetMentors(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	var mentors []models.User
	if err := db.Where("role = ?", models.RoleMentor).
		Order("created_at desc").Find(&mentors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách mentor"})
		return
	}

	c.JSON(http.StatusOK, mentors)
}

func GetUserDetail(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy người dùng"})
		return
	}

	var sessionCount int64
	db.Model(&models.StorySession{}).Where("child_id = ?", user.ID).Count(&sessionCount)

	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"session_count": sessionCount,
	})
}

type UpdateUserInput struct {
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Tier     string `json:"tier"`
	Age      *int   `json:"age"`
	Status   *bool  `json:"status"`
}

// Admin cập nhật người dùng theo từng trường
func UpdateUser(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	userID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy người dùng"})
		return
	}

	var input UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.FullName != "" {
		user.FullName = input.FullName
	}
	if input.Role != "" {
		role := models.UserRole(input.Role)
		if role != models.RoleChild && role != models.RoleMentor && role != models.RoleAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Vai trò không hợp lệ"})
			return
		}
		user.Role = role
	}
	if input.Tier != "" {
		user.Tier = models.SubscriptionTier(input.Tier)
	}
	if input.Age != nil {
		user.Age = input.Age
	}
	if input.Status != nil {
		user.Status = input.Status
	}

	if err := db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật người dùng"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Xóa cứng người dùng, không cho admin tự xóa mình
func DeleteUser(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	userID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	if userID.String() == c.GetString("user_id") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không thể tự xóa tài khoản của mình"})
		return
	}

	if err := db.Delete(&models.User{}, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa người dùng"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Xóa thành công"})
}

// Xuất danh sách người dùng ra file Excel
func ExportUsersXLSX(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	var users []models.User
	if err := db.Order("created_at asc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách người dùng"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Users"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Họ tên", "Email", "Vai trò", "Gói", "Số truyện", "Tổng số từ", "Ngày tạo"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, u := range users {
		values := []interface{}{
			u.ID.String(), u.FullName, u.Email, string(u.Role), string(u.Tier),
			u.StoriesCreated, u.TotalWordsWritten, u.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo file Excel"})
		return
	}

	filename := fmt.Sprintf("mintoons_users_%d.xlsx", len(users))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
