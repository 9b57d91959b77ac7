package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/mintoons/mintoons-backend/models"
	"github.com/mintoons/mintoons-backend/utils"
	"github.com/mintoons/mintoons-backend/ws"
)

type ContestInput struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Rules       string     `json:"rules"`
	Prizes      string     `json:"prizes"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

// Admin tạo cuộc thi, luôn bắt đầu ở trạng thái draft
func CreateContest(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	adminID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	var input ContestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contest := models.Contest{
		Title:       input.Title,
		Slug:        slug.Make(input.Title),
		Description: input.Description,
		Rules:       input.Rules,
		Prizes:      input.Prizes,
		Status:      models.ContestDraft,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		CreatedBy:   adminID,
	}

	if err := db.Create(&contest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo cuộc thi"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Tạo cuộc thi thành công",
		"contest": contest,
	})
}

// Danh sách cuộc thi cho admin (có search, filter, phân trang)
func GetContests(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	query := db.Model(&models.Contest{})

	if search := c.Query("search"); search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%") // Postgres
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	var total int64
	query.Count(&total)

	var contests []models.Contest
	if err := query.Limit(limit).Offset(offset).Order("created_at desc").Find(&contests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách cuộc thi"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  contests,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

func GetContestDetail(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var contest models.Contest
	if err := db.
		Preload("Submissions").
		Preload("Submissions.Child").
		Preload("Submissions.Session").
		First(&contest, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy cuộc thi"})
		return
	}
	c.JSON(http.StatusOK, contest)
}

// Admin cập nhật nội dung cuộc thi (không đổi trạng thái ở đây)
func UpdateContest(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	contestID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	var contest models.Contest
	if err := db.First(&contest, "id = ?", contestID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy cuộc thi"})
		return
	}

	if contest.Status == models.ContestResultsPublished {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cuộc thi đã công bố kết quả, không sửa được nữa"})
		return
	}

	var input ContestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contest.Title = input.Title
	contest.Slug = slug.Make(input.Title)
	contest.Description = input.Description
	contest.Rules = input.Rules
	contest.Prizes = input.Prizes
	contest.StartsAt = input.StartsAt
	contest.EndsAt = input.EndsAt

	if err := db.Save(&contest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật cuộc thi"})
		return
	}

	c.JSON(http.StatusOK, contest)
}

// Chuyển trạng thái cuộc thi, chỉ đi một chiều theo vòng đời
func UpdateContestStatus(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	contestID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var contest models.Contest
	if err := db.First(&contest, "id = ?", contestID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy cuộc thi"})
		return
	}

	next := models.ContestStatus(input.Status)
	if !contest.Status.CanTransitionTo(next) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không thể chuyển trạng thái cuộc thi như vậy"})
		return
	}

	contest.Status = next
	if err := db.Save(&contest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật trạng thái"})
		return
	}

	// Công bố kết quả: báo tin cho người đạt giải và người tham gia
	if next == models.ContestResultsPublished {
		go notifyContestResults(db, contest)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Đã đổi trạng thái cuộc thi",
		"status":  contest.Status,
	})
}

// Gửi mail + notification sau khi công bố kết quả (chạy nền, lỗi chỉ ghi log)
func notifyContestResults(db *gorm.DB, contest models.Contest) {
	var submissions []models.ContestSubmission
	if err := db.Preload("Child").Where("contest_id = ?", contest.ID).Find(&submissions).Error; err != nil {
		log.Println("Không thể lấy bài dự thi để báo kết quả:", err)
		return
	}

	for _, sub := range submissions {
		notif := models.Notification{
			UserID:    sub.ChildID,
			Title:     "Cuộc thi " + contest.Title + " đã có kết quả",
			Message:   "Kết quả cuộc thi đã được công bố, vào xem ngay nhé!",
			Type:      "contest_results",
			ContestID: &contest.ID,
		}
		db.Create(&notif)
		ws.SendUserNotification(sub.ChildID.String(), map[string]interface{}{
			"id":         notif.ID.String(),
			"type":       "contest_results",
			"title":      notif.Title,
			"message":    notif.Message,
			"contest_id": contest.ID.String(),
		})

		if sub.Place > 0 {
			body := utils.ContestWinnerEmailBody(sub.Child.FullName, contest.Title, sub.Place)
			if err := utils.SendEmail(sub.Child.Email, "Chúc mừng bạn đạt giải trên Mintoons!", body); err != nil {
				log.Println("Lỗi gửi email báo giải:", err)
			}
		}
	}
}

var errSubmissionNotFound = errors.New("không tìm thấy bài dự thi")

type AssignWinnersInput struct {
	Winners []struct {
		SubmissionID string `json:"submission_id" binding:"required"`
		Place        int    `json:"place" binding:"required,min=1"`
	} `json:"winners" binding:"required,dive"`
}

// Admin xếp giải cho các bài dự thi, chỉ khi cuộc thi đã kết thúc
func AssignContestWinners(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var contest models.Contest
	if err := db.First(&contest, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy cuộc thi"})
		return
	}

	if contest.Status != models.ContestEnded {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chỉ xếp giải khi cuộc thi đã kết thúc"})
		return
	}

	var input AssignWinnersInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Xếp giải trong transaction: một bài lỗi thì không bài nào được ghi
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, w := range input.Winners {
			subID, err := uuid.Parse(w.SubmissionID)
			if err != nil {
				return errSubmissionNotFound
			}
			res := tx.Model(&models.ContestSubmission{}).
				Where("id = ? AND contest_id = ?", subID, contest.ID).
				Update("place", w.Place)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errSubmissionNotFound
			}
		}
		return nil
	})
	if errors.Is(err, errSubmissionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bài dự thi trong cuộc thi này"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xếp giải"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Đã xếp giải"})
}

// Admin xóa cuộc thi, chỉ khi còn ở draft (đã mở thì phải đi hết vòng đời)
func DeleteContest(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	contestID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ"})
		return
	}

	var contest models.Contest
	if err := db.First(&contest, "id = ?", contestID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy cuộc thi"})
		return
	}
	if contest.Status != models.ContestDraft {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chỉ xóa được cuộc thi còn ở trạng thái nháp"})
		return
	}

	if err := db.Delete(&models.Contest{}, "id = ?", contestID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa cuộc thi"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Xóa thành công"})
}

// Trẻ xem các cuộc thi đang mở
func GetActiveContests(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	var contests []models.Contest
	if err := db.Where("status = ?", models.ContestActive).
		Order("created_at desc").Find(&contests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách cuộc thi"})
		return
	}

	c.JSON(http.StatusOK, contests)
}

type SubmitToContestInput struct {
	ContestID string `json:"contest_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

// Trẻ nộp một truyện đã hoàn thành vào cuộc thi đang mở
func SubmitToContest(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	childID := c.GetString("user_id")

	var input SubmitToContestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contestID, err := uuid.Parse(input.ContestID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contest_id không hợp lệ"})
		return
	}
	sessionID, err := uuid.Parse(input.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id không hợp lệ"})
		return
	}

	var contest models.Contest
	if err := db.First(&contest, "id = ?", contestID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy cuộc thi"})
		return
	}
	if contest.Status != models.ContestActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cuộc thi không nhận bài lúc này"})
		return
	}

	var session models.StorySession
	if err := db.First(&session, "id = ? AND child_id = ?", sessionID, childID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên truyện"})
		return
	}
	if session.Status != models.SessionCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chỉ nộp được truyện đã hoàn thành"})
		return
	}

	// Mỗi trẻ một bài cho mỗi cuộc thi
	var existing models.ContestSubmission
	if err := db.First(&existing, "contest_id = ? AND child_id = ?", contestID, childID).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bạn đã nộp bài cho cuộc thi này rồi"})
		return
	}

	submission := models.ContestSubmission{
		ContestID: contestID,
		ChildID:   session.ChildID,
		SessionID: sessionID,
	}
	if err := db.Create(&submission).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể nộp bài dự thi"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Nộp bài dự thi thành công",
		"submission": submission,
	})
}

// Trẻ xem các bài mình đã nộp
func GetMySubmissions(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	childID := c.GetString("user_id")

	var submissions []models.ContestSubmission
	if err := db.Preload("Session").
		Where("child_id = ?", childID).
		Order("created_at desc").Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách bài dự thi"})
		return
	}

	c.JSON(http.StatusOK, submissions)
}
