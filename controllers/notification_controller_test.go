package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mintoons/mintoons-backend/middleware"
	"github.com/mintoons/mintoons-backend/models"
)

func newUserRouter(db *gorm.DB, user *models.User) *gin.Engine {
	r := gin.New()
	g := r.Group("/api/user")
	g.Use(authAs(user), middleware.DBMiddleware(db))
	g.GET("/notifications", GetNotifications)
	g.GET("/notifications/unread-count", GetUnreadCount)
	g.PATCH("/notifications/:id/read", MarkNotificationAsRead)
	g.PATCH("/notifications/read-all", MarkAllNotificationsAsRead)
	return r
}

func seedNotification(t *testing.T, db *gorm.DB, user *models.User, title string) *models.Notification {
	t.Helper()
	notif := &models.Notification{
		UserID:  user.ID,
		Title:   title,
		Message: "Nội dung thông báo",
		Type:    "new_comment",
	}
	require.NoError(t, db.Create(notif).Error)
	return notif
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	db := newTestDB(t)
	child := newChild(t, db, models.TierFree)
	notif := seedNotification(t, db, child, "Thông báo 1")
	seedNotification(t, db, child, "Thông báo 2")
	r := newUserRouter(db, child)

	w := doJSON(t, r, "GET", "/api/user/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decodeBody(t, w)["unread_count"])

	w = doJSON(t, r, "PATCH", "/api/user/notifications/"+notif.ID.String()+"/read", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "GET", "/api/user/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["unread_count"])

	var got models.Notification
	require.NoError(t, db.First(&got, "id = ?", notif.ID).Error)
	assert.True(t, got.IsRead)
	assert.NotNil(t, got.ReadAt)
}

func TestMarkReadChecksOwnership(t *testing.T) {
	db := newTestDB(t)
	owner := newChild(t, db, models.TierFree)
	notif := seedNotification(t, db, owner, "Thông báo của người khác")

	other := newUserWithRole(t, db, models.RoleChild, "other@mintoons.test")
	r := newUserRouter(db, other)

	w := doJSON(t, r, "PATCH", "/api/user/notifications/"+notif.ID.String()+"/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var got models.Notification
	require.NoError(t, db.First(&got, "id = ?", notif.ID).Error)
	assert.False(t, got.IsRead)
}

func TestMarkAllNotificationsAsRead(t *testing.T) {
	db := newTestDB(t)
	child := newChild(t, db, models.TierFree)
	seedNotification(t, db, child, "Thông báo 1")
	seedNotification(t, db, child, "Thông báo 2")
	seedNotification(t, db, child, "Thông báo 3")
	r := newUserRouter(db, child)

	w := doJSON(t, r, "PATCH", "/api/user/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = false", child.ID).Count(&count)
	assert.Zero(t, count)
}
