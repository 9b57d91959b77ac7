package controllers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mintoons/mintoons-backend/models"
)

func seedContest(t *testing.T, db *gorm.DB, admin *models.User, status models.ContestStatus) *models.Contest {
	t.Helper()
	contest := &models.Contest{
		Title:     "Cuộc thi " + t.Name(),
		Slug:      "cuoc-thi-" + t.Name() + "-" + string(status),
		Status:    status,
		CreatedBy: admin.ID,
	}
	require.NoError(t, db.Create(contest).Error)
	return contest
}

func seedCompletedSession(t *testing.T, db *gorm.DB, child *models.User) *models.StorySession {
	t.Helper()
	session := seedActiveSession(t, db, child, 7)
	now := time.Now()
	require.NoError(t, db.Model(session).Updates(map[string]interface{}{
		"status":       models.SessionCompleted,
		"completed_at": &now,
	}).Error)
	session.Status = models.SessionCompleted
	return session
}

func TestCreateContestStartsAsDraft(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	r := newAdminRouter(db, admin)

	w := doJSON(t, r, "POST", "/api/admin/contests", map[string]interface{}{
		"title":  "Truyện Mùa Hè 2026",
		"prizes": "Giải nhất: bộ sách thiếu nhi",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var contest models.Contest
	require.NoError(t, db.First(&contest, "created_by = ?", admin.ID).Error)
	assert.Equal(t, models.ContestDraft, contest.Status)
	assert.Equal(t, "truyen-mua-he-2026", contest.Slug)
}

func TestContestStatusTransitions(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	contest := seedContest(t, db, admin, models.ContestDraft)
	r := newAdminRouter(db, admin)

	path := "/api/admin/contests/" + contest.ID.String() + "/status"

	// Không được nhảy cóc draft → ended
	w := doJSON(t, r, "PATCH", path, map[string]interface{}{"status": "ended"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Đi đúng một chiều
	for _, next := range []string{"active", "ended", "results_published"} {
		w = doJSON(t, r, "PATCH", path, map[string]interface{}{"status": next})
		require.Equal(t, http.StatusOK, w.Code, "chuyển sang %s", next)
	}

	// Không quay lui sau khi công bố
	w = doJSON(t, r, "PATCH", path, map[string]interface{}{"status": "active"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var got models.Contest
	require.NoError(t, db.First(&got, "id = ?", contest.ID).Error)
	assert.Equal(t, models.ContestResultsPublished, got.Status)
}

func TestUpdateContestBlockedAfterPublish(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	contest := seedContest(t, db, admin, models.ContestResultsPublished)
	r := newAdminRouter(db, admin)

	w := doJSON(t, r, "PUT", "/api/admin/contests/"+contest.ID.String(), map[string]interface{}{
		"title": "Tên mới",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitToContest(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	contest := seedContest(t, db, admin, models.ContestActive)
	child := newChild(t, db, models.TierFree)
	session := seedCompletedSession(t, db, child)
	r := newStoryRouter(db, &mockAI{}, child)

	w := doJSON(t, r, "POST", "/api/stories/contests/submit", map[string]interface{}{
		"contest_id": contest.ID.String(),
		"session_id": session.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var sub models.ContestSubmission
	require.NoError(t, db.First(&sub, "contest_id = ? AND child_id = ?", contest.ID, child.ID).Error)
	assert.Equal(t, session.ID, sub.SessionID)
	assert.Zero(t, sub.Place)

	// Mỗi trẻ chỉ một bài cho mỗi cuộc thi
	w = doJSON(t, r, "POST", "/api/stories/contests/submit", map[string]interface{}{
		"contest_id": contest.ID.String(),
		"session_id": session.ID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitToContestRejectsActiveSession(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	contest := seedContest(t, db, admin, models.ContestActive)
	child := newChild(t, db, models.TierFree)
	session := seedActiveSession(t, db, child, 3)
	r := newStoryRouter(db, &mockAI{}, child)

	w := doJSON(t, r, "POST", "/api/stories/contests/submit", map[string]interface{}{
		"contest_id": contest.ID.String(),
		"session_id": session.ID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitToContestRejectsClosedContest(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	child := newChild(t, db, models.TierFree)
	session := seedCompletedSession(t, db, child)
	r := newStoryRouter(db, &mockAI{}, child)

	for _, status := range []models.ContestStatus{
		models.ContestDraft, models.ContestEnded, models.ContestResultsPublished,
	} {
		contest := seedContest(t, db, admin, status)
		w := doJSON(t, r, "POST", "/api/stories/contests/submit", map[string]interface{}{
			"contest_id": contest.ID.String(),
			"session_id": session.ID.String(),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, "status %s", status)
		require.NoError(t, db.Delete(contest).Error)
	}
}

func TestAssignContestWinners(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	contest := seedContest(t, db, admin, models.ContestActive)
	child := newChild(t, db, models.TierFree)
	session := seedCompletedSession(t, db, child)

	sub := &models.ContestSubmission{
		ContestID: contest.ID,
		ChildID:   child.ID,
		SessionID: session.ID,
	}
	require.NoError(t, db.Create(sub).Error)

	r := newAdminRouter(db, admin)
	path := "/api/admin/contests/" + contest.ID.String() + "/winners"
	body := map[string]interface{}{
		"winners": []map[string]interface{}{
			{"submission_id": sub.ID.String(), "place": 1},
		},
	}

	// Chưa kết thúc thì chưa xếp giải được
	w := doJSON(t, r, "POST", path, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, db.Model(contest).Update("status", models.ContestEnded).Error)
	w = doJSON(t, r, "POST", path, body)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.ContestSubmission
	require.NoError(t, db.First(&got, "id = ?", sub.ID).Error)
	assert.Equal(t, 1, got.Place)
}

func TestAssignContestWinnersRollsBackOnBadId(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	contest := seedContest(t, db, admin, models.ContestEnded)
	child := newChild(t, db, models.TierFree)
	session := seedCompletedSession(t, db, child)

	sub := &models.ContestSubmission{
		ContestID: contest.ID,
		ChildID:   child.ID,
		SessionID: session.ID,
	}
	require.NoError(t, db.Create(sub).Error)

	r := newAdminRouter(db, admin)
	w := doJSON(t, r, "POST", "/api/admin/contests/"+contest.ID.String()+"/winners",
		map[string]interface{}{
			"winners": []map[string]interface{}{
				{"submission_id": sub.ID.String(), "place": 1},
				{"submission_id": uuid.NewString(), "place": 2},
			},
		})
	require.Equal(t, http.StatusNotFound, w.Code)

	// Bài hợp lệ đứng trước cũng không được ghi giải
	var got models.ContestSubmission
	require.NoError(t, db.First(&got, "id = ?", sub.ID).Error)
	assert.Zero(t, got.Place)
}

func TestDeleteContestDraftOnly(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	draft := seedContest(t, db, admin, models.ContestDraft)
	active := seedContest(t, db, admin, models.ContestActive)
	r := newAdminRouter(db, admin)

	w := doJSON(t, r, "DELETE", "/api/admin/contests/"+active.ID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, "DELETE", "/api/admin/contests/"+draft.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.Contest{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestNotifyContestResults(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	contest := seedContest(t, db, admin, models.ContestResultsPublished)
	child := newChild(t, db, models.TierFree)
	session := seedCompletedSession(t, db, child)

	sub := &models.ContestSubmission{
		ContestID: contest.ID,
		ChildID:   child.ID,
		SessionID: session.ID,
	}
	require.NoError(t, db.Create(sub).Error)

	notifyContestResults(db, *contest)

	var notif models.Notification
	require.NoError(t, db.First(&notif, "user_id = ? AND type = ?", child.ID, "contest_results").Error)
	assert.Contains(t, notif.Title, contest.Title)
	require.NotNil(t, notif.ContestID)
	assert.Equal(t, contest.ID, *notif.ContestID)
}

func TestGetActiveContests(t *testing.T) {
	db := newTestDB(t)
	admin := newUserWithRole(t, db, models.RoleAdmin, "admin@mintoons.test")
	seedContest(t, db, admin, models.ContestDraft)
	active := seedContest(t, db, admin, models.ContestActive)

	child := newChild(t, db, models.TierFree)
	r := newStoryRouter(db, &mockAI{}, child)

	w := doJSON(t, r, "GET", "/api/stories/contests", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var contests []models.Contest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contests))
	require.Len(t, contests, 1)
	assert.Equal(t, active.ID, contests[0].ID)
}
