package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mintoons/mintoons-backend/controllers"
	"github.com/mintoons/mintoons-backend/middleware"
	"github.com/mintoons/mintoons-backend/services"
	"github.com/mintoons/mintoons-backend/ws"
)

func SetupRouter(r *gin.Engine, db *gorm.DB, ai services.StoryAI) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", controllers.HealthCheck)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.POST("/forgot-password", controllers.ForgotPassword)
		auth.POST("/reset-password", controllers.ResetPassword)
	}

	user := api.Group("/user")
	{
		user.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db))
		user.GET("/me", controllers.Me)
		user.POST("/change-password", controllers.ChangePassword)

		// Thông báo
		user.GET("/notifications", controllers.GetNotifications)
		user.GET("/notifications/unread-count", controllers.GetUnreadCount)
		user.PATCH("/notifications/:id/read", controllers.MarkNotificationAsRead)
		user.PATCH("/notifications/read-all", controllers.MarkAllNotificationsAsRead)
	}

	stories := api.Group("/stories")
	{
		stories.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db),
			middleware.AIMiddleware(ai), middleware.RequireRoles("child"))

		stories.POST("/create-session", controllers.CreateSession)
		stories.POST("/ai-respond", controllers.SubmitTurn)
		stories.GET("", controllers.GetMyStories)
		stories.GET("/:id", controllers.GetMyStoryDetail)

		// Cuộc thi, phía trẻ
		stories.GET("/contests", controllers.GetActiveContests)
		stories.POST("/contests/submit", controllers.SubmitToContest)
		stories.GET("/contests/submissions", controllers.GetMySubmissions)
	}

	mentor := api.Group("/mentor")
	{
		mentor.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db),
			middleware.RequireRoles("mentor", "admin"))

		// Duyệt truyện và nhận xét
		mentor.GET("/sessions", controllers.MentorGetSessions)
		mentor.GET("/sessions/:id", controllers.MentorGetSessionDetail)
		mentor.GET("/sessions/:id/comments", controllers.GetSessionComments)
		mentor.POST("/comments", controllers.CreateComment)
		mentor.PATCH("/comments/:id/resolve", controllers.ResolveComment)
		mentor.DELETE("/comments/:id", controllers.DeleteComment)
	}

	admin := api.Group("/admin")
	{
		admin.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db),
			middleware.RequireRoles("admin"))

		// Quản lý người dùng
		admin.GET("/users", controllers.GetUsers)
		admin.GET("/users/export", controllers.ExportUsersXLSX)
		admin.GET("/users/:id", controllers.GetUserDetail)
		admin.PUT("/users/:id", controllers.UpdateUser)
		admin.DELETE("/users/:id", controllers.DeleteUser)

		// Quản lý mentor
		admin.GET("/mentors", controllers.GetMentors)
		admin.POST("/mentors", controllers.AdminCreateMentor)

		// Quản lý phiên truyện
		admin.GET("/sessions", controllers.AdminGetSessions)
		admin.GET("/sessions/:id", controllers.AdminGetSessionDetail)
		admin.PATCH("/sessions/:id/pause", controllers.PauseSession)
		admin.PATCH("/sessions/:id/resume", controllers.ResumeSession)
		admin.PATCH("/sessions/:id/flag", controllers.FlagSession)
		admin.DELETE("/sessions/:id", controllers.AdminDeleteSession)

		// Quản lý cuộc thi
		admin.POST("/contests", controllers.CreateContest)
		admin.GET("/contests", controllers.GetContests)
		admin.GET("/contests/:id", controllers.GetContestDetail)
		admin.PUT("/contests/:id", controllers.UpdateContest)
		admin.PATCH("/contests/:id/status", controllers.UpdateContestStatus)
		admin.POST("/contests/:id/winners", controllers.AssignContestWinners)
		admin.DELETE("/contests/:id", controllers.DeleteContest)

		// Dashboard
		admin.GET("/stats", controllers.GetDashboardStats)
	}

	r.GET("/ws/story/:id", ws.HandleStoryWebSocket)
	r.GET("/ws/notifications", ws.HandleNotificationWebSocket)

	return r
}
