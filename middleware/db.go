package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/mintoons/mintoons-backend/services"
	"gorm.io/gorm"
)

// DBMiddleware gắn *gorm.DB vào context cho controller
func DBMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Next()
	}
}

// AIMiddleware gắn engine AI vào context, test thay bằng mock
func AIMiddleware(ai services.StoryAI) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("ai", ai)
		c.Next()
	}
}
