package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mintoons/mintoons-backend/config"
	"github.com/mintoons/mintoons-backend/models"
	"github.com/mintoons/mintoons-backend/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // chỉ để phát triển, nên giới hạn ở production
	},
}

// gửi message dạng JSON qua WebSocket
func sendJSON(conn *websocket.Conn, data interface{}) {
	msg, err := json.Marshal(data)
	if err != nil {
		log.Println("Lỗi JSON marshal:", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Println("Lỗi gửi message:", err)
	}
}

// WebSocket theo dõi một phiên truyện (trẻ sở hữu, hoặc mentor/admin)
func HandleStoryWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	token := c.Query("token")

	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Thiếu token"})
		return
	}
	claims, err := utils.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token không hợp lệ hoặc hết hạn"})
		return
	}

	// Trẻ chỉ được theo dõi phiên của chính mình
	if claims.Role == string(models.RoleChild) {
		var session models.StorySession
		if err := config.DB.Select("id", "child_id").First(&session, "id = ?", sessionID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên truyện"})
			return
		}
		if session.ChildID.String() != claims.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Bạn không có quyền theo dõi phiên truyện này"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade thất bại:", err)
		return
	}
	H.Register(sessionID, conn)

	log.Printf("Story WS connected: sessionID=%s, userID=%s\n", sessionID, claims.UserID)
	sendJSON(conn, gin.H{"type": "connected", "message": "Connected to story " + sessionID})
}

// WebSocket kênh thông báo cá nhân (badge)
func HandleNotificationWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Thiếu token"})
		return
	}
	claims, err := utils.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token không hợp lệ hoặc hết hạn"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade thất bại:", err)
		return
	}
	H.RegisterUser(claims.UserID, conn)

	log.Printf("Notification WS connected: userID=%s\n", claims.UserID)
	sendJSON(conn, gin.H{"type": "connected"})
}
