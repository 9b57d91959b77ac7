package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

type Hub struct {
	Stories map[string]map[*websocket.Conn]*Client // Theo từng sessionID
	Users   map[string]map[*websocket.Conn]*Client // Theo từng userID (badge, thông báo)
	Mutex   sync.RWMutex
}

var H = Hub{
	Stories: make(map[string]map[*websocket.Conn]*Client),
	Users:   make(map[string]map[*websocket.Conn]*Client),
}

// Sự kiện realtime trên một phiên truyện
type StoryEvent struct {
	SessionID string                 `json:"session_id"`
	Type      string                 `json:"type"` // opening_ready | assessment_ready | new_comment
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Register theo sessionID riêng
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if _, ok := h.Stories[sessionID]; !ok {
		h.Stories[sessionID] = make(map[*websocket.Conn]*Client)
	}

	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.Stories[sessionID][conn] = client

	go h.readPump(sessionID, conn)
	go h.writePump(client)
}

// Register theo userID cho kênh thông báo
func (h *Hub) RegisterUser(userID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if _, ok := h.Users[userID]; !ok {
		h.Users[userID] = make(map[*websocket.Conn]*Client)
	}

	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.Users[userID][conn] = client

	go h.readUserPump(userID, conn)
	go h.writePump(client)
}

// Broadcast theo sessionID
func (h *Hub) Broadcast(sessionID string, data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	if clients, ok := h.Stories[sessionID]; ok {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// BroadcastToUser gửi tới mọi kết nối của một user
func (h *Hub) BroadcastToUser(userID string, data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	if clients, ok := h.Users[userID]; ok {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// GetStats cho endpoint health
func (h *Hub) GetStats() map[string]int {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	storyConns := 0
	for _, clients := range h.Stories {
		storyConns += len(clients)
	}
	userConns := 0
	for _, clients := range h.Users {
		userConns += len(clients)
	}
	return map[string]int{
		"story_channels":    len(h.Stories),
		"story_connections": storyConns,
		"user_channels":     len(h.Users),
		"user_connections":  userConns,
	}
}

// Public function gửi sự kiện trên phiên truyện
func SendStoryEvent(sessionID, eventType string, payload map[string]interface{}) {
	event := StoryEvent{
		SessionID: sessionID,
		Type:      eventType,
		Payload:   payload,
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Println("JSON marshal error:", err)
		return
	}
	H.Broadcast(sessionID, data)
}

// Public function gửi thông báo tới một user
func SendUserNotification(userID string, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Println("JSON marshal error:", err)
		return
	}
	H.BroadcastToUser(userID, data)
}

// Public function cập nhật badge số thông báo chưa đọc
func SendBadgeUpdate(userID string, unreadCount int64) {
	data, err := json.Marshal(map[string]interface{}{
		"type":         "badge_update",
		"unread_count": unreadCount,
	})
	if err != nil {
		log.Println("JSON marshal error:", err)
		return
	}
	H.BroadcastToUser(userID, data)
}

// Unregister client theo sessionID
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if clients, ok := h.Stories[sessionID]; ok {
		if client, ok := clients[conn]; ok {
			close(client.Send)
			delete(clients, conn)
		}
		if len(clients) == 0 {
			delete(h.Stories, sessionID)
		}
	}
}

// Unregister client theo userID
func (h *Hub) UnregisterUser(userID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if clients, ok := h.Users[userID]; ok {
		if client, ok := clients[conn]; ok {
			close(client.Send)
			delete(clients, conn)
		}
		if len(clients) == 0 {
			delete(h.Users, userID)
		}
	}
}

// Read pump riêng theo sessionID
func (h *Hub) readPump(sessionID string, conn *websocket.Conn) {
	defer h.Unregister(sessionID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Read pump theo userID
func (h *Hub) readUserPump(userID string, conn *websocket.Conn) {
	defer h.UnregisterUser(userID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Write pump dùng chung
func (h *Hub) writePump(client *Client) {
	defer func() {
		client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
		client.Conn.Close()
	}()
	for msg := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}
