package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/realtime"
)

type NotificationHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
}

func NewNotificationHandler(db *gorm.DB, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{DB: db, Hub: hub}
}

// List returns the caller's notifications, unread first. ?unread=true
// limits it to unread ones.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	q := h.DB.WithContext(c.UserContext()).Where("user_id = ?", a.ID)
	if c.QueryBool("unread") {
		q = q.Where("is_read = ?", false)
	}
	var list []models.Notification
	if err := q.Order("is_read ASC, created_at DESC").
		Limit(queryInt(c, "limit", 50)).
		Find(&list).Error; err != nil {
		return apperr.Internal(err, "failed to list notifications")
	}

	var unread int64
	h.DB.WithContext(c.UserContext()).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", a.ID, false).
		Count(&unread)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    list,
		"unread":  unread,
	})
}

// MarkRead marks one notification read, or all of them for "all".
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	q := h.DB.WithContext(c.UserContext()).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", a.ID, false)
	if c.Params("id") != "all" {
		id, err := paramUUID(c, "id")
		if err != nil {
			return err
		}
		q = q.Where("id = ?", id)
	}
	res := q.Update("is_read", true)
	if res.Error != nil {
		return apperr.Internal(res.Error, "failed to mark notifications read")
	}
	return ok(c, fiber.Map{"updated": res.RowsAffected})
}

// Upgrade rejects plain HTTP requests to the websocket route.
func (h *NotificationHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// WebSocketHandler streams notifications to the caller. The route sits
// behind the JWT middleware, so userId and role come from locals.
func (h *NotificationHandler) WebSocketHandler(c *websocket.Conn) {
	uid, _ := c.Locals("userId").(string)
	role, _ := c.Locals("role").(string)
	userID, err := uuid.Parse(uid)
	if err != nil {
		log.Printf("[WS] missing user on socket: %v", err)
		c.Close()
		return
	}

	conn := realtime.NewWebSocketConn(c)
	client := &realtime.Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer h.Hub.UnregisterClient(client)

	go func() {
		if err := conn.WritePump(client.Send); err != nil {
			log.Printf("[WS] write error for user %s: %v", userID, err)
		}
	}()

	// keep reading so pings and close frames are handled
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			break
		}
		if t, _ := payload["type"].(string); t == "ping" {
			select {
			case client.Send <- []byte(`{"type":"pong"}`):
			default:
			}
		}
	}
}
