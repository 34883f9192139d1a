// internal/realtime/websocket.go
package realtime

import (
	"github.com/gofiber/websocket/v2"
)

// WebSocketConn keeps hub.go free of the websocket import.
type WebSocketConn struct {
	Conn *websocket.Conn
}

func NewWebSocketConn(c *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{Conn: c}
}

// WritePump drains client.Send onto the socket until the channel closes.
func (w *WebSocketConn) WritePump(send <-chan []byte) error {
	for msg := range send {
		if err := w.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return err
		}
	}
	return nil
}
