package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 1024
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Tokens, not origins, gate this endpoint; native apps send no Origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketHandler upgrades connections and runs the per-client pumps.
type WebSocketHandler struct {
	hub *Hub
}

func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func (wsh *WebSocketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wsh.HandleConnect)
}

// HandleConnect upgrades the request and registers the client. The client
// starts with no subscriptions; it sends subscribe messages for the topics
// it wants.
func (wsh *WebSocketHandler) HandleConnect(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(uuid.NewString())
	wsh.hub.Register(client)

	go wsh.writePump(client, conn)
	go wsh.readPump(client, conn)
	return nil
}

// readPump consumes subscription commands until the connection drops, then
// unregisters the client. Read deadlines are refreshed by pongs so dead
// connections are reaped within pongWait.
func (wsh *WebSocketHandler) readPump(client *Client, conn *gorilla.Conn) {
	defer func() {
		wsh.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		wsh.hub.ProcessMessage(client, msg)
	}
}

// writePump drains the client's send queue and keeps the connection alive
// with periodic pings.
func (wsh *WebSocketHandler) writePump(client *Client, conn *gorilla.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(gorilla.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(gorilla.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gorilla.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
