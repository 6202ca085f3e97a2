package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"slots-backend/internal/engine"
	"slots-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub    *WebSocketHub
	logger *zap.Logger
}

type WebSocketHub struct {
	clients    map[string]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(logger *zap.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{hub: hub, logger: logger}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err), zap.String("user_id", userID))
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		// Routed through the hub; run() is the only writer on a
		// connection, so broadcasts never interleave with replies.
		h.hub.broadcast <- &Message{
			Type:   "PONG",
			UserID: client.UserID,
			Data:   gin.H{"timestamp": time.Now().Unix()},
		}
	}
}

// BroadcastRoundResult pushes a completed spin to the user's live
// connection, if any.
func (h *WebSocketHandler) BroadcastRoundResult(userID string, result *models.SpinResult) {
	h.hub.broadcast <- &Message{
		Type:   "ROUND_RESULT",
		UserID: userID,
		Data:   result,
	}
}

// BroadcastBalance pushes a wallet balance change to the user's live
// connection, if any.
func (h *WebSocketHandler) BroadcastBalance(userID string, balanceCents int64) {
	h.hub.broadcast <- &Message{
		Type:   "BALANCE_UPDATE",
		UserID: userID,
		Data: gin.H{
			"balance":  models.CentsToAmount(balanceCents),
			"currency": engine.Currency,
		},
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn
		case client := <-hub.unregister:
			if conn, ok := hub.clients[client.UserID]; ok && conn == client.Conn {
				delete(hub.clients, client.UserID)
			}
		case msg := <-hub.broadcast:
			if conn, ok := hub.clients[msg.UserID]; ok {
				conn.WriteJSON(msg)
			}
		}
	}
}
