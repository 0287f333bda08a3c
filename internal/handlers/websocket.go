package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"miner-game-backend/internal/services"
)

const (
	writeWait     = 10 * time.Second
	hubBufferSize = 256
)

const (
	MessageBalanceUpdate = "BALANCE_UPDATE"
	MessageRoundUpdate   = "ROUND_UPDATE"
	MessagePing          = "PING"
	MessagePong          = "PONG"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
}

// WebSocketHub owns every connection; all writes happen on the Run goroutine.
// One connection is kept per user, a newer one replaces the older.
type WebSocketHub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	logger     *zap.Logger
}

func NewWebSocketHub(logger *zap.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, hubBufferSize),
		logger:     logger,
	}
}

func (hub *WebSocketHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for userID, client := range hub.clients {
				client.Conn.Close()
				delete(hub.clients, userID)
			}
			return

		case client := <-hub.register:
			if old, ok := hub.clients[client.UserID]; ok {
				old.Conn.Close()
			}
			hub.clients[client.UserID] = client
			hub.logger.Debug("websocket client registered", zap.String("user_id", client.UserID))

		case client := <-hub.unregister:
			if current, ok := hub.clients[client.UserID]; ok && current == client {
				delete(hub.clients, client.UserID)
				hub.logger.Debug("websocket client unregistered", zap.String("user_id", client.UserID))
			}
			client.Conn.Close()

		case message := <-hub.broadcast:
			hub.send(message)
		}
	}
}

func (hub *WebSocketHub) send(message *Message) {
	client, ok := hub.clients[message.UserID]
	if !ok {
		return
	}

	client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.Conn.WriteJSON(message); err != nil {
		hub.logger.Debug("websocket write failed", zap.Error(err), zap.String("user_id", message.UserID))
		delete(hub.clients, message.UserID)
		client.Conn.Close()
	}
}

func (hub *WebSocketHub) enqueue(message *Message) {
	select {
	case hub.broadcast <- message:
	default:
		hub.logger.Warn("websocket hub full, dropping message",
			zap.String("type", message.Type),
			zap.String("user_id", message.UserID),
		)
	}
}

func (hub *WebSocketHub) BroadcastBalance(userID string, balance float64) {
	hub.enqueue(&Message{
		Type:   MessageBalanceUpdate,
		UserID: userID,
		Data:   gin.H{"balance": balance},
	})
}

func (hub *WebSocketHub) BroadcastRoundUpdate(userID string, update interface{}) {
	hub.enqueue(&Message{
		Type:   MessageRoundUpdate,
		UserID: userID,
		Data:   update,
	})
}

type WebSocketHandler struct {
	gameEngine *services.GameEngine
	hub        *WebSocketHub
	logger     *zap.Logger
}

func NewWebSocketHandler(gameEngine *services.GameEngine, hub *WebSocketHub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		gameEngine: gameEngine,
		hub:        hub,
		logger:     logger,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, err := resolveUserID(c, c.Query("user_id"))
	if err != nil {
		respondError(c, h.logger, "Failed to open websocket", err)
		return
	}
	if userID == "" {
		respondError(c, h.logger, "Failed to open websocket", services.ErrMissingUserID)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client
	defer func() {
		h.hub.unregister <- client
	}()

	h.sendBalance(c.Request.Context(), userID)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed", zap.Error(err), zap.String("user_id", userID))
			}
			return
		}

		switch msg.Type {
		case MessagePing:
			h.hub.enqueue(&Message{
				Type:   MessagePong,
				UserID: userID,
				Data:   gin.H{"timestamp": time.Now().Unix()},
			})
		case MessageBalanceUpdate:
			h.sendBalance(c.Request.Context(), userID)
		}
	}
}

func (h *WebSocketHandler) sendBalance(ctx context.Context, userID string) {
	balance, err := h.gameEngine.GetBalance(ctx, userID)
	if err != nil {
		h.logger.Warn("failed to load balance for websocket", zap.Error(err), zap.String("user_id", userID))
		return
	}
	h.hub.BroadcastBalance(userID, balance)
}
