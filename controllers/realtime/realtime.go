package realtime

import (
	"context"
	"fmt"
	"time"

	"pawsewa/logger"
	"pawsewa/middleware"
	"pawsewa/services/auth"
	"pawsewa/services/chat"
	"pawsewa/services/events"
	"pawsewa/services/policy"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	writeWait  = 10 * time.Second
	maxFrame   = 16 * 1024
)

type RealtimeController struct {
	hub  *events.Hub
	chat *chat.ChatService
	auth *auth.AuthService
}

func NewRealtimeController(hub *events.Hub, chatService *chat.ChatService, authService *auth.AuthService) *RealtimeController {
	return &RealtimeController{hub: hub, chat: chatService, auth: authService}
}

// Upgrade authenticates the handshake. Browsers cannot set headers on a websocket,
// so the token may also come as ?token=.
func (rc *RealtimeController) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		var err error
		if token, err = middleware.ExtractToken(c); err != nil {
			return err
		}
	}
	actor, err := rc.auth.Resolve(c.UserContext(), token)
	if err != nil {
		return err
	}
	c.Locals(middleware.ActorKey, actor)
	return c.Next()
}

// Handle serves one connection: a reader loop here and a writer goroutine draining the client queue.
func (rc *RealtimeController) Handle() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		actor, ok := conn.Locals(middleware.ActorKey).(policy.Actor)
		if !ok {
			_ = conn.Close()
			return
		}
		session := NewSession(rc.hub, rc.chat, actor)
		defer session.Close()

		done := make(chan struct{})
		go rc.writePump(conn, session.Client(), done)
		defer close(done)

		conn.SetReadLimit(maxFrame)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		ctx := context.Background()
		for {
			msgType, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warning(fmt.Sprintf("websocket read for user %d: %v", actor.ID, err))
				}
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			session.Handle(ctx, raw)
		}
	})
}

func (rc *RealtimeController) writePump(conn *websocket.Conn, client *events.Client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case frame, ok := <-client.Outbound():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
