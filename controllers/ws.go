package controllers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"bioassist/middleware"
	"bioassist/pkg/chat"
	tokenstore "bioassist/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

type wsStartPayload struct {
	Type           string   `json:"type"`
	Message        string   `json:"message"`
	ConversationID string   `json:"conversation_id"`
	ExpertID       string   `json:"expert_id"`
	Model          string   `json:"model"`
	Temperature    *float64 `json:"temperature"`
}

// ChatWS streams a completion over WebSocket, consuming the same orchestrator
// events as the SSE endpoint. Client protocol (JSON messages):
//
//	-> {type: "start", message: string, conversation_id?: string, expert_id?: string, model?: string}
//	<- {type: "conversation", conversation_id: string}
//	<- {type: "delta", data: string}
//	<- {type: "title", title: string}
//	<- {type: "done", ok: true}
//	<- {type: "error", error: string}
func ChatWS(orch *chat.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Authenticate via ?token=JWT
		tokenStr := strings.TrimSpace(c.Query("token"))
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "missing token query"})
			return
		}
		uid, jti, ok := middleware.ParseToken(tokenStr)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}
		if tokenstore.IsRevoked(jti) {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "Token has been revoked (logout)"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade error: %v", err)
			return
		}
		defer conn.Close()

		conn.SetReadLimit(1 << 20) // 1MB
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		})

		// Read exactly one start message per connection
		var start wsStartPayload
		if err := conn.ReadJSON(&start); err != nil ||
			strings.ToLower(start.Type) != "start" || strings.TrimSpace(start.Message) == "" {
			_ = conn.WriteJSON(gin.H{"type": "error", "error": "invalid start payload"})
			return
		}

		// The HTTP request context dies with the handshake; tie generation to
		// the connection instead.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_ = conn.SetReadDeadline(time.Time{}) // generation may outlive the handshake deadline
		go func() {
			// any further read (or a close frame) ends the turn
			for {
				if _, _, err := conn.NextReader(); err != nil {
					cancel()
					return
				}
			}
		}()

		conv, events, err := orch.Stream(ctx, uid, chat.Request{
			Message:        start.Message,
			ConversationID: strings.TrimSpace(start.ConversationID),
			ExpertID:       strings.TrimSpace(start.ExpertID),
			Model:          strings.TrimSpace(start.Model),
			Temperature:    start.Temperature,
		})
		if err != nil {
			_ = conn.WriteJSON(gin.H{"type": "error", "error": "conversation not found"})
			return
		}
		_ = conn.WriteJSON(gin.H{"type": "conversation", "conversation_id": conv.ID})

		for ev := range events {
			var werr error
			switch ev.Kind {
			case chat.EventToken:
				werr = conn.WriteJSON(gin.H{"type": "delta", "data": ev.Content})
			case chat.EventTitle:
				werr = conn.WriteJSON(gin.H{"type": "title", "title": ev.Title})
			case chat.EventError:
				werr = conn.WriteJSON(gin.H{"type": "error", "error": ev.Err})
			}
			if werr != nil {
				cancel()
				// drain so the orchestrator can finish persisting
				for range events {
				}
				return
			}
		}
		_ = conn.WriteJSON(gin.H{"type": "done", "ok": true})
	}
}
