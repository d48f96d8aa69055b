package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bioassist/middleware"
	"bioassist/pkg/chat"
	"bioassist/store"

	"github.com/gin-gonic/gin"
)

type completionRequest struct {
	Message        string   `json:"message"`
	ConversationID string   `json:"conversation_id"`
	ExpertID       string   `json:"expert_id"`
	Model          string   `json:"model"`
	Temperature    *float64 `json:"temperature"`
	Stream         *bool    `json:"stream"`
}

// SSE wire payloads.
type tokenEvent struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
}

type titleEvent struct {
	Type           string `json:"type"`
	Title          string `json:"title"`
	ConversationID string `json:"conversationId"`
}

type errorEvent struct {
	Error string `json:"error"`
}

// Completions handles POST /chat/completions. Streaming responses follow the
// SSE contract (token/title/error events, closed by `data: [DONE]`);
// stream=false drains the same state machine and answers with JSON.
func Completions(orch *chat.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)

		var body completionRequest
		if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Message) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "message is required"})
			return
		}

		if !middleware.DuplicateGuard(uid, body.Message) {
			c.JSON(http.StatusTooManyRequests, gin.H{"msg": "duplicate message, slow down"})
			return
		}
		release := middleware.AcquireUserSlot(uid)
		defer release()

		req := chat.Request{
			Message:        body.Message,
			ConversationID: strings.TrimSpace(body.ConversationID),
			ExpertID:       strings.TrimSpace(body.ExpertID),
			Model:          strings.TrimSpace(body.Model),
			Temperature:    body.Temperature,
		}

		if body.Stream != nil && !*body.Stream {
			conversationID, message, err := orch.Complete(c.Request.Context(), uid, req)
			if err != nil {
				abortChatError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"conversation_id": conversationID,
				"message":         message,
			})
			return
		}

		conv, events, err := orch.Stream(c.Request.Context(), uid, req)
		if err != nil {
			abortChatError(c, err)
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no") // nginx buffering off

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.String(http.StatusInternalServerError, "streaming unsupported")
			return
		}

		for ev := range events {
			switch ev.Kind {
			case chat.EventToken:
				writeSSE(c, flusher, tokenEvent{Content: ev.Content, ConversationID: conv.ID})
			case chat.EventTitle:
				writeSSE(c, flusher, titleEvent{Type: "title_generated", Title: ev.Title, ConversationID: conv.ID})
			case chat.EventError:
				writeSSE(c, flusher, errorEvent{Error: ev.Err})
			}
		}
		fmt.Fprint(c.Writer, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

func writeSSE(c *gin.Context, flusher http.Flusher, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", b)
	flusher.Flush()
}

func abortChatError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"msg": "conversation not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"msg": "chat completion failed"})
}
