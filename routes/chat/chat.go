package chat

import (
	"bioassist/controllers"
	"bioassist/middleware"
	chatsvc "bioassist/pkg/chat"
	"bioassist/store"

	"github.com/gin-gonic/gin"
)

// Register registers the chat and conversation routes (protected).
func Register(g *gin.RouterGroup, cs *store.ConversationStore, orch *chatsvc.Orchestrator) {
	// Basic rate limiting on the generation endpoint
	g.POST("/chat/completions", middleware.RateLimit(), controllers.Completions(orch))

	g.POST("/chat/conversations", controllers.CreateConversation(cs))
	g.GET("/chat/conversations", controllers.ListConversations(cs))
	g.GET("/chat/conversations/:conversation_id", controllers.GetConversation(cs))
	g.GET("/chat/conversations/:conversation_id/messages", controllers.GetConversationMessages(cs))
	g.PUT("/chat/conversations/:conversation_id", controllers.UpdateConversation(cs))
	g.DELETE("/chat/conversations/:conversation_id", controllers.DeleteConversation(cs))
	g.POST("/chat/conversations/:conversation_id/archive", controllers.ArchiveConversation(cs))
	g.POST("/chat/conversations/:conversation_id/favorite", controllers.FavoriteConversation(cs))
	g.POST("/chat/conversations/:conversation_id/tags", controllers.AddConversationTag(cs))
	g.DELETE("/chat/conversations/:conversation_id/tags/:tag", controllers.RemoveConversationTag(cs))
}

// RegisterWS registers the WebSocket streaming route; it authenticates via a
// token query parameter instead of the auth middleware.
func RegisterWS(r *gin.Engine, orch *chatsvc.Orchestrator) {
	r.GET("/api/chat/ws", controllers.ChatWS(orch))
}
