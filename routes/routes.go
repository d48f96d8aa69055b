package routes

import (
	"net/http"

	"bioassist/middleware"
	"bioassist/pkg/chat"
	"bioassist/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	authRoutes "bioassist/routes/auth"
	chatRoutes "bioassist/routes/chat"
)

// Deps carries the long-lived service objects handlers close over. They are
// constructed once in main and injected here; no package-level singletons.
type Deps struct {
	DB            *gorm.DB
	Conversations *store.ConversationStore
	Orchestrator  *chat.Orchestrator
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "bioassist chat backend running"})
	})

	authRoutes.RegisterPublic(r, deps.DB)
	chatRoutes.RegisterWS(r, deps.Orchestrator)

	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	authRoutes.RegisterProtected(protected)
	chatRoutes.Register(protected, deps.Conversations, deps.Orchestrator)
}
