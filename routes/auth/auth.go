package auth

import (
	"bioassist/controllers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterPublic registers auth routes that do not require a token.
func RegisterPublic(r *gin.Engine, db *gorm.DB) {
	g := r.Group("/auth")
	g.POST("/register", controllers.Register(db))
	g.POST("/login", controllers.Login(db))
}

// RegisterProtected registers auth routes behind the auth middleware.
func RegisterProtected(g *gin.RouterGroup) {
	g.POST("/auth/logout", controllers.Logout())
}
