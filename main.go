package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bioassist/middleware"
	"bioassist/models"
	"bioassist/pkg/cache"
	"bioassist/pkg/chat"
	"bioassist/pkg/config"
	"bioassist/pkg/llm"
	"bioassist/routes"
	"bioassist/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDB() (*gorm.DB, error) {
	switch config.DBDriver {
	case "mysql":
		return gorm.Open(mysql.Open(config.DBDSN), &gorm.Config{})
	default:
		return gorm.Open(sqlite.Open(config.DBDSN), &gorm.Config{})
	}
}

func main() {
	db, err := openDB()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Message{},
		&models.ProviderConfig{},
		&models.Agent{},
	); err != nil {
		log.Fatalf("failed migrate: %v", err)
	}

	// one engine / pooled HTTP client for the whole process, injected into
	// handlers and shut down via the lifecycle hooks below
	configCache := cache.New(500)
	ttl := time.Duration(config.ConfigCacheTTLSeconds) * time.Second
	providers := store.NewProviderStore(db, configCache, ttl)
	agents := store.NewAgentStore(db, configCache, ttl)
	conversations := store.NewConversationStore(db)

	resolver := llm.NewResolver(providers)
	engine := llm.NewService(resolver, time.Duration(config.LLMTimeoutSeconds)*time.Second)
	titles := chat.NewTitleGenerator(engine, config.TitleMaxRunes)
	orchestrator := chat.NewOrchestrator(conversations, agents, engine, resolver, titles, config.HistoryWindow)

	middleware.SetRateLimitConfig(
		time.Duration(config.RateLimitWindowSeconds)*time.Second,
		config.RateLimitCapacity,
		config.UserConcurrencyLimit,
	)
	middleware.SetDuplicateTTL(time.Duration(config.DuplicateWindowSeconds) * time.Second)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		DB:            db,
		Conversations: conversations,
		Orchestrator:  orchestrator,
	})

	srv := &http.Server{Addr: ":" + config.Port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()
	log.Printf("[main] listening on :%s", config.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[main] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] server shutdown: %v", err)
	}
	engine.Close()
}
