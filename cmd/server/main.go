package main

import (
	"log"

	"github.com/seolcoding/dajam-sub000/internal/channel"
	"github.com/seolcoding/dajam-sub000/internal/config"
	"github.com/seolcoding/dajam-sub000/internal/database"
	"github.com/seolcoding/dajam-sub000/internal/gateway"
	"github.com/seolcoding/dajam-sub000/internal/handlers"
	"github.com/seolcoding/dajam-sub000/internal/live"
	"github.com/seolcoding/dajam-sub000/internal/middleware"
	"github.com/seolcoding/dajam-sub000/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	bus := channel.NewMemoryBus()
	hub := channel.NewHub(bus)
	gw := gateway.NewGormGateway(db)
	registry := live.NewRegistry(bus, gw)

	authService := services.NewAuthService(db, cfg.JWTSecret)
	sessionService := services.NewSessionService(db, gw)

	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(sessionService, registry)
	logHandler := handlers.NewLogHandler(sessionService, registry)
	wsHandler := handlers.NewWSHandler(hub, registry, sessionService)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/ws/session/:id", wsHandler.HandleSession)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", middleware.JWTAuth(authService), sessionHandler.CreateSession)
			sessions.GET("", middleware.JWTAuth(authService), sessionHandler.ListSessions)
			sessions.GET("/code/:code", sessionHandler.ResolveCode)
			sessions.GET("/:id/state", sessionHandler.GetState)
			sessions.POST("/:id/scene", middleware.JWTAuth(authService), sessionHandler.ChangeScene)
			sessions.DELETE("/:id", middleware.JWTAuth(authService), sessionHandler.EndSession)

			sessions.POST("/:id/entries", logHandler.Append)
			sessions.POST("/:id/entries/:entry_id/like", logHandler.Like)
			sessions.DELETE("/:id/entries/:entry_id/like", logHandler.Unlike)
			sessions.PUT("/:id/entries/:entry_id", middleware.JWTAuth(authService), logHandler.Moderate)
			sessions.DELETE("/:id/entries/:entry_id", middleware.JWTAuth(authService), logHandler.Remove)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
