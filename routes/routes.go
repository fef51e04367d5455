package routes

import (
	"time"

	"campuspark/handlers"
	"campuspark/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAssistantRoutes registers the chat and voice turn endpoints.
func RegisterAssistantRoutes(r *gin.Engine, hb *handlers.HandlerBundle, perMin int) {
	api := r.Group("/api/assistant")
	{
		api.Use(middleware.IdentityMiddleware(false))
		api.Use(middleware.RateLimitMiddleware(perMin))
		api.POST("/chat", hb.AssistantChatHandler)
		api.POST("/voice", hb.AssistantVoiceHandler)
	}
}

// RegisterVerificationRoutes registers the occupancy verification endpoints.
func RegisterVerificationRoutes(r *gin.Engine, hb *handlers.HandlerBundle, perMin int) {
	api := r.Group("/api/verification")
	{
		api.Use(middleware.IdentityMiddleware(false))
		api.Use(middleware.RateLimitMiddleware(perMin))
		api.GET("/pending", hb.PendingVerificationHandler)
		api.POST("/respond", hb.RespondVerificationHandler)
	}
}

// RegisterWebSocketRoute registers the realtime channel. The token is
// optional; a session may identify later.
func RegisterWebSocketRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/api/ws", middleware.IdentityMiddleware(true), hb.WebSocketHandler)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, perMin int) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterAssistantRoutes(r, hb, perMin)
	RegisterVerificationRoutes(r, hb, perMin)
	RegisterWebSocketRoute(r, hb)
	RegisterHealthRoute(r, hb)
}
