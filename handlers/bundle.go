// File: handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Assistant endpoints
	AssistantChatHandler  gin.HandlerFunc
	AssistantVoiceHandler gin.HandlerFunc

	// Verification endpoints
	PendingVerificationHandler gin.HandlerFunc
	RespondVerificationHandler gin.HandlerFunc

	// Realtime
	WebSocketHandler gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}
