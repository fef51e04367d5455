package handlers

import (
	"errors"
	"net/http"

	"campuspark/middleware"
	"campuspark/models"
	"campuspark/services/realtime"
	"campuspark/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VerificationHandler exposes the pending Yes/No question over HTTP.
type VerificationHandler struct {
	Pending   *realtime.PendingStore
	Responder *realtime.VerificationResponder
}

// PendingHandler returns the identity's open question, or null.
func (h *VerificationHandler) PendingHandler(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Unauthorized", "identity required")
		return
	}
	p, ok := h.Pending.Get(identity.ID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"pending": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": p})
}

// RespondHandler applies a yes/no answer to the open question.
func (h *VerificationHandler) RespondHandler(c *gin.Context) {
	logger := getLogger(c)

	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Unauthorized", "identity required")
		return
	}

	var req models.VerificationAnswer
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid input", "answer must be \"yes\" or \"no\"")
		return
	}

	p, err := h.Responder.Respond(c.Request.Context(), identity, req.Answer)
	switch {
	case errors.Is(err, realtime.ErrNoPending):
		utils.JSONError(c, http.StatusNotFound, "No pending verification", "there is nothing to answer")
		return
	case err != nil:
		logger.Error("Failed to record verification answer", zap.String("identity", identity.ID), zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "Could not record your answer", "please try again")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "recorded",
		"answer":   req.Answer,
		"space":    p.SpaceName,
		"location": p.Location,
	})
}
