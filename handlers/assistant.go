package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	parkingRepo "campuspark/database/repository/parking"
	"campuspark/middleware"
	"campuspark/models"
	ai "campuspark/services/intelligence"
	"campuspark/services/speech"
	"campuspark/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteFinder returns a polyline from an entrance to a space location.
type RouteFinder interface {
	Route(ctx context.Context, entrance models.Entrance, destination string) (string, error)
}

// Speaker reads a reply aloud on the identity's sessions.
type Speaker interface {
	Speak(sessionID, text string)
}

// AssistantHandler serves chat and voice turns.
type AssistantHandler struct {
	Engine      ai.DialogueEngine
	Spaces      parkingRepo.ParkingSpaceRepository
	Routes      RouteFinder
	Speaker     Speaker
	Transcriber speech.Transcriber
	Timeout     time.Duration
}

// ChatHandler runs one typed turn.
func (h *AssistantHandler) ChatHandler(c *gin.Context) {
	logger := getLogger(c)

	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Unauthorized", "identity required")
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid chat request", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}

	resp := h.turn(c.Request.Context(), logger, identity, req.Message, req.History)
	if req.Speak {
		h.Speaker.Speak(identity.ID, resp.Response)
	}
	c.JSON(http.StatusOK, resp)
}

// VoiceHandler transcribes an uploaded recording, runs it as a turn and
// always speaks the reply.
func (h *AssistantHandler) VoiceHandler(c *gin.Context) {
	logger := getLogger(c)

	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Unauthorized", "identity required")
		return
	}
	if h.Transcriber == nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Voice input unavailable", "speech recognition is not configured")
		return
	}

	language := c.DefaultPostForm("language", "en-US")
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "audio file is required", err.Error())
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != speech.AllowedExtension {
		utils.JSONError(c, http.StatusBadRequest, "invalid file type", "expected "+speech.AllowedExtension+", got "+ext)
		return
	}
	wav, err := io.ReadAll(io.LimitReader(file, speech.MaxFileSize+1))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to read audio file", err.Error())
		return
	}
	if len(wav) > speech.MaxFileSize {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, "audio file too large", "maximum is 5MB")
		return
	}

	transcript, err := h.Transcriber.Transcribe(c.Request.Context(), wav, language)
	switch {
	case errors.Is(err, speech.ErrInvalidAudio), errors.Is(err, speech.ErrTooLong):
		utils.JSONError(c, http.StatusBadRequest, "audio rejected", err.Error())
		return
	case err != nil:
		logger.Error("Transcription failed", zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "speech recognition failed", "please try again")
		return
	}
	if transcript == "" {
		utils.JSONError(c, http.StatusUnprocessableEntity, "no speech detected", "please try again")
		return
	}

	resp := h.turn(c.Request.Context(), logger, identity, transcript, nil)
	h.Speaker.Speak(identity.ID, resp.Response)
	c.JSON(http.StatusOK, gin.H{
		"transcription": transcript,
		"kind":          resp.Kind,
		"response":      resp.Response,
		"route":         resp.Route,
	})
}

func (h *AssistantHandler) turn(ctx context.Context, logger *zap.Logger, identity models.Identity, message string, history []models.ChatMessage) models.ChatResponse {
	reply := h.Engine.Handle(ctx, identity, message, history)
	resp := models.ChatResponse{Kind: reply.Kind, Response: reply.Text}
	if reply.Kind == models.ReplyRouteReady {
		resp.Route = h.attachRoute(ctx, logger, reply)
	}
	return resp
}

// attachRoute looks up the space location and, when directions are
// configured, a polyline from the chosen entrance.
func (h *AssistantHandler) attachRoute(ctx context.Context, logger *zap.Logger, reply models.Reply) *models.RouteAttachment {
	route := &models.RouteAttachment{Space: reply.Space, Entrance: reply.Entrance}

	opCtx, cancel := context.WithCancel(ctx)
	if h.Timeout > 0 {
		cancel()
		opCtx, cancel = context.WithTimeout(ctx, h.Timeout)
	}
	defer cancel()

	space, err := h.Spaces.GetByName(opCtx, reply.Space)
	if err != nil {
		logger.Warn("Route attachment without location", zap.String("space", reply.Space), zap.Error(err))
		return route
	}
	route.Location = space.Location

	if h.Routes == nil {
		return route
	}
	polyline, err := h.Routes.Route(opCtx, reply.Entrance, space.Location)
	if err != nil {
		logger.Debug("No polyline for route", zap.String("space", reply.Space), zap.Error(err))
		return route
	}
	route.Polyline = polyline
	return route
}
