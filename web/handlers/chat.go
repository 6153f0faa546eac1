package handlers

import (
	"context"
	"errors"
	"net/http"

	apperrors "campus-assistant/errors"
	"campus-assistant/web/services"
	"campus-assistant/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Answerer runs one chat turn. services.ChatService implements it.
type Answerer interface {
	Answer(ctx context.Context, question string) (types.ChatResponse, error)
}

type ChatHandler struct {
	chat   Answerer
	logger *zap.Logger
}

func NewChatHandler(chat Answerer, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// Ask handles POST /api/chat.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "Please send a JSON body with a \"question\" field.")
		return
	}

	resp, err := h.chat.Answer(c.Request.Context(), req.Question)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case apperrors.IsInvalidInput(err):
		respondWithClientError(c, http.StatusBadRequest, "Your question is too long. Please shorten it and try again.")
	case apperrors.IsGeneration(err):
		h.logger.Error("Answer generation failed",
			zap.Error(err),
			zap.String("request_id", c.GetString("requestID")))
		c.JSON(http.StatusInternalServerError, types.ChatResponse{Answer: services.GenerationFailedAnswer})
	case errors.Is(err, context.Canceled):
		h.logger.Info("Client went away before the answer was ready",
			zap.String("request_id", c.GetString("requestID")))
		c.Status(499)
	default:
		respondWithError(c, http.StatusInternalServerError, err, services.GenerationFailedAnswer, h.logger)
	}
}
