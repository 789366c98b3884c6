// Package handler exposes the HTTP surface of the event chatbot.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/middleware"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/internal/service"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
)

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	chat *service.ChatService
	log  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID != "" {
		if err := middleware.ValidateSessionID(req.SessionID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.chat.ProcessMessage(r.Context(), &req, clientIP(r))
	if err != nil {
		h.log.Error("processing message failed",
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
