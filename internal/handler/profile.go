package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/middleware"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/internal/profile"
	"github.com/luff543/EventChatBotBackend/internal/service"
	"github.com/luff543/EventChatBotBackend/internal/storage"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
)

// ProfileHandler handles profile read, feedback and recommendation
// endpoints.
type ProfileHandler struct {
	store *storage.Store
	chat  *service.ChatService
	log   *logger.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(store *storage.Store, chat *service.ChatService, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, chat: chat, log: log}
}

// Get handles GET /api/v1/profiles/{sessionID}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prof, err := h.store.GetProfile(r.Context(), sessionID)
	if err != nil {
		h.log.Error("loading profile failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, prof)
}

// Recommendations handles GET /api/v1/profiles/{sessionID}/recommendations
func (h *ProfileHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prof, err := h.store.GetProfile(r.Context(), sessionID)
	if err != nil {
		h.log.Error("loading profile failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, profile.Recommend(prof))
}

// feedbackRequest is the POST body for recording feedback.
type feedbackRequest struct {
	Type    string         `json:"feedback_type"`
	Value   string         `json:"feedback_value"`
	Rating  *float64       `json:"rating,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// Feedback handles POST /api/v1/profiles/{sessionID}/feedback
func (h *ProfileHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "feedback_type is required")
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	fb := model.Feedback{
		Type:    req.Type,
		Value:   req.Value,
		Rating:  req.Rating,
		Context: req.Context,
	}
	if err := h.store.AddFeedback(r.Context(), sessionID, fb); err != nil {
		h.log.Error("recording feedback failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to record feedback")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// ClientProfile handles GET /api/v1/clients/{ip}/profile, the cross-session
// merged view for one client address.
func (h *ProfileHandler) ClientProfile(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if ip == "" {
		writeError(w, http.StatusBadRequest, "client address is required")
		return
	}

	merged, err := h.chat.AggregatedProfile(r.Context(), ip)
	if err != nil {
		h.log.Error("aggregating profiles failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to aggregate profiles")
		return
	}

	writeJSON(w, http.StatusOK, merged)
}
