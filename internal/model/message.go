// Package model defines data structures for the event chatbot backend.
package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single conversation turn.
type Message struct {
	ID        string    `json:"id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Session represents a chat session bound to a client address.
type Session struct {
	ID           int64     `json:"-" db:"id"`
	SessionID    string    `json:"session_id" db:"session_id"`
	IPAddress    string    `json:"-" db:"ip_address"`
	MessageCount int       `json:"message_count" db:"message_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ChatRequest is the request to process a user message.
type ChatRequest struct {
	Message      string        `json:"message"`
	SessionID    string        `json:"session_id,omitempty"`
	Page         int           `json:"page,omitempty"`
	SearchParams *SearchParams `json:"search_params,omitempty"`
}

// ChatResponse is the full response for one processed turn.
type ChatResponse struct {
	Message           string              `json:"message"`
	Intent            Intent              `json:"intent"`
	Success           bool                `json:"success"`
	SessionID         string              `json:"session_id"`
	ConversationStage Stage               `json:"conversation_stage,omitempty"`
	SearchParams      *SearchParams       `json:"search_params,omitempty"`
	Events            []Event             `json:"events,omitempty"`
	Pagination        *Pagination         `json:"pagination,omitempty"`
	Proactive         *ProactiveQuestions `json:"proactive_questions,omitempty"`
	ProfileSummary    *ProfileSummary     `json:"user_profile_summary,omitempty"`
}

// ProfileSummary is the compact profile view attached to chat responses.
type ProfileSummary struct {
	VisitCount        int                 `json:"visit_count"`
	Interests         []string            `json:"interests"`
	Preferences       ActivityPreferences `json:"activity_preferences"`
	PersonalityTraits map[string]any      `json:"personality_traits"`
	LastActivity      time.Time           `json:"last_activity"`
	TotalInteractions int                 `json:"total_interactions"`
}

// HandlerResponse is what an intent handler produces for a turn: the draft
// response text plus any structured side-payload for downstream components.
type HandlerResponse struct {
	Message      string
	Intent       Intent
	Success      bool
	SearchParams *SearchParams
	Events       []Event
	Pagination   *Pagination
}
