package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/luff543/EventChatBotBackend/internal/model"
)

const (
	// StreamName is the name of the chat analytics stream.
	StreamName = "CHAT_EVENTS"

	// SubjectPrefix is the prefix for all chat event subjects.
	SubjectPrefix = "chat"
)

// TurnEvent is the analytics record published after each processed turn.
type TurnEvent struct {
	SessionID string       `json:"session_id"`
	Intent    model.Intent `json:"intent"`
	Stage     model.Stage  `json:"stage"`
	Proactive bool         `json:"proactive"`
	Reason    string       `json:"reason"`
	Timestamp time.Time    `json:"timestamp"`
}

// BehaviorEvent is the analytics record for an observed user action.
type BehaviorEvent struct {
	SessionID string         `json:"session_id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the chat events stream exists.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat turn and behavior analytics events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject for a session's turn events.
func TurnSubject(sessionID string) string {
	return fmt.Sprintf("%s.turns.%s", SubjectPrefix, sessionID)
}

// BehaviorSubject returns the subject for a session's behavior events.
func BehaviorSubject(sessionID string) string {
	return fmt.Sprintf("%s.behaviors.%s", SubjectPrefix, sessionID)
}

// PublishTurn publishes a turn event to JetStream.
func (m *StreamManager) PublishTurn(ctx context.Context, event TurnEvent) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal turn event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, TurnSubject(event.SessionID), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish turn event: %w", err)
	}
	return ack.Sequence, nil
}

// PublishBehavior publishes a behavior event to JetStream.
func (m *StreamManager) PublishBehavior(ctx context.Context, event BehaviorEvent) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal behavior event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, BehaviorSubject(event.SessionID), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish behavior event: %w", err)
	}
	return ack.Sequence, nil
}
