package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luff543/EventChatBotBackend/internal/model"
)

func TestCreateAndGetSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateSession(ctx, "sess-1", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", created.SessionID)
	assert.Equal(t, "203.0.113.7", created.IPAddress)
	assert.Equal(t, 0, created.MessageCount)

	got, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, got.SessionID)

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestActiveSessionHonorsMessageLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, "sess-1", "203.0.113.7")
	require.NoError(t, err)

	session, err := store.LatestActiveSession(ctx, "203.0.113.7", 20)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.SessionID)

	for i := 0; i < 20; i++ {
		require.NoError(t, store.IncrementMessageCount(ctx, "sess-1"))
	}

	_, err = store.LatestActiveSession(ctx, "203.0.113.7", 20)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessagesKeepArrivalOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, "sess-1", "203.0.113.7")
	require.NoError(t, err)

	contents := []string{"first", "second", "third"}
	for i, content := range contents {
		require.NoError(t, store.AddMessage(ctx, model.Message{
			ID:        string(rune('a' + i)),
			SessionID: "sess-1",
			Role:      model.RoleUser,
			Content:   content,
		}))
	}

	messages, err := store.GetMessages(ctx, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i, msg := range messages {
		assert.Equal(t, contents[i], msg.Content)
	}
}

func TestSessionIDsForIP(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, "sess-1", "203.0.113.7")
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, "sess-2", "203.0.113.7")
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, "other", "198.51.100.1")
	require.NoError(t, err)

	ids, err := store.SessionIDsForIP(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sess-1", "sess-2"}, ids)
}
