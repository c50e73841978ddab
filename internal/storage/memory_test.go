package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luzzdev/luzzia/internal/models"
)

func TestMemoryThreadLifecycle(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	thread := &models.Thread{
		AgentID: "agent-1",
		Title:   "Primeira",
		Type:    models.CategoryChat,
		Messages: []*models.Message{
			{ID: "m1", Role: models.RoleUser, Content: "oi"},
		},
	}
	require.NoError(t, s.CreateThread(ctx, thread))
	require.NotEmpty(t, thread.ID)
	assert.Equal(t, thread.ID, thread.Messages[0].ThreadID)

	require.NoError(t, s.AppendMessages(ctx, thread.ID, []*models.Message{
		{ID: "m2", Role: models.RoleAssistant, Content: "olá"},
	}))

	threads, err := s.ListThreads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	require.Len(t, threads[0].Messages, 2)
	assert.Equal(t, "m1", threads[0].Messages[0].ID)
	assert.Equal(t, "m2", threads[0].Messages[1].ID)

	require.NoError(t, s.RenameThread(ctx, thread.ID, "Renomeada"))
	threads, err = s.ListThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Renomeada", threads[0].Title)

	require.NoError(t, s.DeleteThread(ctx, thread.ID))
	threads, err = s.ListThreads(ctx)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestMemoryThreadNotFound(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	err := s.AppendMessages(ctx, "nope", []*models.Message{{ID: "m"}})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.RenameThread(ctx, "nope", "x"), ErrNotFound)
	assert.ErrorIs(t, s.DeleteThread(ctx, "nope"), ErrNotFound)
}

func TestMemoryListThreadsOrder(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	older := &models.Thread{Title: "Antiga", Type: models.CategoryChat}
	require.NoError(t, s.CreateThread(ctx, older))
	time.Sleep(2 * time.Millisecond)
	newer := &models.Thread{Title: "Recente", Type: models.CategoryChat}
	require.NoError(t, s.CreateThread(ctx, newer))

	threads, err := s.ListThreads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "Recente", threads[0].Title)

	// Appending touches the thread and moves it to the top.
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.AppendMessages(ctx, older.ID, []*models.Message{
		{ID: "m1", Role: models.RoleUser, Content: "oi"},
	}))
	threads, err = s.ListThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Antiga", threads[0].Title)
}

func TestMemoryAgentCRUD(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	agent := &models.Agent{Name: "Avatar360", SystemPrompt: "Você é Avatar360."}
	require.NoError(t, s.CreateAgent(ctx, agent))
	require.NotEmpty(t, agent.ID)

	got, err := s.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Avatar360", got.Name)

	agent.Name = "Avatar361"
	require.NoError(t, s.UpdateAgent(ctx, agent))
	got, err = s.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Avatar361", got.Name)

	require.NoError(t, s.DeleteAgent(ctx, agent.ID))
	_, err = s.GetAgent(ctx, agent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdateUserKeepsPassword(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	user := &models.User{Username: "maria", PasswordHash: "hash-original", Role: "user"}
	require.NoError(t, s.CreateUser(ctx, user))

	update := &models.User{ID: user.ID, Username: "maria", Role: "admin"}
	require.NoError(t, s.UpdateUser(ctx, update))

	got, err := s.GetUserByUsername(ctx, "maria")
	require.NoError(t, err)
	assert.Equal(t, "hash-original", got.PasswordHash)
	assert.Equal(t, "admin", got.Role)
}

func TestMemoryGetActiveProvider(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	_, err := s.GetActiveProvider(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	// Active without a key does not count.
	noKey := &models.APIProvider{Provider: "groq", Name: "Groq", IsActive: true}
	require.NoError(t, s.CreateProvider(ctx, noKey))
	_, err = s.GetActiveProvider(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	// Inactive with a key does not count either.
	inactive := &models.APIProvider{Provider: "openai", Name: "OpenAI", APIKey: "sk-x", IsActive: false}
	require.NoError(t, s.CreateProvider(ctx, inactive))
	_, err = s.GetActiveProvider(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	ready := &models.APIProvider{Provider: "gemini", Name: "Gemini", APIKey: "key", IsActive: true}
	require.NoError(t, s.CreateProvider(ctx, ready))
	got, err := s.GetActiveProvider(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gemini", got.Provider)
}

func TestMemoryCreateThreadCopies(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	msg := &models.Message{ID: "m1", Role: models.RoleUser, Content: "original"}
	thread := &models.Thread{Title: "T", Type: models.CategoryChat, Messages: []*models.Message{msg}}
	require.NoError(t, s.CreateThread(ctx, thread))

	// Mutating the caller's message must not leak into storage.
	msg.Content = "mutado"
	threads, err := s.ListThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, "original", threads[0].Messages[0].Content)
}
