package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/ai"
	"github.com/luzzdev/luzzia/internal/auth"
	"github.com/luzzdev/luzzia/internal/chat"
	"github.com/luzzdev/luzzia/internal/models"
	"github.com/luzzdev/luzzia/internal/storage"
	"github.com/luzzdev/luzzia/internal/webhook"
)

// fakeGenerator scripts the generation layer per test.
type fakeGenerator struct {
	readyErr    error
	reply       string
	generateErr error
	classifyErr error
}

func (f *fakeGenerator) Ready(ctx context.Context) error { return f.readyErr }

func (f *fakeGenerator) Generate(ctx context.Context, req ai.Request, onDelta func(string)) (string, error) {
	if f.generateErr != nil {
		return "", f.generateErr
	}
	if f.reply == "" {
		return "resposta", nil
	}
	return f.reply, nil
}

func (f *fakeGenerator) Classify(ctx context.Context, userText, reply string) (*ai.Classification, error) {
	if f.classifyErr != nil {
		return nil, f.classifyErr
	}
	return &ai.Classification{Title: "Título Gerado", Category: models.CategoryChat}, nil
}

type testEnv struct {
	server *httptest.Server
	store  *storage.MemoryStorage
	auth   *auth.Service
	chat   *chat.Service
}

func newTestEnv(t *testing.T, gen ai.Generator) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := storage.NewMemoryStorage()

	sessions := chat.NewSessionStore(store, logger)
	require.NoError(t, sessions.Load(context.Background()))
	hooks := webhook.NewDispatcher(store, logger)
	chatSvc := chat.NewService(sessions, gen, store, hooks, logger)

	authSvc := auth.NewService(store, "test-secret", time.Hour, logger)

	srv := httptest.NewServer(NewServer(chatSvc, gen, store, authSvc, hooks, logger).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, store: store, auth: authSvc, chat: chatSvc}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func (e *testEnv) seedAdmin(t *testing.T) string {
	t.Helper()
	hash, err := auth.HashPassword("admin-pass")
	require.NoError(t, err)
	require.NoError(t, e.store.CreateUser(context.Background(), &models.User{
		Username: "admin", PasswordHash: hash, Role: "admin",
	}))
	_, token, err := e.auth.Login(context.Background(), "admin", "admin-pass")
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{})
	resp := env.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{})
	env.seedAdmin(t)

	t.Run("success", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": "admin", "password": "admin-pass",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			User  *models.User `json:"user"`
			Token string       `json:"token"`
		}
		decodeBody(t, resp, &body)
		assert.Equal(t, "admin", body.User.Username)
		assert.NotEmpty(t, body.Token)
		// The hash never leaves the server.
		raw, _ := json.Marshal(body.User)
		assert.NotContains(t, string(raw), "password")
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": "admin", "password": "errada",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAdminGating(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{})
	adminToken := env.seedAdmin(t)

	hash, err := auth.HashPassword("user-pass")
	require.NoError(t, err)
	require.NoError(t, env.store.CreateUser(context.Background(), &models.User{
		Username: "comum", PasswordHash: hash, Role: "user",
	}))
	_, userToken, err := env.auth.Login(context.Background(), "comum", "user-pass")
	require.NoError(t, err)

	t.Run("no token", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/users", "", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/users", "garbage", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("non-admin role", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/users", userToken, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin passes", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/users", adminToken, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("agent list is public", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/agents", "", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestAgentCRUD(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{})
	token := env.seedAdmin(t)

	resp := env.do(t, http.MethodPost, "/api/agents", token, map[string]string{
		"name": "Avatar360", "prompt": "Você é Avatar360.", "personality": "Analítico.",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Agent
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)

	resp = env.do(t, http.MethodPut, "/api/agents/"+created.ID, token, map[string]string{
		"name": "Avatar361", "prompt": "Você é Avatar361.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Agent
	decodeBody(t, resp, &updated)
	assert.Equal(t, "Avatar361", updated.Name)

	resp = env.do(t, http.MethodDelete, "/api/agents/"+created.ID, token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/agents/"+created.ID, token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateUserMissingPassword(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{})
	token := env.seedAdmin(t)

	resp := env.do(t, http.MethodPost, "/api/users", token, map[string]string{
		"username": "sem-senha",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateTitleFallback(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{classifyErr: errors.New("boom")})

	resp := env.do(t, http.MethodPost, "/api/generate-title", "", map[string]string{
		"message": "como crescer no instagram",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Title string          `json:"title"`
		Type  models.Category `json:"type"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, chat.FallbackTitle, body.Title)
	assert.Equal(t, models.CategoryChat, body.Type)
}

func TestGenerateTitleSuccess(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{})

	resp := env.do(t, http.MethodPost, "/api/generate-title", "", map[string]string{
		"message": "como crescer no instagram",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Title string `json:"title"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "Título Gerado", body.Title)
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{})

	resp := env.do(t, http.MethodPost, "/api/history", "", map[string]any{
		"title": "Plano de conteúdo",
		"type":  "note",
		"messages": []map[string]string{
			{"id": "m1", "role": "user", "content": "oi"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Thread
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)

	resp = env.do(t, http.MethodGet, "/api/history", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed struct {
		History []map[string]any             `json:"history"`
		Chats   map[string][]*models.Message `json:"chats"`
	}
	decodeBody(t, resp, &listed)
	require.Len(t, listed.History, 1)
	assert.Equal(t, "Plano de conteúdo", listed.History[0]["title"])
	assert.Len(t, listed.Chats[created.ID], 1)

	t.Run("invalid category becomes chat", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/history", "", map[string]any{
			"title": "Qualquer", "type": "youtube",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var thread models.Thread
		decodeBody(t, resp, &thread)
		assert.Equal(t, models.CategoryChat, thread.Type)
	})

	t.Run("missing title rejected", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/history", "", map[string]any{"type": "note"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("append to unknown thread", func(t *testing.T) {
		resp := env.do(t, http.MethodPut, "/api/history/nope", "", map[string]any{
			"messages": []map[string]string{{"id": "m", "role": "user", "content": "x"}},
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{reply: "resposta da IA"})

	agent := &models.Agent{Name: "Avatar360", SystemPrompt: "Você é Avatar360."}
	require.NoError(t, env.store.CreateAgent(context.Background(), agent))

	resp := env.do(t, http.MethodPost, "/api/session/agent", "", map[string]string{"agent_id": agent.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/session/new", "", map[string]string{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var draft threadRef
	decodeBody(t, resp, &draft)
	assert.True(t, draft.Draft)

	resp = env.do(t, http.MethodPost, "/api/session/send", "", map[string]any{"text": "olá"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sent sendResponse
	decodeBody(t, resp, &sent)
	assert.Equal(t, "resposta da IA", sent.Message.Content)
	// The first completed exchange promoted the draft.
	assert.False(t, sent.Thread.Draft)
	assert.NotEqual(t, draft.ID, sent.Thread.ID)

	resp = env.do(t, http.MethodGet, "/api/session/threads", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var threads []*models.Thread
	decodeBody(t, resp, &threads)
	require.Len(t, threads, 1)
	assert.Equal(t, "Título Gerado", threads[0].Title)
}

func TestSendWithoutSession(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{})

	resp := env.do(t, http.MethodPost, "/api/session/send", "", map[string]any{"text": "olá"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSendGenerationUnavailable(t *testing.T) {
	env := newTestEnv(t, &fakeGenerator{readyErr: ai.ErrNoProvider})

	agent := &models.Agent{Name: "Avatar360"}
	require.NoError(t, env.store.CreateAgent(context.Background(), agent))
	resp := env.do(t, http.MethodPost, "/api/session/agent", "", map[string]string{"agent_id": agent.ID})
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/api/session/new", "", map[string]string{})
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/session/send", "", map[string]any{"text": "olá"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
