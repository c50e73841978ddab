package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/models"
	"github.com/luzzdev/luzzia/internal/storage"
)

func TestDispatchDeliversMatchingEvent(t *testing.T) {
	var bodies [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, body)
	}))
	defer srv.Close()

	store := storage.NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, store.CreateWebhook(ctx, &models.Webhook{
		Name: "novos usuários", URL: srv.URL, Event: EventUserCreated,
	}))
	require.NoError(t, store.CreateWebhook(ctx, &models.Webhook{
		Name: "novas conversas", URL: srv.URL, Event: EventThreadCreated,
	}))

	d := NewDispatcher(store, zap.NewNop())
	d.Dispatch(ctx, EventUserCreated, map[string]string{"username": "maria"})

	require.Len(t, bodies, 1)

	var env struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(bodies[0], &env))
	assert.Equal(t, EventUserCreated, env.Event)
	assert.Equal(t, "maria", env.Data["username"])
}

func TestDispatchNoRegisteredHooks(t *testing.T) {
	store := storage.NewMemoryStorage()
	d := NewDispatcher(store, zap.NewNop())

	// No webhooks registered; must be a silent no-op.
	d.Dispatch(context.Background(), EventThreadCreated, nil)
}

func TestDispatchSurvivesFailingEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := storage.NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, store.CreateWebhook(ctx, &models.Webhook{
		Name: "quebrado", URL: srv.URL, Event: EventUserCreated,
	}))

	d := NewDispatcher(store, zap.NewNop())
	// Failure is logged, never returned.
	d.Dispatch(ctx, EventUserCreated, nil)
}
