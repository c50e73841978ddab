package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/ai"
	"github.com/luzzdev/luzzia/internal/auth"
	"github.com/luzzdev/luzzia/internal/chat"
	"github.com/luzzdev/luzzia/internal/models"
	"github.com/luzzdev/luzzia/internal/storage"
	"github.com/luzzdev/luzzia/internal/webhook"
)

// Server exposes the chat session, history and admin CRUD surfaces over
// HTTP.
type Server struct {
	chat   *chat.Service
	gen    ai.Generator
	store  storage.Storage
	auth   *auth.Service
	hooks  *webhook.Dispatcher
	logger *zap.Logger
}

func NewServer(chatSvc *chat.Service, gen ai.Generator, store storage.Storage, authSvc *auth.Service, hooks *webhook.Dispatcher, logger *zap.Logger) *Server {
	return &Server{
		chat:   chatSvc,
		gen:    gen,
		store:  store,
		auth:   authSvc,
		hooks:  hooks,
		logger: logger,
	}
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	// Chat pass-through and classification
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/generate-title", s.handleGenerateTitle)

	// Session-driven chat
	mux.HandleFunc("POST /api/session/agent", s.handleSwitchAgent)
	mux.HandleFunc("POST /api/session/new", s.handleStartNewChat)
	mux.HandleFunc("POST /api/session/select", s.handleSelectThread)
	mux.HandleFunc("POST /api/session/send", s.handleSend)
	mux.HandleFunc("GET /api/session/threads", s.handleSessionThreads)
	mux.HandleFunc("DELETE /api/session/threads/{id}", s.handleSessionDelete)
	mux.HandleFunc("PATCH /api/session/threads/{id}", s.handleSessionRename)
	mux.HandleFunc("GET /api/session/threads/{id}/export", s.handleSessionExport)

	// Persisted history
	mux.HandleFunc("GET /api/history", s.handleListHistory)
	mux.HandleFunc("POST /api/history", s.handleCreateThread)
	mux.HandleFunc("PUT /api/history/{id}", s.handleAppendMessages)
	mux.HandleFunc("PATCH /api/history/{id}", s.handleRenameThread)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleDeleteThread)

	// Admin CRUD
	mux.HandleFunc("GET /api/agents", s.handleListAgents)
	mux.HandleFunc("POST /api/agents", s.requireAdmin(s.handleCreateAgent))
	mux.HandleFunc("PUT /api/agents/{id}", s.requireAdmin(s.handleUpdateAgent))
	mux.HandleFunc("DELETE /api/agents/{id}", s.requireAdmin(s.handleDeleteAgent))

	mux.HandleFunc("GET /api/users", s.requireAdmin(s.handleListUsers))
	mux.HandleFunc("POST /api/users", s.requireAdmin(s.handleCreateUser))
	mux.HandleFunc("PUT /api/users/{id}", s.requireAdmin(s.handleUpdateUser))
	mux.HandleFunc("DELETE /api/users/{id}", s.requireAdmin(s.handleDeleteUser))

	mux.HandleFunc("GET /api/providers", s.requireAdmin(s.handleListProviders))
	mux.HandleFunc("POST /api/providers", s.requireAdmin(s.handleCreateProvider))
	mux.HandleFunc("PUT /api/providers/{id}", s.requireAdmin(s.handleUpdateProvider))
	mux.HandleFunc("DELETE /api/providers/{id}", s.requireAdmin(s.handleDeleteProvider))

	mux.HandleFunc("GET /api/webhooks", s.requireAdmin(s.handleListWebhooks))
	mux.HandleFunc("POST /api/webhooks", s.requireAdmin(s.handleCreateWebhook))
	mux.HandleFunc("PUT /api/webhooks/{id}", s.requireAdmin(s.handleUpdateWebhook))
	mux.HandleFunc("DELETE /api/webhooks/{id}", s.requireAdmin(s.handleDeleteWebhook))

	mux.HandleFunc("GET /api/health", s.handleHealth)

	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.writeError(w, http.StatusUnauthorized, "credenciais inválidas")
		return
	}
	if err != nil {
		s.logger.Error("Login failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, loginResponse{User: user, Token: token})
}
