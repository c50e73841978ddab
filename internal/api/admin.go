package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/auth"
	"github.com/luzzdev/luzzia/internal/models"
	"github.com/luzzdev/luzzia/internal/storage"
	"github.com/luzzdev/luzzia/internal/webhook"
)

func (s *Server) adminError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	s.logger.Error("Admin operation failed", zap.Error(err), zap.String("entity", what))
	s.writeError(w, http.StatusInternalServerError, "internal server error")
}

// Agents

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListAgents(r.Context())
	if err != nil {
		s.adminError(w, err, "agent")
		return
	}
	s.writeJSON(w, http.StatusOK, agents)
}

type agentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Personality string `json:"personality"`
	Prompt      string `json:"prompt"`
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	agent := &models.Agent{
		Name:         req.Name,
		Description:  req.Description,
		Personality:  req.Personality,
		SystemPrompt: req.Prompt,
	}
	if err := s.store.CreateAgent(r.Context(), agent); err != nil {
		s.adminError(w, err, "agent")
		return
	}
	s.writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent := &models.Agent{
		ID:           r.PathValue("id"),
		Name:         req.Name,
		Description:  req.Description,
		Personality:  req.Personality,
		SystemPrompt: req.Prompt,
	}
	if err := s.store.UpdateAgent(r.Context(), agent); err != nil {
		s.adminError(w, err, "agent")
		return
	}
	s.writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAgent(r.Context(), r.PathValue("id")); err != nil {
		s.adminError(w, err, "agent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Users

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.adminError(w, err, "user")
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

type userRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if req.Role != "admin" {
		req.Role = "user"
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.adminError(w, err, "user")
		return
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.adminError(w, err, "user")
		return
	}

	if claims := claimsFrom(r.Context()); claims != nil {
		s.logger.Info("User created",
			zap.String("username", user.Username),
			zap.String("role", user.Role),
			zap.String("created_by", claims.Username))
	}

	s.hooks.Fire(webhook.EventUserCreated, user)
	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role != "admin" {
		req.Role = "user"
	}

	user := &models.User{
		ID:       r.PathValue("id"),
		Username: req.Username,
		Role:     req.Role,
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			s.adminError(w, err, "user")
			return
		}
		user.PasswordHash = hash
	}
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.adminError(w, err, "user")
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		s.adminError(w, err, "user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Providers

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.store.ListProviders(r.Context())
	if err != nil {
		s.adminError(w, err, "provider")
		return
	}
	s.writeJSON(w, http.StatusOK, providers)
}

type providerRequest struct {
	Provider string `json:"provider_id"`
	Name     string `json:"name"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	IsActive bool   `json:"is_active"`
}

func (s *Server) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Provider) == "" {
		s.writeError(w, http.StatusBadRequest, "provider_id is required")
		return
	}

	provider := &models.APIProvider{
		Provider: req.Provider,
		Name:     req.Name,
		APIKey:   req.APIKey,
		Model:    req.Model,
		IsActive: req.IsActive,
	}
	if err := s.store.CreateProvider(r.Context(), provider); err != nil {
		s.adminError(w, err, "provider")
		return
	}
	s.writeJSON(w, http.StatusCreated, provider)
}

func (s *Server) handleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	provider := &models.APIProvider{
		ID:       r.PathValue("id"),
		Provider: req.Provider,
		Name:     req.Name,
		APIKey:   req.APIKey,
		Model:    req.Model,
		IsActive: req.IsActive,
	}
	if err := s.store.UpdateProvider(r.Context(), provider); err != nil {
		s.adminError(w, err, "provider")
		return
	}
	s.writeJSON(w, http.StatusOK, provider)
}

func (s *Server) handleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProvider(r.Context(), r.PathValue("id")); err != nil {
		s.adminError(w, err, "provider")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Webhooks

func (s *Server) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := s.store.ListWebhooks(r.Context())
	if err != nil {
		s.adminError(w, err, "webhook")
		return
	}
	s.writeJSON(w, http.StatusOK, hooks)
}

type webhookRequest struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Event string `json:"event"`
}

func (s *Server) handleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.Event) == "" {
		s.writeError(w, http.StatusBadRequest, "url and event are required")
		return
	}

	hook := &models.Webhook{
		Name:  req.Name,
		URL:   req.URL,
		Event: req.Event,
	}
	if err := s.store.CreateWebhook(r.Context(), hook); err != nil {
		s.adminError(w, err, "webhook")
		return
	}
	s.writeJSON(w, http.StatusCreated, hook)
}

func (s *Server) handleUpdateWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hook := &models.Webhook{
		ID:    r.PathValue("id"),
		Name:  req.Name,
		URL:   req.URL,
		Event: req.Event,
	}
	if err := s.store.UpdateWebhook(r.Context(), hook); err != nil {
		s.adminError(w, err, "webhook")
		return
	}
	s.writeJSON(w, http.StatusOK, hook)
}

func (s *Server) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteWebhook(r.Context(), r.PathValue("id")); err != nil {
		s.adminError(w, err, "webhook")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
