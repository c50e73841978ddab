package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/models"
	"github.com/luzzdev/luzzia/internal/storage"
	"github.com/luzzdev/luzzia/internal/webhook"
)

type historyItem struct {
	ID           string          `json:"id"`
	Type         models.Category `json:"type"`
	Title        string          `json:"title"`
	Summary      string          `json:"summary"`
	ChatThreadID string          `json:"chatThreadId"`
}

type historyResponse struct {
	History []historyItem                `json:"history"`
	Chats   map[string][]*models.Message `json:"chats"`
}

// handleListHistory returns all persisted threads newest-first, shaped as
// history items plus a per-thread message map.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	threads, err := s.store.ListThreads(r.Context())
	if err != nil {
		s.logger.Error("Failed to list threads", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := historyResponse{
		History: make([]historyItem, 0, len(threads)),
		Chats:   make(map[string][]*models.Message, len(threads)),
	}
	for _, t := range threads {
		resp.History = append(resp.History, historyItem{
			ID:           t.ID,
			Type:         t.Type,
			Title:        t.Title,
			Summary:      t.Summary,
			ChatThreadID: t.ID,
		})
		resp.Chats[t.ID] = t.Messages
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type createThreadRequest struct {
	AgentID  string            `json:"agent_id"`
	Title    string            `json:"title"`
	Type     models.Category   `json:"type"`
	Summary  string            `json:"summary"`
	Messages []*models.Message `json:"messages"`
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if !models.ValidCategory(req.Type) {
		req.Type = models.CategoryChat
	}

	thread := &models.Thread{
		AgentID:  req.AgentID,
		Title:    req.Title,
		Type:     req.Type,
		Summary:  req.Summary,
		Messages: req.Messages,
	}
	if err := s.store.CreateThread(r.Context(), thread); err != nil {
		s.logger.Error("Failed to create thread", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.hooks.Fire(webhook.EventThreadCreated, thread)
	s.writeJSON(w, http.StatusCreated, thread)
}

type appendMessagesRequest struct {
	Messages []*models.Message `json:"messages"`
}

func (s *Server) handleAppendMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req appendMessagesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	if err := s.store.AppendMessages(r.Context(), id, req.Messages); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		s.logger.Error("Failed to append messages", zap.Error(err), zap.String("thread_id", id))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, req.Messages)
}

func (s *Server) handleRenameThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		// Blank titles keep the existing one.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.store.RenameThread(r.Context(), id, title); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		s.logger.Error("Failed to rename thread", zap.Error(err), zap.String("thread_id", id))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteThread(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		s.logger.Error("Failed to delete thread", zap.Error(err), zap.String("thread_id", id))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
