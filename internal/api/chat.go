package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/ai"
	"github.com/luzzdev/luzzia/internal/chat"
	"github.com/luzzdev/luzzia/internal/models"
)

// SSE event types for streaming sends.
const (
	eventChunk = "chunk"
	eventDone  = "done"
	eventError = "error"
)

type threadRef struct {
	ID    string `json:"id"`
	Draft bool   `json:"draft"`
}

func refOf(id chat.ThreadID) threadRef {
	return threadRef{ID: id.Value(), Draft: id.IsDraft()}
}

func (r threadRef) threadID() chat.ThreadID {
	return chat.RefID(r.ID, r.Draft)
}

// chatError maps chat service errors to HTTP responses.
func (s *Server) chatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrNoActiveSession):
		s.writeError(w, http.StatusConflict, "nenhuma sessão de chat ativa")
	case errors.Is(err, chat.ErrGenerationUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, "provedor de IA não configurado")
	case errors.Is(err, chat.ErrSessionBusy):
		s.writeError(w, http.StatusTooManyRequests, "uma mensagem já está em processamento")
	case errors.Is(err, chat.ErrGenerationFailed):
		s.writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, chat.ErrThreadNotFound):
		s.writeError(w, http.StatusNotFound, "thread not found")
	case errors.Is(err, chat.ErrPersistenceFailed):
		s.logger.Error("Persistence failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "falha ao salvar a conversa")
	default:
		s.logger.Error("Chat operation failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Stateless pass-through generation, kept for clients that manage their own
// history.

type chatRequest struct {
	Prompt  string `json:"prompt"`
	AgentID string `json:"agent_id"`
	History []struct {
		Role    models.Role `json:"role"`
		Content string      `json:"content"`
	} `json:"history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := s.store.GetAgent(r.Context(), req.AgentID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	history := make([]ai.Turn, 0, len(req.History))
	for _, m := range req.History {
		if m.Role == models.RoleUser || m.Role == models.RoleAssistant {
			history = append(history, ai.Turn{Role: m.Role, Content: m.Content})
		}
	}

	text, err := s.gen.Generate(r.Context(), ai.Request{
		SystemPrompt: agent.SystemPrompt,
		History:      history,
		Text:         req.Prompt,
	}, nil)
	if err != nil {
		if errors.Is(err, ai.ErrNoProvider) {
			s.writeError(w, http.StatusServiceUnavailable, "provedor de IA não configurado")
			return
		}
		s.logger.Error("Generation failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

type generateTitleRequest struct {
	Message string `json:"message"`
}

// handleGenerateTitle classifies a first message into a title and category.
// Classification failure is absorbed: the fallback payload is returned with
// status 200, never an error.
func (s *Server) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	fallback := ai.Classification{Title: chat.FallbackTitle, Category: models.CategoryChat}

	var req generateTitleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusOK, fallback)
		return
	}

	cls, err := s.gen.Classify(r.Context(), req.Message, "")
	if err != nil {
		s.logger.Warn("Classification failed, returning fallback", zap.Error(err))
		s.writeJSON(w, http.StatusOK, fallback)
		return
	}
	s.writeJSON(w, http.StatusOK, cls)
}

// Session-driven chat.

type switchAgentRequest struct {
	AgentID string `json:"agent_id"`
}

func (s *Server) handleSwitchAgent(w http.ResponseWriter, r *http.Request) {
	var req switchAgentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := s.store.GetAgent(r.Context(), req.AgentID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	s.chat.SwitchAgent(agent)
	s.writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleStartNewChat(w http.ResponseWriter, r *http.Request) {
	id, err := s.chat.StartNewChat()
	if err != nil {
		s.chatError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, refOf(id))
}

type selectThreadRequest struct {
	Thread threadRef `json:"thread"`
}

func (s *Server) handleSelectThread(w http.ResponseWriter, r *http.Request) {
	var req selectThreadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.chat.SelectThread(req.Thread.threadID())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionThreads(w http.ResponseWriter, r *http.Request) {
	agent := s.chat.Sessions().ActiveAgent()
	if agent == nil {
		s.writeJSON(w, http.StatusOK, []*models.Thread{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.chat.Sessions().AgentThreads(agent.ID))
}

func pathThreadID(r *http.Request) chat.ThreadID {
	return chat.RefID(r.PathValue("id"), r.URL.Query().Get("draft") == "true")
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.DeleteThread(r.Context(), pathThreadID(r)); err != nil {
		s.chatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type renameRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleSessionRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.chat.RenameThread(r.Context(), pathThreadID(r), req.Title); err != nil {
		s.chatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionExport(w http.ResponseWriter, r *http.Request) {
	transcript, err := s.chat.ExportThread(pathThreadID(r))
	if err != nil {
		s.chatError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, transcript); err != nil {
		s.logger.Debug("Failed to write transcript", zap.Error(err))
	}
}

type sendRequest struct {
	Text   string `json:"text"`
	Stream bool   `json:"stream"`
}

type sendResponse struct {
	Message *models.Message `json:"message"`
	Thread  threadRef       `json:"thread"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	if req.Stream {
		s.streamSend(w, r, req.Text)
		return
	}

	msg, err := s.chat.SendMessage(r.Context(), req.Text, nil)
	if err != nil {
		s.chatError(w, err)
		return
	}
	id, _, _ := s.chat.Sessions().Active()
	s.writeJSON(w, http.StatusOK, sendResponse{Message: msg, Thread: refOf(id)})
}

type chunkPayload struct {
	Text string `json:"text"`
}

type donePayload struct {
	Response string    `json:"response"`
	Thread   threadRef `json:"thread"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// streamSend runs the exchange while forwarding every increment to the
// client as SSE chunk events.
func (s *Server) streamSend(w http.ResponseWriter, r *http.Request, text string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	msg, err := s.chat.SendMessage(r.Context(), text, func(delta string) {
		if err := writeEvent(w, flusher, eventChunk, chunkPayload{Text: delta}); err != nil {
			s.logger.Debug("Failed to write chunk", zap.Error(err))
		}
	})
	if err != nil {
		_ = writeEvent(w, flusher, eventError, errorPayload{
			Code:    sendErrorCode(err),
			Message: err.Error(),
		})
		return
	}

	id, _, _ := s.chat.Sessions().Active()
	_ = writeEvent(w, flusher, eventDone, donePayload{Response: msg.Content, Thread: refOf(id)})
}

func sendErrorCode(err error) string {
	switch {
	case errors.Is(err, chat.ErrNoActiveSession):
		return "NO_ACTIVE_SESSION"
	case errors.Is(err, chat.ErrGenerationUnavailable):
		return "GENERATION_UNAVAILABLE"
	case errors.Is(err, chat.ErrSessionBusy):
		return "SESSION_BUSY"
	case errors.Is(err, chat.ErrGenerationFailed):
		return "GENERATION_FAILED"
	case errors.Is(err, chat.ErrPersistenceFailed):
		return "PERSISTENCE_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}

// writeEvent writes a single SSE event with a JSON payload.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent(w io.Writer, flusher http.Flusher, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
