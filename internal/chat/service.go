package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/ai"
	"github.com/luzzdev/luzzia/internal/models"
	"github.com/luzzdev/luzzia/internal/storage"
	"github.com/luzzdev/luzzia/internal/webhook"
)

// FallbackTitle is used when the title/classification call fails. A failed
// title call never blocks promotion.
const FallbackTitle = "Nova Conversa"

// summaryMaxLen bounds the auto-derived thread summary.
const summaryMaxLen = 100

// Service drives one user-turn to assistant-turn cycle per SendMessage call
// and manages the draft-to-persisted promotion of threads.
type Service struct {
	sessions *SessionStore
	gen      ai.Generator
	store    storage.ThreadStorage
	hooks    *webhook.Dispatcher
	logger   *zap.Logger
}

func NewService(sessions *SessionStore, gen ai.Generator, store storage.ThreadStorage, hooks *webhook.Dispatcher, logger *zap.Logger) *Service {
	return &Service{
		sessions: sessions,
		gen:      gen,
		store:    store,
		hooks:    hooks,
		logger:   logger,
	}
}

// Sessions exposes the session index the service operates on.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// SwitchAgent selects a persona and deselects the active thread.
func (s *Service) SwitchAgent(agent *models.Agent) {
	s.sessions.SwitchAgent(agent)
}

// StartNewChat creates a draft thread for the active agent and selects it.
func (s *Service) StartNewChat() (ThreadID, error) {
	return s.sessions.NewDraft()
}

// SelectThread points the active thread at id; unknown ids are a no-op.
func (s *Service) SelectThread(id ThreadID) {
	s.sessions.Select(id)
}

// DeleteThread removes the thread from the index and storage.
func (s *Service) DeleteThread(ctx context.Context, id ThreadID) error {
	return s.sessions.Delete(ctx, id)
}

// RenameThread updates the thread title; blank titles are ignored.
func (s *Service) RenameThread(ctx context.Context, id ThreadID, title string) error {
	return s.sessions.Rename(ctx, id, title)
}

// SendMessage executes one exchange on the active thread: the user message
// is appended immediately, the assistant reply streams into a placeholder,
// and on the first completed exchange the draft is promoted to a persisted
// thread. onDelta, when non-nil, observes every streamed increment.
func (s *Service) SendMessage(ctx context.Context, text string, onDelta func(delta string)) (*models.Message, error) {
	agent := s.sessions.ActiveAgent()
	id, thread, ok := s.sessions.Active()
	if agent == nil || !ok {
		return nil, ErrNoActiveSession
	}

	if err := s.gen.Ready(ctx); err != nil {
		s.logger.Warn("Generation provider unavailable", zap.Error(err))
		return nil, ErrGenerationUnavailable
	}

	if !s.sessions.beginSend(id) {
		return nil, ErrSessionBusy
	}
	// Promotion renames the thread identifier mid-send; release whichever
	// identifier the thread ends up under.
	current := id
	defer func() { s.sessions.endSend(current) }()

	userMsg := &models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}
	// Optimistic append: the user sees their message regardless of what the
	// generation call does.
	s.sessions.Append(id, userMsg)

	history := make([]ai.Turn, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		// System and error messages never go upstream.
		if m.Role == models.RoleUser || m.Role == models.RoleAssistant {
			history = append(history, ai.Turn{Role: m.Role, Content: m.Content})
		}
	}

	assistant := &models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		AgentName: agent.Name,
		CreatedAt: time.Now(),
	}
	s.sessions.Append(id, assistant)

	reply, err := s.gen.Generate(ctx, ai.Request{
		SystemPrompt: agent.SystemPrompt,
		History:      history,
		Text:         text,
	}, func(delta string) {
		if !s.sessions.extendMessage(id, assistant.ID, delta) {
			// Thread was abandoned mid-stream; drop the increment.
			return
		}
		if onDelta != nil {
			onDelta(delta)
		}
	})
	if err != nil {
		s.logger.Error("Generation failed",
			zap.Error(err),
			zap.String("thread_id", id.String()),
			zap.String("agent_id", agent.ID))
		s.sessions.removeMessage(id, assistant.ID)
		s.sessions.Append(id, &models.Message{
			ID:        uuid.New().String(),
			Role:      models.RoleSystem,
			Content:   "Erro da IA: " + err.Error(),
			CreatedAt: time.Now(),
		})
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	// Settles the final text on the indexed message; assistant is the same
	// object, so the returned message carries the full reply.
	s.sessions.setMessageContent(id, assistant.ID, reply)

	if id.IsDraft() {
		newID, err := s.promoteDraft(ctx, id, agent, text, reply)
		if err != nil {
			return assistant, err
		}
		if !newID.IsZero() {
			current = newID
		}
		return assistant, nil
	}

	if err := s.store.AppendMessages(ctx, id.StorageID(), []*models.Message{userMsg, assistant}); err != nil {
		s.logger.Error("Failed to persist exchange",
			zap.Error(err),
			zap.String("thread_id", id.String()))
		return assistant, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return assistant, nil
}

// promoteDraft runs the title/classification call and replaces the draft
// with a persisted thread. Classification failure falls back to default
// title and category; only a storage failure is surfaced.
func (s *Service) promoteDraft(ctx context.Context, draftID ThreadID, agent *models.Agent, firstText, reply string) (ThreadID, error) {
	cls, err := s.gen.Classify(ctx, firstText, reply)
	if err != nil || cls == nil || strings.TrimSpace(cls.Title) == "" {
		if err != nil {
			s.logger.Warn("Classification failed, using fallback title", zap.Error(err))
		}
		cls = &ai.Classification{Title: FallbackTitle, Category: models.CategoryChat}
	}
	if !models.ValidCategory(cls.Category) {
		cls.Category = models.CategoryChat
	}

	draft, ok := s.sessions.Thread(draftID)
	if !ok {
		return ThreadID{}, nil
	}

	persisted := &models.Thread{
		AgentID:   agent.ID,
		Title:     cls.Title,
		Type:      cls.Category,
		Summary:   Truncate(firstText, summaryMaxLen),
		Messages:  draft.Messages,
		CreatedAt: draft.CreatedAt,
	}
	if err := s.store.CreateThread(ctx, persisted); err != nil {
		s.logger.Error("Failed to persist new thread", zap.Error(err))
		return ThreadID{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	newID, err := s.sessions.promote(draftID, persisted)
	if err != nil {
		// The draft was deleted while the exchange was in flight. The row
		// just created would be an orphan the user never saw; remove it.
		if delErr := s.store.DeleteThread(ctx, persisted.ID); delErr != nil {
			s.logger.Warn("Failed to remove orphaned thread", zap.Error(delErr))
		}
		return ThreadID{}, nil
	}

	s.logger.Info("Thread promoted",
		zap.String("thread_id", persisted.ID),
		zap.String("title", persisted.Title),
		zap.String("type", string(persisted.Type)))

	if s.hooks != nil {
		if snapshot, ok := s.sessions.Thread(newID); ok {
			s.hooks.Fire(webhook.EventThreadCreated, snapshot)
		}
	}
	return newID, nil
}

// Truncate bounds s to max runes, replacing the tail with an ellipsis
// marker. The marker is always appended whole.
func Truncate(s string, max int) string {
	const marker = "..."
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(marker) {
		return string(runes[:max])
	}
	return string(runes[:max-len(marker)]) + marker
}
