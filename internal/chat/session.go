package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/models"
	"github.com/luzzdev/luzzia/internal/storage"
)

// SessionStore is the authoritative in-memory view of all threads and their
// messages, kept consistent with storage. It owns the session index; no
// other component mutates it directly.
type SessionStore struct {
	mu       sync.Mutex
	store    storage.ThreadStorage
	logger   *zap.Logger
	threads  map[ThreadID]*models.Thread
	inFlight map[ThreadID]bool
	active   ThreadID
	agent    *models.Agent
}

func NewSessionStore(store storage.ThreadStorage, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		store:    store,
		logger:   logger,
		threads:  make(map[ThreadID]*models.Thread),
		inFlight: make(map[ThreadID]bool),
	}
}

// Load rebuilds the session index from storage. Drafts and the active
// pointer are discarded; only persisted threads survive a reload.
func (s *SessionStore) Load(ctx context.Context) error {
	threads, err := s.store.ListThreads(ctx)
	if err != nil {
		return fmt.Errorf("failed to load threads: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = make(map[ThreadID]*models.Thread, len(threads))
	for _, t := range threads {
		s.threads[PersistedID(t.ID)] = t
	}
	s.inFlight = make(map[ThreadID]bool)
	s.active = ThreadID{}
	return nil
}

// SwitchAgent makes agent the active persona. The active thread pointer is
// cleared and abandoned drafts are discarded; they never reach storage.
func (s *SessionStore) SwitchAgent(agent *models.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agent = agent
	s.active = ThreadID{}
	s.dropDraftsLocked()
}

// ActiveAgent returns the currently selected persona, or nil.
func (s *SessionStore) ActiveAgent() *models.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agent
}

// NewDraft creates an empty client-local thread owned by the active agent
// and marks it active. Any previous unpromoted draft is discarded. Storage
// is not touched.
func (s *SessionStore) NewDraft() (ThreadID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agent == nil {
		return ThreadID{}, ErrNoActiveSession
	}
	s.dropDraftsLocked()

	id := NewDraftID()
	now := time.Now()
	s.threads[id] = &models.Thread{
		AgentID:   s.agent.ID,
		Title:     "Nova Conversa",
		Type:      models.CategoryChat,
		Messages:  []*models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.active = id
	return id, nil
}

// dropDraftsLocked removes drafts that are not mid-send. A draft with a send
// in flight is kept so a late completion still finds its target.
func (s *SessionStore) dropDraftsLocked() {
	for id := range s.threads {
		if id.IsDraft() && !s.inFlight[id] {
			delete(s.threads, id)
		}
	}
}

// Select points the active thread at id. Unknown identifiers are a no-op;
// callers only pass identifiers obtained from the index.
func (s *SessionStore) Select(id ThreadID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		return
	}
	s.active = id
}

// Active returns the active thread identifier and a snapshot of the thread.
func (s *SessionStore) Active() (ThreadID, *models.Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active.IsZero() {
		return ThreadID{}, nil, false
	}
	t, ok := s.threads[s.active]
	if !ok {
		return ThreadID{}, nil, false
	}
	return s.active, snapshotThread(t), true
}

// Thread returns a snapshot of the thread with the given identifier.
func (s *SessionStore) Thread(id ThreadID) (*models.Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, false
	}
	return snapshotThread(t), true
}

// AgentThreads returns snapshots of the agent's threads, most recently
// updated first. Drafts are excluded: until promotion they belong to the
// composer, not the history panel.
func (s *SessionStore) AgentThreads(agentID string) []*models.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Thread
	for id, t := range s.threads {
		if id.IsDraft() || t.AgentID != agentID {
			continue
		}
		out = append(out, snapshotThread(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Append adds a message to the thread in append order and touches its
// last-update timestamp. Returns false when the thread is gone, which a
// caller holding a stale identifier must treat as "discard the update".
func (s *SessionStore) Append(id ThreadID, msg *models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return false
	}
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now()
	return true
}

// extendMessage appends a streamed increment to the message's content in
// place. Increments arriving after the thread was deleted are dropped
// silently.
func (s *SessionStore) extendMessage(id ThreadID, msgID, delta string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return false
	}
	for _, m := range t.Messages {
		if m.ID == msgID {
			m.Content += delta
			return true
		}
	}
	return false
}

// setMessageContent replaces the message's content, used to settle the final
// assistant text after a non-streamed generation.
func (s *SessionStore) setMessageContent(id ThreadID, msgID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return false
	}
	for _, m := range t.Messages {
		if m.ID == msgID {
			m.Content = content
			return true
		}
	}
	return false
}

// removeMessage deletes a message from the thread, used to retract the
// assistant placeholder when generation fails partway.
func (s *SessionStore) removeMessage(id ThreadID, msgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return
	}
	for i, m := range t.Messages {
		if m.ID == msgID {
			t.Messages = append(t.Messages[:i], t.Messages[i+1:]...)
			return
		}
	}
}

// promote atomically replaces the draft entry with the persisted thread
// under its storage-issued identifier, carrying the accumulated message
// sequence. The draft identifier stops resolving, and the active pointer
// follows in the same step so no caller observes a dangling pointer.
func (s *SessionStore) promote(draftID ThreadID, persisted *models.Thread) (ThreadID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.threads[draftID]
	if !ok || !draftID.IsDraft() {
		return ThreadID{}, ErrThreadNotFound
	}

	newID := PersistedID(persisted.ID)
	draft.ID = persisted.ID
	draft.Title = persisted.Title
	draft.Type = persisted.Type
	draft.Summary = persisted.Summary
	draft.UpdatedAt = persisted.UpdatedAt
	for _, m := range draft.Messages {
		m.ThreadID = persisted.ID
	}

	delete(s.threads, draftID)
	s.threads[newID] = draft
	if s.inFlight[draftID] {
		delete(s.inFlight, draftID)
		s.inFlight[newID] = true
	}
	if s.active == draftID {
		s.active = newID
	}
	return newID, nil
}

// Delete removes the thread from the index and, for persisted threads, from
// storage. If it was active the pointer is cleared; nothing is auto-selected.
func (s *SessionStore) Delete(ctx context.Context, id ThreadID) error {
	s.mu.Lock()
	_, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return ErrThreadNotFound
	}
	delete(s.threads, id)
	if s.active == id {
		s.active = ThreadID{}
	}
	s.mu.Unlock()

	if id.IsDraft() {
		return nil
	}
	if err := s.store.DeleteThread(ctx, id.StorageID()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// Rename updates the thread title. Empty or whitespace-only titles are a
// no-op and the existing title is retained. For persisted threads the new
// title is propagated to storage.
func (s *SessionStore) Rename(ctx context.Context, id ThreadID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	s.mu.Lock()
	t, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return ErrThreadNotFound
	}
	t.Title = title
	s.mu.Unlock()

	if id.IsDraft() {
		return nil
	}
	if err := s.store.RenameThread(ctx, id.StorageID(), title); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// beginSend claims the per-thread in-flight flag. A second send on the same
// thread fails fast instead of racing the first.
func (s *SessionStore) beginSend(id ThreadID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		return false
	}
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *SessionStore) endSend(id ThreadID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

func snapshotThread(t *models.Thread) *models.Thread {
	c := *t
	c.Messages = make([]*models.Message, len(t.Messages))
	for i, m := range t.Messages {
		mc := *m
		c.Messages[i] = &mc
	}
	return &c
}
