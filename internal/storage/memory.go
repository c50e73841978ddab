package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/luzzdev/luzzia/internal/models"
)

// MemoryStorage is a map-backed Storage used for tests and for running the
// server without a database (database.use_in_memory).
type MemoryStorage struct {
	mu        sync.RWMutex
	threads   map[string]*models.Thread
	agents    map[string]*models.Agent
	users     map[string]*models.User
	providers map[string]*models.APIProvider
	webhooks  map[string]*models.Webhook
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		threads:   make(map[string]*models.Thread),
		agents:    make(map[string]*models.Agent),
		users:     make(map[string]*models.User),
		providers: make(map[string]*models.APIProvider),
		webhooks:  make(map[string]*models.Webhook),
	}
}

// Thread methods

func (s *MemoryStorage) ListThreads(ctx context.Context) ([]*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]*models.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		threads = append(threads, copyThread(t))
	}
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})
	return threads, nil
}

func (s *MemoryStorage) CreateThread(ctx context.Context, thread *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	thread.ID = uuid.New().String()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	thread.UpdatedAt = now
	for _, m := range thread.Messages {
		m.ThreadID = thread.ID
	}
	s.threads[thread.ID] = copyThread(thread)
	return nil
}

func (s *MemoryStorage) AppendMessages(ctx context.Context, threadID string, msgs []*models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, exists := s.threads[threadID]
	if !exists {
		return ErrNotFound
	}
	for _, m := range msgs {
		c := *m
		c.ThreadID = threadID
		thread.Messages = append(thread.Messages, &c)
	}
	thread.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStorage) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.threads[threadID]; !exists {
		return ErrNotFound
	}
	delete(s.threads, threadID)
	return nil
}

func (s *MemoryStorage) RenameThread(ctx context.Context, threadID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, exists := s.threads[threadID]
	if !exists {
		return ErrNotFound
	}
	thread.Title = title
	thread.UpdatedAt = time.Now()
	return nil
}

// Agent methods

func (s *MemoryStorage) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make([]*models.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		c := *a
		agents = append(agents, &c)
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].CreatedAt.Before(agents[j].CreatedAt)
	})
	return agents, nil
}

func (s *MemoryStorage) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, exists := s.agents[id]; exists {
		c := *a
		return &c, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) CreateAgent(ctx context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now()
	}
	c := *agent
	s.agents[agent.ID] = &c
	return nil
}

func (s *MemoryStorage) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.agents[agent.ID]
	if !exists {
		return ErrNotFound
	}
	agent.CreatedAt = existing.CreatedAt
	c := *agent
	s.agents[agent.ID] = &c
	return nil
}

func (s *MemoryStorage) DeleteAgent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.agents[id]; !exists {
		return ErrNotFound
	}
	delete(s.agents, id)
	return nil
}

// User methods

func (s *MemoryStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		c := *u
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *MemoryStorage) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.users[user.ID]
	if !exists {
		return ErrNotFound
	}
	user.CreatedAt = existing.CreatedAt
	if user.PasswordHash == "" {
		user.PasswordHash = existing.PasswordHash
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *MemoryStorage) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// Provider methods

func (s *MemoryStorage) ListProviders(ctx context.Context) ([]*models.APIProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	providers := make([]*models.APIProvider, 0, len(s.providers))
	for _, p := range s.providers {
		c := *p
		providers = append(providers, &c)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].CreatedAt.Before(providers[j].CreatedAt)
	})
	return providers, nil
}

func (s *MemoryStorage) GetActiveProvider(ctx context.Context) (*models.APIProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.providers {
		if p.IsActive && p.APIKey != "" {
			c := *p
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) CreateProvider(ctx context.Context, p *models.APIProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	c := *p
	s.providers[p.ID] = &c
	return nil
}

func (s *MemoryStorage) UpdateProvider(ctx context.Context, p *models.APIProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.providers[p.ID]
	if !exists {
		return ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	c := *p
	s.providers[p.ID] = &c
	return nil
}

func (s *MemoryStorage) DeleteProvider(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.providers[id]; !exists {
		return ErrNotFound
	}
	delete(s.providers, id)
	return nil
}

// Webhook methods

func (s *MemoryStorage) ListWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	webhooks := make([]*models.Webhook, 0, len(s.webhooks))
	for _, w := range s.webhooks {
		c := *w
		webhooks = append(webhooks, &c)
	}
	sort.Slice(webhooks, func(i, j int) bool {
		return webhooks[i].CreatedAt.Before(webhooks[j].CreatedAt)
	})
	return webhooks, nil
}

func (s *MemoryStorage) CreateWebhook(ctx context.Context, w *models.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	c := *w
	s.webhooks[w.ID] = &c
	return nil
}

func (s *MemoryStorage) UpdateWebhook(ctx context.Context, w *models.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.webhooks[w.ID]
	if !exists {
		return ErrNotFound
	}
	w.CreatedAt = existing.CreatedAt
	c := *w
	s.webhooks[w.ID] = &c
	return nil
}

func (s *MemoryStorage) DeleteWebhook(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.webhooks[id]; !exists {
		return ErrNotFound
	}
	delete(s.webhooks, id)
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func copyThread(t *models.Thread) *models.Thread {
	c := *t
	c.Messages = make([]*models.Message, len(t.Messages))
	for i, m := range t.Messages {
		mc := *m
		c.Messages[i] = &mc
	}
	return &c
}
